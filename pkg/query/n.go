package query

// N is the node-iteration namespace (spec §4.7): canonical-order walking
// and ordered comparison.
type N struct {
	c *Computed
}

// NewN builds the N namespace.
func NewN(c *Computed) *N { return &N{c: c} }

// Walk returns a fresh, restartable cursor over every node in canonical
// (rank-ascending) order (spec §9: "each call returns a fresh iterator").
func (n *N) Walk() *Walker { return &Walker{c: n.c, i: -1} }

// Before reports whether a sorts before b in canonical order.
func (n *N) Before(a, b uint32) bool { return n.c.RankOf(a) < n.c.RankOf(b) }

// MaxNode returns the highest valid node id (|order|).
func (n *N) MaxNode() int { return len(n.c.Order) }

// Walker is a one-shot, restartable cursor over canonical node order.
type Walker struct {
	c *Computed
	i int
}

// Next advances the cursor and reports whether a node is available.
func (w *Walker) Next() bool {
	w.i++
	return w.i < len(w.c.Order)
}

// Node returns the current node. Valid only after a true-returning Next.
func (w *Walker) Node() uint32 { return w.c.Order[w.i] }
