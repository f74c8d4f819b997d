package log_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/context-fabric/context-fabric/internal/log"
)

func TestSilentLevelsFilterOutput(t *testing.T) {
	cases := []struct {
		silent     log.Silent
		wantInfo   bool
		wantWarn   bool
		wantError  bool
	}{
		{log.SilentOff, true, true, true},
		{log.SilentTerse, false, true, true},
		{log.SilentDeep, false, false, true},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		l := log.New(log.Config{Silent: tc.silent, Output: &buf})

		l.Info("info")
		l.Warn("warn")
		l.Error("error")

		out := buf.String()
		require.Equal(t, tc.wantInfo, bytes.Contains([]byte(out), []byte(`"info"`)), "silent=%s info", tc.silent)
		require.Equal(t, tc.wantWarn, bytes.Contains([]byte(out), []byte(`"warn"`)), "silent=%s warn", tc.silent)
		require.Equal(t, tc.wantError, bytes.Contains([]byte(out), []byte(`"error"`)), "silent=%s error", tc.silent)
	}
}

func TestWithStoreAndWithFeatureTagFields(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(log.Config{Silent: log.SilentOff, Output: &buf})
	l = log.WithStore(l, "/tmp/corpus.cf")
	l = log.WithFeature(l, "gloss")
	l.Info("loaded")

	out := buf.String()
	require.Contains(t, out, `"store":"/tmp/corpus.cf"`)
	require.Contains(t, out, `"feature":"gloss"`)
}
