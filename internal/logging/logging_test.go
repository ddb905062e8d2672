package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "warn", "json")
	require.NoError(t, err)

	log := slog.New(h)
	log.Info("hidden")
	log.Warn("shown", "keyword", "lamp")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"keyword":"lamp"`)
}

func TestNewHandlerRejectsBadInput(t *testing.T) {
	_, err := NewHandler(&bytes.Buffer{}, "loud", "text")
	require.Error(t, err)

	_, err = NewHandler(&bytes.Buffer{}, "info", "xml")
	require.Error(t, err)
}
