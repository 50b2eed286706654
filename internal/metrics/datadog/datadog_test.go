package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itvetl/internal/metrics"
)

func TestNewBackendRequiresAddr(t *testing.T) {
	_, err := NewBackend(Config{})
	assert.Error(t, err)
}

func TestLabelsToTags(t *testing.T) {
	assert.Nil(t, labelsToTags(nil))
	assert.Equal(t, []string{"kind:loaded", "source:CAT"},
		labelsToTags(metrics.Labels{"source": "CAT", "kind": "loaded"}))
}

func TestCountReachesAgent(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), Namespace: "itvetl."})
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"source": "CAT", "kind": "loaded"})
	require.NoError(t, b.Flush())

	// Client telemetry may arrive in its own packet; scan until the count shows up.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	want := "itvetl." + metrics.RecordsTotal + ":3|c"
	buf := make([]byte, 65536)
	var got string
	for !strings.Contains(got, want) {
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err, "received so far: %q", got)
		got += string(buf[:n])
	}
	assert.Contains(t, got, "kind:loaded,source:CAT")
}

func TestNilClientIsSafe(t *testing.T) {
	var b Backend
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	assert.NoError(t, b.Flush())
}
