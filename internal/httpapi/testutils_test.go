package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/rmacdonaldsmith/streamrelay/internal/logging"
	"github.com/rmacdonaldsmith/streamrelay/internal/metrics"
	"github.com/rmacdonaldsmith/streamrelay/internal/relay"
	"github.com/rmacdonaldsmith/streamrelay/internal/routingtable"
	"github.com/rmacdonaldsmith/streamrelay/internal/source"
	"github.com/rmacdonaldsmith/streamrelay/internal/websocket"
)

// TestServerSetup holds common test dependencies
type TestServerSetup struct {
	Node     *relay.Node
	Hub      *websocket.Hub
	Registry *routingtable.InMemoryRegistry
	Source   *source.ChannelSource
	Clock    *clockwork.FakeClock
	Server   *Server
	HTTP     *httptest.Server
}

// NewTestServerSetup creates a started relay node behind an httptest server
func NewTestServerSetup(t *testing.T) *TestServerSetup {
	t.Helper()

	logger := logging.Discard()
	reg := metrics.NewRegistry()
	m := metrics.NewRelayMetrics(reg)
	clock := clockwork.NewFakeClock()

	registry := routingtable.NewInMemoryRegistry(0)
	hub := websocket.NewHub(registry, websocket.Config{Logger: logger, Metrics: m, Clock: clock})
	src := source.NewChannelSource("test", 16)

	node, err := relay.NewNode(relay.NewConfig().WithLogger(logger).WithMetrics(m), src, registry, hub)
	if err != nil {
		t.Fatalf("Failed to create relay node: %v", err)
	}
	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start relay node: %v", err)
	}

	server := NewServer(node, hub, Config{Logger: logger, Metrics: reg})
	httpServer := httptest.NewServer(server.Handler())

	setup := &TestServerSetup{
		Node:     node,
		Hub:      hub,
		Registry: registry,
		Source:   src,
		Clock:    clock,
		Server:   server,
		HTTP:     httpServer,
	}
	t.Cleanup(setup.Close)
	return setup
}

// Close cleans up test resources
func (setup *TestServerSetup) Close() {
	setup.Hub.Stop()
	setup.HTTP.Close()
	_ = setup.Node.Close()
}
