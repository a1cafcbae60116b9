package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rmacdonaldsmith/streamrelay/internal/logging"
	"github.com/rmacdonaldsmith/streamrelay/internal/routingtable"
	"github.com/rmacdonaldsmith/streamrelay/internal/source"
)

func newTestNode(t *testing.T) (*Node, *source.ChannelSource, *recordingPusher) {
	t.Helper()
	src := source.NewChannelSource("test", 16)
	pusher := newRecordingPusher()
	registry := routingtable.NewInMemoryRegistry(0)

	node, err := NewNode(NewConfig().WithLogger(logging.Discard()), src, registry, pusher)
	if err != nil {
		t.Fatalf("Expected no error creating node, got %v", err)
	}
	t.Cleanup(func() { _ = node.Close() })
	return node, src, pusher
}

func TestNewNode(t *testing.T) {
	src := source.NewChannelSource("test", 0)
	registry := routingtable.NewInMemoryRegistry(0)
	pusher := newRecordingPusher()

	if _, err := NewNode(nil, src, registry, pusher); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewNode(NewConfig().WithKeyField(""), src, registry, pusher); !errors.Is(err, ErrEmptyKeyField) {
		t.Errorf("Expected ErrEmptyKeyField, got %v", err)
	}
	if _, err := NewNode(NewConfig(), nil, registry, pusher); err == nil {
		t.Error("Expected error for nil source")
	}
	if _, err := NewNode(NewConfig(), src, nil, pusher); err == nil {
		t.Error("Expected error for nil registry")
	}
	if _, err := NewNode(NewConfig(), src, registry, nil); err == nil {
		t.Error("Expected error for nil pusher")
	}

	node, err := NewNode(NewConfig(), src, registry, pusher)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if node.GetRegistry() != registry {
		t.Error("Expected GetRegistry to return the injected registry")
	}
	if node.Dispatcher() == nil {
		t.Error("Expected dispatcher to be created")
	}
}

func TestNode_StartStop(t *testing.T) {
	node, _, _ := newTestNode(t)
	ctx := context.Background()

	if err := node.Start(ctx); err != nil {
		t.Fatalf("Expected no error starting node, got %v", err)
	}

	node.mu.RLock()
	started := node.started
	node.mu.RUnlock()
	if !started {
		t.Error("Expected node to be started")
	}

	// Start is idempotent
	if err := node.Start(ctx); err != nil {
		t.Errorf("Expected second Start to succeed, got %v", err)
	}

	if err := node.Stop(ctx); err != nil {
		t.Fatalf("Expected no error stopping node, got %v", err)
	}

	node.mu.RLock()
	started = node.started
	node.mu.RUnlock()
	if started {
		t.Error("Expected node to be stopped")
	}

	// Stop is idempotent
	if err := node.Stop(ctx); err != nil {
		t.Errorf("Expected second Stop to succeed, got %v", err)
	}
}

func TestNode_RestartAfterStop(t *testing.T) {
	node, src, pusher := newTestNode(t)
	ctx := context.Background()

	if err := node.GetRegistry().OnConnect("c1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := node.GetRegistry().Subscribe("c1", "*"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := node.Start(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := node.Stop(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := node.Start(ctx); err != nil {
		t.Fatalf("Expected restart to succeed, got %v", err)
	}

	if err := src.Publish(ctx, []byte(`{"server_name":"a"}`)); err != nil {
		t.Fatalf("Expected no error publishing, got %v", err)
	}
	waitForPushes(t, pusher, 1)
}

func TestNode_Close(t *testing.T) {
	node, src, _ := newTestNode(t)
	ctx := context.Background()

	if err := node.Start(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := node.Close(); err != nil {
		t.Fatalf("Expected no error closing node, got %v", err)
	}

	node.mu.RLock()
	closed, started := node.closed, node.started
	node.mu.RUnlock()
	if !closed || started {
		t.Errorf("Expected closed and stopped node, got closed=%v started=%v", closed, started)
	}

	if err := node.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}
	if err := node.Start(ctx); !errors.Is(err, ErrNodeClosed) {
		t.Errorf("Expected ErrNodeClosed, got %v", err)
	}
	if err := src.Publish(ctx, []byte("{}")); !errors.Is(err, source.ErrSourceClosed) {
		t.Errorf("Expected source to be closed, got %v", err)
	}
}

func TestNode_StopHonoursContext(t *testing.T) {
	node, _, _ := newTestNode(t)
	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := node.Stop(ctx); err != nil {
		t.Errorf("Expected Stop to finish within deadline, got %v", err)
	}
}

func TestNode_FatalSourceError(t *testing.T) {
	node, src, _ := newTestNode(t)
	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	boom := errors.New("upstream disconnected")
	src.Fail(boom)

	select {
	case err := <-node.Fatal():
		if !errors.Is(err, boom) {
			t.Errorf("Expected %v, got %v", boom, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected fatal error to be reported")
	}

	health, err := node.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if health.Healthy || health.SourceHealthy {
		t.Errorf("Expected unhealthy node after fatal error, got %+v", health)
	}
}

func TestNode_SourceEndingIsFatal(t *testing.T) {
	node, src, _ := newTestNode(t)
	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_ = src.Close()

	select {
	case err := <-node.Fatal():
		if !errors.Is(err, ErrSourceClosed) {
			t.Errorf("Expected ErrSourceClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected fatal error when source ends")
	}
}

func TestNode_GetHealth(t *testing.T) {
	node, src, pusher := newTestNode(t)
	ctx := context.Background()

	health, err := node.GetHealth(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if health.Healthy {
		t.Error("Expected unstarted node to be unhealthy")
	}
	if health.Source != "test" {
		t.Errorf("Expected source name test, got %s", health.Source)
	}

	registry := node.GetRegistry()
	_ = registry.OnConnect("c1")
	_, _ = registry.Subscribe("c1", "*.org", "a")

	if err := node.Start(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = src.Publish(ctx, []byte(`{"server_name":"x.org"}`))
	_ = src.Publish(ctx, []byte(`oops`))
	waitForPushes(t, pusher, 1)
	waitFor(t, func() bool { return node.Dispatcher().Received() == 2 })

	health, err = node.GetHealth(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !health.Healthy || !health.SourceHealthy {
		t.Errorf("Expected healthy node, got %+v", health)
	}
	if health.ConnectedClients != 1 || health.Subscriptions != 2 {
		t.Errorf("Unexpected counts: %+v", health)
	}
	if health.EventsReceived != 2 || health.EventsDropped != 1 {
		t.Errorf("Unexpected event counters: %+v", health)
	}
}

func waitForPushes(t *testing.T, pusher *recordingPusher, n int) {
	t.Helper()
	waitFor(t, func() bool { return pusher.Count() >= n })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
