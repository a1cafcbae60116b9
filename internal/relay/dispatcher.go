package relay

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rmacdonaldsmith/streamrelay/internal/metrics"
	"github.com/rmacdonaldsmith/streamrelay/internal/routingtable"
	"github.com/rmacdonaldsmith/streamrelay/pkg/event"
	relaypkg "github.com/rmacdonaldsmith/streamrelay/pkg/relay"
	routingtablepkg "github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
)

// Dispatcher fans one inbound event at a time out to every connection with a
// matching pattern.
//
// OnEvent is not safe for concurrent use. The Node
// drives it from a single goroutine so that events are processed one by one
// to completion. Registry mutations may run concurrently; each dispatch works
// on one consistent Snapshot.
type Dispatcher struct {
	registry  routingtablepkg.Registry
	patterns  *routingtable.PatternCache
	pusher    relaypkg.Pusher
	batch     relaypkg.BatchPusher
	keyField  string
	eventName string
	logger    *slog.Logger
	metrics   *metrics.RelayMetrics

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewDispatcher creates a dispatcher over registry that delivers through pusher.
// patterns is the process-wide compiled pattern cache.
func NewDispatcher(config *Config, registry routingtablepkg.Registry, patterns *routingtable.PatternCache, pusher relaypkg.Pusher) *Dispatcher {
	batch, _ := pusher.(relaypkg.BatchPusher)
	return &Dispatcher{
		batch:     batch,
		registry:  registry,
		patterns:  patterns,
		pusher:    pusher,
		keyField:  config.KeyField,
		eventName: config.EventName,
		logger:    config.logger(),
		metrics:   config.metrics(),
	}
}

// OnEvent decodes raw and pushes it to every matching connection. It returns
// the number of recipients. Malformed payloads and payloads without a key are
// logged and dropped; they are never retried.
func (d *Dispatcher) OnEvent(raw []byte) int {
	d.received.Add(1)
	d.metrics.EventsReceived.Inc()

	ev, err := event.Decode(raw, d.keyField)
	if err != nil {
		reason := metrics.ReasonMalformed
		if errors.Is(err, event.ErrMissingKey) {
			reason = metrics.ReasonMissingKey
		}
		d.dropped.Add(1)
		d.metrics.EventsDropped.WithLabelValues(reason).Inc()
		d.logger.Warn("dropping inbound event", "reason", reason, "error", err, "bytes", len(raw))
		return 0
	}

	start := time.Now()
	delivered := 0
	var recipients []routingtablepkg.ConnID
	for id, patterns := range d.registry.Snapshot() {
		if !d.matchesAny(patterns, ev.Key) {
			continue
		}
		if d.batch != nil {
			recipients = append(recipients, id)
		} else {
			d.pusher.Push(id, d.eventName, ev.Payload)
		}
		delivered++
	}
	if len(recipients) > 0 {
		d.batch.PushMany(recipients, d.eventName, ev.Payload)
	}

	d.metrics.Deliveries.Add(float64(delivered))
	d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	d.logger.Debug("dispatched event", "key", ev.Key, "recipients", delivered)

	return delivered
}

// matchesAny stops at the first matching pattern.
func (d *Dispatcher) matchesAny(patterns []string, key string) bool {
	for _, pattern := range patterns {
		if d.patterns.Test(pattern, key) {
			return true
		}
	}
	return false
}

// Received returns the number of payloads seen so far.
func (d *Dispatcher) Received() uint64 {
	return d.received.Load()
}

// Dropped returns the number of payloads dropped as malformed.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
