package relay

import (
	"sync"

	relaypkg "github.com/rmacdonaldsmith/streamrelay/pkg/relay"
	"github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
)

type pushed struct {
	ID        routingtable.ConnID
	EventName string
	Payload   string
}

// recordingPusher captures every frame the dispatcher emits.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushed
	errors map[routingtable.ConnID][]string
	notify chan struct{}
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{
		errors: make(map[routingtable.ConnID][]string),
		notify: make(chan struct{}, 1024),
	}
}

func (p *recordingPusher) Push(id routingtable.ConnID, eventName string, payload []byte) {
	p.mu.Lock()
	p.pushes = append(p.pushes, pushed{ID: id, EventName: eventName, Payload: string(payload)})
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *recordingPusher) Error(id routingtable.ConnID, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors[id] = append(p.errors[id], code)
}

func (p *recordingPusher) For(id routingtable.ConnID) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, push := range p.pushes {
		if push.ID == id {
			out = append(out, push)
		}
	}
	return out
}

func (p *recordingPusher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

var _ relaypkg.Pusher = (*recordingPusher)(nil)

type nopPusher struct{}

func (nopPusher) Push(routingtable.ConnID, string, []byte) {}
func (nopPusher) Error(routingtable.ConnID, string)        {}

// batchPusher records PushMany calls on top of recordingPusher.
type batchPusher struct {
	*recordingPusher
	batches [][]routingtable.ConnID
}

func (p *batchPusher) PushMany(ids []routingtable.ConnID, eventName string, payload []byte) {
	p.mu.Lock()
	p.batches = append(p.batches, append([]routingtable.ConnID(nil), ids...))
	p.mu.Unlock()
	for _, id := range ids {
		p.recordingPusher.Push(id, eventName, payload)
	}
}

func (p *batchPusher) Push(id routingtable.ConnID, eventName string, payload []byte) {
	p.PushMany([]routingtable.ConnID{id}, eventName, payload)
}

var _ relaypkg.BatchPusher = (*batchPusher)(nil)
