package window

import (
	"strconv"
	"sync"
)

type sseEvent struct {
	id   uint64
	data string
}

// replayLog keeps the last few events sent to pages. A page reconnecting
// with Last-Event-ID gets the events it missed, as long as none of them has
// been evicted.
type replayLog struct {
	mu     sync.Mutex
	ring   []sseEvent
	next   int
	size   int
	lastID uint64
}

func newReplayLog(capacity int) *replayLog {
	return &replayLog{ring: make([]sseEvent, capacity)}
}

// record stores data under the next id and returns that id.
func (l *replayLog) record(data string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	l.ring[l.next] = sseEvent{id: l.lastID, data: data}
	l.next = (l.next + 1) % len(l.ring)
	if l.size < len(l.ring) {
		l.size++
	}
	return l.lastID
}

// since returns the retained events after lastEventID, oldest first.
func (l *replayLog) since(lastEventID string) []sseEvent {
	last, err := strconv.ParseUint(lastEventID, 10, 64)
	if err != nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	oldest := l.lastID - uint64(l.size) + 1
	if l.size == 0 || last+1 < oldest || last >= l.lastID {
		return nil
	}
	missed := make([]sseEvent, 0, l.lastID-last)
	start := (l.next - l.size + len(l.ring)) % len(l.ring)
	for i := 0; i < l.size; i++ {
		evt := l.ring[(start+i)%len(l.ring)]
		if evt.id > last {
			missed = append(missed, evt)
		}
	}
	return missed
}
