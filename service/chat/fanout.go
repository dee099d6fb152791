package chat

import (
	"sync"

	"chathub/logger"
)

type fanoutJob struct {
	clients []*Client
	payload []byte
}

// Fanout delivers one serialized envelope to many clients off the caller's
// goroutine. Enqueueing per client never blocks: a slow client's full queue
// means the frame is dropped for that client only. The hub runs a single
// dispatcher so jobs reach a given client's queue in submission order;
// more than one worker trades that ordering away.
type Fanout struct {
	mu     sync.RWMutex
	jobs   chan fanoutJob
	closed bool
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 1
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, c := range job.clients {
					if !c.enqueue(job.payload) {
						logger.Debugf("[fanout] dropped frame user=%s conn=%s", c.UserID, c.ConnID)
					}
				}
			}
		}()
	}
	return f
}

// Broadcast hands (clients, payload) to the dispatcher. Blocks only if the
// job queue itself is full. After Close it is a no-op, so a straggling
// producer (a late timer callback, an in-flight handler) cannot panic the
// process during shutdown.
func (f *Fanout) Broadcast(clients []*Client, payload []byte) {
	if len(clients) == 0 || len(payload) == 0 {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		logger.Debugf("[fanout] dropped job after close, %d clients", len(clients))
		return
	}
	f.jobs <- fanoutJob{clients: clients, payload: payload}
}

func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.jobs)
}
