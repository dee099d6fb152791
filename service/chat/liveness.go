package chat

import (
	"sync"
	"time"

	"chathub/logger"
)

// livenessPeriod is the fixed heartbeat interval. A connection that fails
// to acknowledge one probe before the next tick is evicted, so a dead
// transport is detected within one period of the missed ack.
const livenessPeriod = 30 * time.Second

// livenessMonitor periodically walks the registry: connections whose flag
// was not re-set since the previous tick are evicted, everyone else has
// the flag cleared and a probe sent.
type livenessMonitor struct {
	period time.Duration
	reg    *Registry
	probe  func(c *Client) error
	evict  func(c *Client)

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newLivenessMonitor(period time.Duration, reg *Registry, probe func(*Client) error, evict func(*Client)) *livenessMonitor {
	return &livenessMonitor{
		period: period,
		reg:    reg,
		probe:  probe,
		evict:  evict,
		stopCh: make(chan struct{}),
	}
}

func (m *livenessMonitor) run() {
	t := time.NewTicker(m.period)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *livenessMonitor) sweep() {
	for _, c := range m.reg.Snapshot() {
		if !c.consumeAlive() {
			logger.Infof("[liveness] no ack user=%s conn=%s, evicting", c.UserID, c.ConnID)
			m.evict(c)
			continue
		}
		if err := m.probe(c); err != nil {
			// Leave the flag cleared; the next tick evicts if the peer
			// stays unreachable.
			logger.Warnf("[liveness] probe failed user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
		}
	}
}

func (m *livenessMonitor) stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
