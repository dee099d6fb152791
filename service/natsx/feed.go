package natsx

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"chathub/logger"
	"chathub/service/chat"
)

// Config for the presence event feed connection.
type Config struct {
	URL           string
	Name          string
	Subject       string
	Timeout       time.Duration
	ReconnectWait time.Duration
}

// Feed publishes presence transitions (online/offline/joined/left) to a
// NATS subject for external consumers: analytics, notification fan-out,
// whatever subscribes. Strictly best effort; a broken bus never slows a
// message down.
type Feed struct {
	nc      *nats.Conn
	subject string
}

func NewFeed(cfg Config) (*Feed, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Subject == "" {
		cfg.Subject = "chat.presence"
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Feed{nc: nc, subject: cfg.Subject}, nil
}

// PublishStatus implements the hub's EventFeed interface.
func (f *Feed) PublishStatus(ev chat.StatusEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("[feed] marshal event: %v", err)
		return
	}
	if err := f.nc.Publish(f.subject, data); err != nil {
		logger.Warnf("[feed] publish user=%s status=%s err=%v", ev.UserID, ev.Status, err)
	}
}

func (f *Feed) Close() {
	if f.nc != nil {
		f.nc.Close()
	}
}
