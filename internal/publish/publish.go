// Package publish fans run activity out to NATS subjects.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
)

// Envelope kinds.
const (
	KindLog    = "log"
	KindStatus = "status"
)

// DefaultSubject is the subject prefix when none is configured.
const DefaultSubject = "pursuit.runs"

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Envelope is the JSON payload of every message.
type Envelope struct {
	Kind      string               `json:"kind"`
	RunID     string               `json:"run_id"`
	Iteration int                  `json:"iteration"`
	Status    string               `json:"status"`
	Previous  string               `json:"previous,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Progress  float64              `json:"progress"`
	Entry     *controller.LogEntry `json:"entry,omitempty"`
	SentAt    time.Time            `json:"sent_at"`
}

// Publisher sends log entries to <subject>.<run id>.log and status changes
// to <subject>.<run id>.status. A Publisher without a connection drops
// everything.
type Publisher struct {
	conn    Conn
	subject string
	now     func() time.Time
	closer  func() error
}

// New creates a publisher over conn.
func New(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: strings.TrimSuffix(subject, "."), now: time.Now}
}

// Nop returns a publisher that sends nothing.
func Nop() *Publisher {
	return New(nil, "")
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("pursuit"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	p := New(nc, subject)
	p.closer = nc.Drain
	return p, nil
}

// Enabled reports whether messages are actually sent.
func (p *Publisher) Enabled() bool {
	return p.conn != nil
}

// Subject returns the subject for a run and envelope kind.
func (p *Publisher) Subject(runID, kind string) string {
	return p.subject + "." + token(runID) + "." + kind
}

// PublishLog sends one log entry.
func (p *Publisher) PublishLog(st controller.State, entry controller.LogEntry) error {
	e := entry
	return p.send(KindLog, Envelope{
		Kind:      KindLog,
		RunID:     st.RunID,
		Iteration: entry.Iteration,
		Status:    string(st.Status),
		Progress:  st.Progress(),
		Entry:     &e,
	})
}

// PublishStatus sends a status change.
func (p *Publisher) PublishStatus(prev, next controller.State) error {
	previous := string(prev.Status)
	if prev.RunID != next.RunID {
		previous = ""
	}
	return p.send(KindStatus, Envelope{
		Kind:      KindStatus,
		RunID:     next.RunID,
		Iteration: next.Iteration,
		Status:    string(next.Status),
		Previous:  previous,
		Reason:    next.Reason,
		Progress:  next.Progress(),
	})
}

func (p *Publisher) send(kind string, env Envelope) error {
	if p.conn == nil {
		return nil
	}
	env.SentAt = p.now()
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := p.conn.Publish(p.Subject(env.RunID, kind), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", kind, err)
	}
	return nil
}

// Observe implements driver.Observer.
func (p *Publisher) Observe(_ context.Context, prev, next controller.State) error {
	if p.conn == nil || next.RunID == "" {
		return nil
	}

	var errs []error
	for _, entry := range driver.NewLogs(prev, next) {
		errs = append(errs, p.PublishLog(next, entry))
	}
	if prev.Status != next.Status || prev.RunID != next.RunID {
		errs = append(errs, p.PublishStatus(prev, next))
	}
	return errors.Join(errs...)
}

// Close drains the connection if the publisher owns one.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, s)
}
