// Package events publishes domain notifications. Email delivery and other
// reactions live in subscribers outside this service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/nats-io/nats.go"
)

// Subjects
const (
	SubjectLeadConverted    = "crm.lead.converted"
	SubjectSaleCompleted    = "sales.sale.completed"
	SubjectReceiptProcessed = "purchases.receipt.processed"
	SubjectLowStock         = "inventory.low_stock"
	SubjectTaskReminder     = "projects.task.reminder"
	SubjectTaskOverdue      = "projects.task.overdue"
	SubjectReportExported   = "reports.export.completed"
)

// Envelope wraps every published payload.
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

// NATSPublisher publishes JSON envelopes on a NATS connection.
type NATSPublisher struct {
	nc *nats.Conn
}

// Connect dials NATS at url.
func Connect(url string, log logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("backoffice"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

// Publish marshals data into an envelope and publishes it.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	payload, err := json.Marshal(Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.nc.Publish(subject, payload)
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// Noop drops every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, subject string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: data})
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns the recorded events.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Subjects returns the subjects of the recorded events in order.
func (r *Recorder) Subjects() []string {
	var subjects []string
	for _, e := range r.Events() {
		subjects = append(subjects, e.Subject)
	}
	return subjects
}

// Emit publishes and logs failures instead of returning them. Call it after
// the owning transaction committed.
func Emit(ctx context.Context, p Publisher, log logger.Logger, subject string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, data); err != nil {
		log.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
