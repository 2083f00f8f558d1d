package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// DefaultSubject is the subject events are published on when none is configured.
const DefaultSubject = "matchloop.feedback"

type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSSink publishes events to a NATS subject.
type NATSSink struct {
	conn    publisher
	subject string
}

// NewNATSSink creates a NATS sink on subject, or DefaultSubject when empty.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: nc, subject: subject}
}

// Deliver publishes one event and flushes so a broken connection is reported
// to the caller instead of being buffered.
func (s *NATSSink) Deliver(ctx context.Context, e outcome.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w: %w", domain.ErrFeedbackRejected, err)
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		if errors.Is(err, nats.ErrBadSubject) || errors.Is(err, nats.ErrMaxPayload) {
			return fmt.Errorf("publish %s: %w: %w", s.subject, domain.ErrFeedbackRejected, err)
		}
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", s.subject, err)
	}
	return nil
}
