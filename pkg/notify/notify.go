// Package notify delivers wishlist-match toasts: live over websockets, as a
// short-lived per-user inbox, and optionally onto a Kafka topic or NATS subject.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"dormscout-backend/model"
)

type Notifier interface {
	Notify(ctx context.Context, match model.WishlistMatch) error
}

// Multi fans a match out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, match model.WishlistMatch) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publisher is a Notifier backed by an external broker connection.
type Publisher interface {
	Notifier
	Close() error
}

// OpenPublisher parses kafka://broker1,broker2/topic or nats://host:port/subject.
// An empty URL yields a nil publisher and no error.
func OpenPublisher(raw string, logger *zap.Logger) (Publisher, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse notify url: %w", err)
	}
	target := strings.Trim(u.Path, "/")
	if target == "" {
		return nil, fmt.Errorf("notify url %q has no topic or subject", raw)
	}
	switch u.Scheme {
	case "kafka":
		return NewKafkaPublisher(strings.Split(u.Host, ","), target, logger), nil
	case "nats":
		p, err := NewNATSPublisher("nats://"+u.Host, target)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported notify scheme %q", u.Scheme)
	}
}
