package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"dormscout-backend/model"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("dormscout"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Notify publishes on <subject>.<userID>.
func (p *NATSPublisher) Notify(_ context.Context, match model.WishlistMatch) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject+"."+match.UserID, data)
}

func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}
