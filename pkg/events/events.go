package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	SubjectPropertyCreated    = "smartaqar.property.created"
	SubjectPropertyUpdated    = "smartaqar.property.updated"
	SubjectPropertyDeleted    = "smartaqar.property.deleted"
	SubjectProspectCreated    = "smartaqar.prospect.created"
	SubjectProspectUpdated    = "smartaqar.prospect.updated"
	SubjectProspectDeleted    = "smartaqar.prospect.deleted"
	SubjectImportCompleted    = "smartaqar.import.completed"
	SubjectCampaignDispatched = "smartaqar.campaign.dispatched"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// Envelope is the JSON body of every published event.
type Envelope struct {
	Subject    string      `json:"subject"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("smartaqar-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("publishing event")

	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// NopPublisher drops every event. It is used when NATS_URL is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

// PublishAsync fires an event without blocking the request. Failures are only logged.
func PublishAsync(ctx context.Context, p Publisher, subject string, data interface{}) {
	if p == nil {
		return
	}
	log := zerolog.Ctx(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(log.WithContext(context.Background()), 5*time.Second)
		defer cancel()
		if err := p.Publish(pubCtx, subject, data); err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
		}
	}()
}
