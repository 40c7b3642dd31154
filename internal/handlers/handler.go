package handlers

import (
	"context"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/campaign"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/auth"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/events"
)

// Handler holds everything the HTTP layer talks to. main wires the Mongo,
// Redis, NATS and provider implementations; tests wire fakes.
type Handler struct {
	Users      services.UserStore
	Properties services.PropertyStore
	Prospects  services.ProspectStore
	Images     services.ImageStore
	Confirmed  services.ConfirmedClient
	Tokens     *auth.Issuer
	Events     events.Publisher
	Dispatcher *campaign.Dispatcher

	// CreditTimeout bounds the provider read behind GET /user/credit.
	CreditTimeout time.Duration
	// AllowedOrigins is checked on websocket upgrades. Empty allows any origin.
	AllowedOrigins []string
}

// forgetter is implemented by provider clients that cache user reads.
type forgetter interface {
	Forget(ctx context.Context, token string)
}

func (h *Handler) publish(ctx context.Context, subject string, data interface{}) {
	events.PublishAsync(ctx, h.Events, subject, data)
}

func (h *Handler) forgetProviderUser(ctx context.Context, token string) {
	if f, ok := h.Confirmed.(forgetter); ok && token != "" {
		f.Forget(ctx, token)
	}
}
