package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/campaign"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/events"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadLimit = 4 << 10

	FrameDispatch = "dispatch"
	FrameDone     = "done"
)

// DispatchFrame carries one prepared message of the stream.
type DispatchFrame struct {
	Type     string            `json:"type"`
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	Dispatch campaign.Dispatch `json:"dispatch"`
}

// DoneFrame ends a completed stream.
type DoneFrame struct {
	Type  string `json:"type"`
	Sent  int    `json:"sent"`
	Total int    `json:"total"`
}

type campaignEvent struct {
	Owner      string `json:"owner"`
	TemplateID string `json:"templateId"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	Cancelled  bool   `json:"cancelled"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimRight(r.Header.Get("Origin"), "/")
			if origin == "" || len(h.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range h.AllowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

// DispatchCampaign streams a campaign's deep links over a websocket, one
// per dispatcher delay. Closing the socket stops the run.
func (h *Handler) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	owner := middleware.CurrentUser(ctx).ID

	templateID := r.URL.Query().Get("templateId")
	if _, ok := campaign.FindTemplate(templateID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown template")
		return
	}
	_, plan, err := h.buildPlan(ctx, owner, templateID)
	if err != nil {
		log.Error().Err(err).Msg("campaign dispatch: build plan")
		writeError(w, http.StatusInternalServerError, "Server error while preparing campaign")
		return
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		log.Debug().Err(err).Msg("campaign dispatch: upgrade failed")
		return
	}
	defer conn.Close()

	runCtx, cancel := context.WithCancel(log.WithContext(context.Background()))
	defer cancel()

	// The client sends nothing; reading only notices the close.
	conn.SetReadLimit(wsReadLimit)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(frame interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(frame)
	}

	total := len(plan)
	sent, runErr := h.Dispatcher.Run(runCtx, plan, func(i int, d campaign.Dispatch) error {
		return write(DispatchFrame{Type: FrameDispatch, Index: i, Total: total, Dispatch: d})
	})

	cancelled := runErr != nil
	if errors.Is(runErr, context.Canceled) {
		log.Info().Int("sent", sent).Int("total", total).Msg("campaign dispatch cancelled by client")
	} else if runErr != nil {
		log.Warn().Err(runErr).Int("sent", sent).Msg("campaign dispatch interrupted")
	} else {
		_ = write(DoneFrame{Type: FrameDone, Sent: sent, Total: total})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(wsWriteWait))
	}

	h.publish(ctx, events.SubjectCampaignDispatched, campaignEvent{
		Owner:      owner.Hex(),
		TemplateID: templateID,
		Total:      total,
		Sent:       sent,
		Cancelled:  cancelled,
	})
}
