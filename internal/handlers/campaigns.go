package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/campaign"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/matching"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PreviewCampaignRequest struct {
	TemplateID string `json:"templateId"`
}

// loadMatches scores every active prospect of owner against every listing.
func (h *Handler) loadMatches(ctx context.Context, owner primitive.ObjectID) ([]models.Prospect, []matching.Match, error) {
	prospects, err := h.Prospects.Active(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	properties, err := h.Properties.All(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	return prospects, matching.FindMatches(prospects, properties), nil
}

// buildPlan resolves templateID and prepares the dispatches for owner.
func (h *Handler) buildPlan(ctx context.Context, owner primitive.ObjectID, templateID string) (campaign.Template, []campaign.Dispatch, error) {
	tmpl, _ := campaign.FindTemplate(templateID)
	prospects, matches, err := h.loadMatches(ctx, owner)
	if err != nil {
		return tmpl, nil, err
	}
	return tmpl, campaign.BuildPlan(tmpl, prospects, matches), nil
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "Templates retrieved successfully", campaign.Templates())
}

// GetMatches returns every match above the threshold, best first. With
// ?prospectId= only that prospect's matches are returned.
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, matches, err := h.loadMatches(ctx, middleware.CurrentUser(ctx).ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("load matches")
		writeError(w, http.StatusInternalServerError, "Server error while computing matches")
		return
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("prospectId")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid prospect ID")
			return
		}
		matches = matching.ForProspect(matches, &models.Prospect{ID: id})
	}
	if matches == nil {
		matches = []matching.Match{}
	}

	writeData(w, http.StatusOK, "Matches retrieved successfully", map[string]interface{}{
		"matches": matches,
		"summary": matching.Summarize(matches),
	})
}

// RefreshMatches stores each prospect's matched property ids.
func (h *Handler) RefreshMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	prospects, matches, err := h.loadMatches(ctx, owner)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("refresh matches: load")
		writeError(w, http.StatusInternalServerError, "Server error while computing matches")
		return
	}

	updated := 0
	for i := range prospects {
		own := matching.ForProspect(matches, &prospects[i])
		ids := make([]primitive.ObjectID, 0, len(own))
		for _, m := range own {
			ids = append(ids, m.Property.ID)
		}
		if err := h.Prospects.SetMatches(ctx, owner, prospects[i].ID, ids); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("prospect_id", prospects[i].ID.Hex()).Msg("refresh matches: save")
			writeError(w, http.StatusInternalServerError, "Server error while saving matches")
			return
		}
		updated++
	}

	writeData(w, http.StatusOK, "Matches refreshed successfully", map[string]interface{}{
		"updated": updated,
		"summary": matching.Summarize(matches),
	})
}

// PreviewCampaign returns the deep links a campaign would open, without pacing.
func (h *Handler) PreviewCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PreviewCampaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := campaign.FindTemplate(req.TemplateID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown template")
		return
	}

	tmpl, plan, err := h.buildPlan(ctx, middleware.CurrentUser(ctx).ID, req.TemplateID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("campaign preview")
		writeError(w, http.StatusInternalServerError, "Server error while preparing campaign")
		return
	}

	writeData(w, http.StatusOK, "Campaign prepared successfully", map[string]interface{}{
		"template":   tmpl,
		"dispatches": plan,
		"total":      len(plan),
	})
}
