package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/events"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProspectRequest is the body of create and update. Update only touches the
// fields that were sent.
type ProspectRequest struct {
	Name        *string             `json:"name"`
	Email       *string             `json:"email"`
	Phone       *string             `json:"phone"`
	Status      *string             `json:"status"`
	Source      *string             `json:"source"`
	Preferences *models.Preferences `json:"preferences"`
	Notes       *string             `json:"notes"`
	LastContact *time.Time          `json:"lastContact"`
}

type prospectRules struct {
	Name   string `json:"name" validate:"required,max=100"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"required,max=30"`
	Status string `json:"status" validate:"oneof=hot warm cold active"`
	Source string `json:"source" validate:"max=50"`
	Notes  string `json:"notes" validate:"max=1000"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=hot warm cold active"`
}

type InteractionRequest struct {
	Type        string `json:"type" validate:"required,oneof=call email whatsapp meeting note"`
	Description string `json:"description" validate:"required,max=500"`
}

type prospectPagination struct {
	CurrentPage  int64 `json:"currentPage"`
	TotalPages   int64 `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int64 `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

type prospectEvent struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Status string `json:"status,omitempty"`
}

func (req *ProspectRequest) apply(p *models.Prospect) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		p.Email = utils.NormalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		p.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		p.Status = strings.ToLower(strings.TrimSpace(*req.Status))
	}
	if req.Source != nil && strings.TrimSpace(*req.Source) != "" {
		p.Source = strings.TrimSpace(*req.Source)
	}
	if req.Preferences != nil {
		p.Preferences = *req.Preferences
		p.Preferences.PropertyTypes = lowerList(p.Preferences.PropertyTypes)
	}
	if req.Notes != nil {
		p.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.LastContact != nil {
		p.LastContact = req.LastContact.UTC()
	}
}

func validateProspect(p *models.Prospect) error {
	if err := utils.ValidateStruct(prospectRules{
		Name:   p.Name,
		Email:  p.Email,
		Phone:  p.Phone,
		Status: p.Status,
		Source: p.Source,
		Notes:  p.Notes,
	}); err != nil {
		return err
	}
	b := p.Preferences.Budget
	if b.Min < 0 || b.Max < 0 {
		return fieldError("preferences.budget", "Budget cannot be negative")
	}
	if b.Max > 0 && b.Min > b.Max {
		return fieldError("preferences.budget", "Minimum budget cannot be greater than maximum budget")
	}
	a := p.Preferences.Area
	if a.Max > 0 && a.Min > a.Max {
		return fieldError("preferences.area", "Minimum area cannot be greater than maximum area")
	}
	return nil
}

func lowerList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (h *Handler) ListProspects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	page, limit := pageParams(r, defaultPageSize, maxPageSize)
	query := services.ProspectQuery{
		Search:       strings.TrimSpace(q.Get("search")),
		Status:       strings.ToLower(q.Get("status")),
		Source:       q.Get("source"),
		PropertyType: strings.ToLower(q.Get("propertyType")),
		Location:     strings.TrimSpace(q.Get("location")),
		BudgetMin:    queryFloat(r, "budgetMin"),
		BudgetMax:    queryFloat(r, "budgetMax"),
		SortBy:       q.Get("sortBy"),
		SortAsc:      sortAscending(r),
		Page:         page,
		Limit:        limit,
	}

	prospects, total, err := h.Prospects.List(ctx, middleware.CurrentUser(ctx).ID, query)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list prospects")
		writeError(w, http.StatusInternalServerError, "Server error while fetching prospects")
		return
	}

	pages := totalPages(total, limit)
	writeData(w, http.StatusOK, "Prospects retrieved successfully", map[string]interface{}{
		"prospects": prospects,
		"pagination": prospectPagination{
			CurrentPage:  page,
			TotalPages:   pages,
			TotalItems:   total,
			ItemsPerPage: limit,
			HasNextPage:  page < pages,
			HasPrevPage:  page > 1,
		},
	})
}

func (h *Handler) ProspectStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.Prospects.Stats(ctx, middleware.CurrentUser(ctx).ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("prospect stats")
		writeError(w, http.StatusInternalServerError, "Server error while fetching statistics")
		return
	}
	writeData(w, http.StatusOK, "Statistics retrieved successfully", stats)
}

func (h *Handler) GetProspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid prospect ID")
		return
	}
	prospect, err := h.Prospects.Get(ctx, middleware.CurrentUser(ctx).ID, id)
	if err != nil {
		prospectLookupError(w, r, err, "Server error while fetching prospect")
		return
	}
	writeData(w, http.StatusOK, "Prospect retrieved successfully", prospect)
}

func (h *Handler) CreateProspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	owner := middleware.CurrentUser(ctx).ID

	var req ProspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prospect := &models.Prospect{UserID: owner, Status: models.ProspectStatusActive}
	req.apply(prospect)
	if err := validateProspect(prospect); err != nil {
		writeValidationError(w, err)
		return
	}

	taken, err := h.emailTaken(r, owner, prospect.Email, primitive.NilObjectID)
	if err != nil {
		log.Error().Err(err).Msg("create prospect: email lookup")
		writeError(w, http.StatusInternalServerError, "Server error while creating prospect")
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "A prospect with this email already exists")
		return
	}

	if err := h.Prospects.Create(ctx, prospect); err != nil {
		log.Error().Err(err).Msg("create prospect")
		writeError(w, http.StatusInternalServerError, "Server error while creating prospect")
		return
	}

	h.publish(ctx, events.SubjectProspectCreated, prospectEvent{ID: prospect.ID.Hex(), Owner: owner.Hex(), Status: prospect.Status})
	writeData(w, http.StatusCreated, "Prospect created successfully", prospect)
}

func (h *Handler) UpdateProspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	owner := middleware.CurrentUser(ctx).ID

	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid prospect ID")
		return
	}
	var req ProspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prospect, err := h.Prospects.Get(ctx, owner, id)
	if err != nil {
		prospectLookupError(w, r, err, "Server error while updating prospect")
		return
	}
	oldEmail := prospect.Email
	req.apply(prospect)
	if err := validateProspect(prospect); err != nil {
		writeValidationError(w, err)
		return
	}

	if prospect.Email != oldEmail {
		taken, err := h.emailTaken(r, owner, prospect.Email, prospect.ID)
		if err != nil {
			log.Error().Err(err).Msg("update prospect: email lookup")
			writeError(w, http.StatusInternalServerError, "Server error while updating prospect")
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "A prospect with this email already exists")
			return
		}
	}

	if err := h.Prospects.Update(ctx, owner, prospect); err != nil {
		prospectLookupError(w, r, err, "Server error while updating prospect")
		return
	}

	h.publish(ctx, events.SubjectProspectUpdated, prospectEvent{ID: prospect.ID.Hex(), Owner: owner.Hex(), Status: prospect.Status})
	writeData(w, http.StatusOK, "Prospect updated successfully", prospect)
}

// DeleteProspect is a soft delete: the prospect is deactivated and drops out
// of every read.
func (h *Handler) DeleteProspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid prospect ID")
		return
	}
	if err := h.Prospects.Deactivate(ctx, owner, id); err != nil {
		prospectLookupError(w, r, err, "Server error while deleting prospect")
		return
	}

	h.publish(ctx, events.SubjectProspectDeleted, prospectEvent{ID: id.Hex(), Owner: owner.Hex()})
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Prospect deleted successfully"})
}

func (h *Handler) UpdateProspectStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid prospect ID")
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := utils.ValidateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	prospect, err := h.Prospects.Get(ctx, owner, id)
	if err != nil {
		prospectLookupError(w, r, err, "Server error while updating status")
		return
	}
	prospect.Status = req.Status
	if err := h.Prospects.Update(ctx, owner, prospect); err != nil {
		prospectLookupError(w, r, err, "Server error while updating status")
		return
	}

	h.publish(ctx, events.SubjectProspectUpdated, prospectEvent{ID: prospect.ID.Hex(), Owner: owner.Hex(), Status: prospect.Status})
	writeData(w, http.StatusOK, "Status updated successfully", prospect)
}

func (h *Handler) AddInteraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid prospect ID")
		return
	}
	var req InteractionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Description = strings.TrimSpace(req.Description)
	if err := utils.ValidateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	prospect, err := h.Prospects.AddInteraction(ctx, owner, id, models.Interaction{
		Type:        req.Type,
		Description: req.Description,
		Date:        time.Now().UTC(),
	})
	if err != nil {
		prospectLookupError(w, r, err, "Server error while adding interaction")
		return
	}
	writeData(w, http.StatusOK, "Interaction added successfully", prospect)
}

// emailTaken reports whether another active prospect of owner already uses email.
func (h *Handler) emailTaken(r *http.Request, owner primitive.ObjectID, email string, self primitive.ObjectID) (bool, error) {
	existing, err := h.Prospects.FindByEmail(r.Context(), owner, email)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != self, nil
}

func prospectLookupError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Prospect not found")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, message)
}
