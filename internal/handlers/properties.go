package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/events"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type propertyPagination struct {
	Current int64 `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

type propertyEvent struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Title string `json:"title,omitempty"`
}

func newPropertyEvent(p *models.Property) propertyEvent {
	return propertyEvent{ID: p.ID.Hex(), Owner: p.Owner.Hex(), Title: p.Title}
}

func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID
	q := r.URL.Query()

	page, limit := pageParams(r, defaultPageSize, maxPageSize)
	query := services.PropertyQuery{
		Type:     strings.ToLower(q.Get("type")),
		Status:   strings.ToLower(q.Get("status")),
		Search:   strings.TrimSpace(q.Get("search")),
		MinPrice: queryFloat(r, "minPrice"),
		MaxPrice: queryFloat(r, "maxPrice"),
		SortBy:   q.Get("sortBy"),
		SortAsc:  sortAscending(r),
		Page:     page,
		Limit:    limit,
	}

	properties, total, err := h.Properties.List(ctx, owner, query)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list properties")
		writeError(w, http.StatusInternalServerError, "Server error while fetching properties")
		return
	}
	stats, err := h.Properties.StatusCounts(ctx, owner)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("property status counts")
		writeError(w, http.StatusInternalServerError, "Server error while fetching properties")
		return
	}

	pages := totalPages(total, limit)
	writeData(w, http.StatusOK, "Properties retrieved successfully", map[string]interface{}{
		"properties": properties,
		"pagination": propertyPagination{
			Current: page,
			Pages:   pages,
			Total:   total,
			HasNext: page < pages,
			HasPrev: page > 1,
		},
		"stats": stats,
	})
}

func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid property ID")
		return
	}

	property, err := h.Properties.Get(ctx, middleware.CurrentUser(ctx).ID, id)
	if err != nil {
		h.propertyLookupError(w, r, err, "Server error while fetching property")
		return
	}
	writeData(w, http.StatusOK, "Property retrieved successfully", property)
}

func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	owner := middleware.CurrentUser(ctx).ID

	in, err := parsePropertyInput(w, r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := services.ValidateImageUploads(in.Files); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.missingRequired() {
		writeError(w, http.StatusBadRequest, "Missing required fields: title, type, price, location, bathrooms, area")
		return
	}

	property := &models.Property{Owner: owner, Status: models.PropertyStatusAvailable}
	in.apply(property)
	if !models.IsPropertyType(property.Type) {
		writeError(w, http.StatusBadRequest, "Invalid property type. Must be: villa, apartment, house, or commercial")
		return
	}
	if !models.IsPropertyStatus(property.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status. Must be: available, sold, or pending")
		return
	}
	if err := validateProperty(property); err != nil {
		writeValidationError(w, err)
		return
	}

	// Stored images can only come from files sent with this request.
	existing := h.externalImages(in.ExistingImages)

	saved, err := h.saveImages(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("create property: store images")
		writeError(w, http.StatusInternalServerError, "Server error while uploading images")
		return
	}
	property.Images = h.keepImages(ctx, existing, saved)

	if err := h.Properties.Create(ctx, property); err != nil {
		h.removeImages(ctx, saved)
		log.Error().Err(err).Msg("create property")
		writeError(w, http.StatusInternalServerError, "Server error while creating property")
		return
	}

	h.publish(ctx, events.SubjectPropertyCreated, newPropertyEvent(property))
	writeData(w, http.StatusCreated, "Property created successfully", property)
}

func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	owner := middleware.CurrentUser(ctx).ID

	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid property ID")
		return
	}
	in, err := parsePropertyInput(w, r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := services.ValidateImageUploads(in.Files); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	property, err := h.Properties.Get(ctx, owner, id)
	if err != nil {
		h.propertyLookupError(w, r, err, "Server error while updating property")
		return
	}
	oldImages := property.Images

	in.apply(property)
	if !models.IsPropertyType(property.Type) {
		writeError(w, http.StatusBadRequest, "Invalid property type")
		return
	}
	if !models.IsPropertyStatus(property.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if err := validateProperty(property); err != nil {
		writeValidationError(w, err)
		return
	}

	// Without existingImages the current images stay; with it the client
	// chooses which of them to keep.
	existing := oldImages
	if in.HasExisting {
		existing = make([]string, 0, len(in.ExistingImages))
		for _, ref := range in.ExistingImages {
			if containsString(oldImages, ref) || h.isExternalImage(ref) {
				existing = append(existing, ref)
			}
		}
	}

	saved, err := h.saveImages(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("update property: store images")
		writeError(w, http.StatusInternalServerError, "Server error while uploading images")
		return
	}
	property.Images = h.keepImages(ctx, existing, saved)

	if err := h.Properties.Update(ctx, owner, property); err != nil {
		h.removeImages(ctx, saved)
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Property not found")
			return
		}
		log.Error().Err(err).Msg("update property")
		writeError(w, http.StatusInternalServerError, "Server error while updating property")
		return
	}

	var dropped []string
	for _, ref := range oldImages {
		if !containsString(property.Images, ref) {
			dropped = append(dropped, ref)
		}
	}
	h.removeImages(ctx, dropped)

	h.publish(ctx, events.SubjectPropertyUpdated, newPropertyEvent(property))
	writeData(w, http.StatusOK, "Property updated successfully", property)
}

func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := objectIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid property ID")
		return
	}

	property, err := h.Properties.Delete(ctx, middleware.CurrentUser(ctx).ID, id)
	if err != nil {
		h.propertyLookupError(w, r, err, "Server error while deleting property")
		return
	}
	h.removeImages(ctx, property.Images)

	h.publish(ctx, events.SubjectPropertyDeleted, newPropertyEvent(property))
	writeData(w, http.StatusOK, "Property deleted successfully", property)
}

func (h *Handler) PropertyStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview, types, err := h.Properties.Overview(ctx, middleware.CurrentUser(ctx).ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("property overview")
		writeError(w, http.StatusInternalServerError, "Server error while fetching statistics")
		return
	}
	if types == nil {
		types = []models.TypeBucket{}
	}
	writeData(w, http.StatusOK, "Statistics retrieved successfully", map[string]interface{}{
		"overview":         overview,
		"typeDistribution": types,
	})
}

func (h *Handler) propertyLookupError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Property not found")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, message)
}

// saveImages stores the uploaded files. On failure the files already stored
// are removed again.
func (h *Handler) saveImages(ctx context.Context, in *propertyInput) ([]string, error) {
	saved := make([]string, 0, len(in.Files))
	for _, fh := range in.Files {
		ref, err := h.Images.Save(ctx, fh)
		if err != nil {
			h.removeImages(ctx, saved)
			return nil, err
		}
		saved = append(saved, ref)
	}
	return saved, nil
}

// keepImages puts existing references first, then new ones, capped to the
// per-listing limit. New files that did not fit are removed.
func (h *Handler) keepImages(ctx context.Context, existing, saved []string) []string {
	kept := models.CapImageList(append(append([]string{}, existing...), saved...))
	var overflow []string
	for _, ref := range saved {
		if !containsString(kept, ref) {
			overflow = append(overflow, ref)
		}
	}
	h.removeImages(ctx, overflow)
	return kept
}

func (h *Handler) removeImages(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := h.Images.Remove(ctx, ref); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("image", ref).Msg("failed to remove image")
		}
	}
}

// isExternalImage reports whether ref is a remote URL outside the image
// store. Those can be linked freely since removing the listing leaves them alone.
func (h *Handler) isExternalImage(ref string) bool {
	lower := strings.ToLower(ref)
	remote := strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
	return remote && !h.Images.Owns(ref)
}

func (h *Handler) externalImages(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if h.isExternalImage(ref) {
			out = append(out, ref)
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
