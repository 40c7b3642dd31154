package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/utils"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxJSONBody = 1 << 20

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	Warning string      `json:"warning,omitempty"`

	// Set only when a provider call failed during registration.
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// writeValidationError answers 400 with field level messages when err came
// from utils.ValidateStruct, and with err's text otherwise.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs utils.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, Response{Message: "Validation failed", Errors: verrs})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func fieldError(field, message string) utils.ValidationErrors {
	return utils.ValidationErrors{{Field: field, Message: message}}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("Invalid request body")
	}
	return nil
}

func objectIDParam(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	return id, err == nil
}

// pageParams reads page and limit, falling back to page 1 and def. limit is
// capped at max.
func pageParams(r *http.Request, def, max int64) (page, limit int64) {
	page, limit = 1, def
	q := r.URL.Query()
	if v, err := strconv.ParseInt(q.Get("page"), 10, 64); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

func totalPages(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// queryFloat returns nil when the parameter is missing or not a number.
func queryFloat(r *http.Request, key string) *float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func sortAscending(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("sortOrder"), "asc")
}
