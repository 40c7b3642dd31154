package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/utils"
)

const (
	imagesField = "images"

	// Room for MaxPropertyImages files plus the text fields.
	maxPropertyBody = (models.MaxPropertyImages+1)*services.MaxImageSize + 1<<20
	multipartMemory = 8 << 20
)

// propertyInput is a create or update request. Nil fields were not sent.
type propertyInput struct {
	Title       *string
	Type        *string
	Price       *float64
	Location    *string
	Status      *string
	Bedrooms    *int
	Bathrooms   *int
	Area        *float64
	Description *string
	Features    []string
	HasFeatures bool

	// ExistingImages are references the client wants to keep.
	ExistingImages []string
	HasExisting    bool

	Files []*multipart.FileHeader
}

type propertyJSON struct {
	Title          *string          `json:"title"`
	Type           *string          `json:"type"`
	Price          *json.Number     `json:"price"`
	Location       *string          `json:"location"`
	Status         *string          `json:"status"`
	Bedrooms       *json.Number     `json:"bedrooms"`
	Bathrooms      *json.Number     `json:"bathrooms"`
	Area           *json.Number     `json:"area"`
	Description    *string          `json:"description"`
	Features       *json.RawMessage `json:"features"`
	ExistingImages *json.RawMessage `json:"existingImages"`
	Images         *json.RawMessage `json:"images"`
}

// parsePropertyInput accepts multipart/form-data (with image files) or JSON.
func parsePropertyInput(w http.ResponseWriter, r *http.Request) (*propertyInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return parsePropertyMultipart(w, r)
	}

	var body propertyJSON
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}

	in := &propertyInput{
		Title:       body.Title,
		Type:        body.Type,
		Location:    body.Location,
		Status:      body.Status,
		Description: body.Description,
	}
	var err error
	if in.Price, err = numberFloat("price", body.Price); err != nil {
		return nil, err
	}
	if in.Area, err = numberFloat("area", body.Area); err != nil {
		return nil, err
	}
	if in.Bedrooms, err = numberInt("bedrooms", body.Bedrooms); err != nil {
		return nil, err
	}
	if in.Bathrooms, err = numberInt("bathrooms", body.Bathrooms); err != nil {
		return nil, err
	}
	if body.Features != nil {
		in.Features, in.HasFeatures = rawList(*body.Features), true
	}
	switch {
	case body.ExistingImages != nil:
		in.ExistingImages, in.HasExisting = rawList(*body.ExistingImages), true
	case body.Images != nil:
		in.ExistingImages, in.HasExisting = rawList(*body.Images), true
	}
	return in, nil
}

func parsePropertyMultipart(w http.ResponseWriter, r *http.Request) (*propertyInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPropertyBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, services.ErrImageTooLarge
		}
		return nil, errors.New("Invalid form data")
	}
	form := r.MultipartForm

	in := &propertyInput{Files: form.File[imagesField]}
	text := func(key string) *string {
		if vals, ok := form.Value[key]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}

	in.Title = text("title")
	in.Type = text("type")
	in.Location = text("location")
	in.Status = text("status")
	in.Description = text("description")

	var err error
	if in.Price, err = formFloat("price", text("price")); err != nil {
		return nil, err
	}
	if in.Area, err = formFloat("area", text("area")); err != nil {
		return nil, err
	}
	if in.Bedrooms, err = formInt("bedrooms", text("bedrooms")); err != nil {
		return nil, err
	}
	if in.Bathrooms, err = formInt("bathrooms", text("bathrooms")); err != nil {
		return nil, err
	}
	if v := text("features"); v != nil {
		in.Features, in.HasFeatures = listValue(*v), true
	}
	if v := text("existingImages"); v != nil {
		in.ExistingImages, in.HasExisting = listValue(*v), true
	}
	return in, nil
}

// listValue reads a JSON array string, falling back to a comma list.
func listValue(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var out []string
		if json.Unmarshal([]byte(s), &out) == nil {
			return trimList(out)
		}
	}
	return trimList(strings.Split(s, ","))
}

// rawList accepts a JSON array or a string holding one.
func rawList(raw json.RawMessage) []string {
	var out []string
	if json.Unmarshal(raw, &out) == nil {
		return trimList(out)
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return listValue(s)
	}
	return []string{}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func invalidNumber(field string) error {
	return fieldError(field, field+" must be a number")
}

func formFloat(field string, v *string) (*float64, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
	if err != nil {
		return nil, invalidNumber(field)
	}
	return &f, nil
}

func formInt(field string, v *string) (*int, error) {
	f, err := formFloat(field, v)
	if err != nil || f == nil {
		return nil, err
	}
	n := int(*f)
	return &n, nil
}

func numberFloat(field string, n *json.Number) (*float64, error) {
	if n == nil {
		return nil, nil
	}
	s := n.String()
	return formFloat(field, &s)
}

func numberInt(field string, n *json.Number) (*int, error) {
	if n == nil {
		return nil, nil
	}
	s := n.String()
	return formInt(field, &s)
}

// propertyRules are the bounds every stored property must satisfy.
type propertyRules struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Location    string  `json:"location" validate:"required,max=200"`
	Bedrooms    int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int     `json:"bathrooms" validate:"gte=0"`
	Area        float64 `json:"area" validate:"gte=1"`
	Description string  `json:"description" validate:"max=1000"`
}

func validateProperty(p *models.Property) error {
	return utils.ValidateStruct(propertyRules{
		Title:       p.Title,
		Price:       p.Price,
		Location:    p.Location,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
		Description: p.Description,
	})
}

// apply copies the fields that were sent onto p.
func (in *propertyInput) apply(p *models.Property) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Type != nil {
		p.Type = strings.ToLower(strings.TrimSpace(*in.Type))
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.Status != nil {
		p.Status = strings.ToLower(strings.TrimSpace(*in.Status))
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	if in.Area != nil {
		p.Area = *in.Area
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.HasFeatures {
		p.Features = in.Features
	}
}

// missingRequired reports whether a create request lacks one of the
// mandatory fields. Zero price, bathrooms and area count as missing.
func (in *propertyInput) missingRequired() bool {
	blank := func(s *string) bool { return s == nil || strings.TrimSpace(*s) == "" }
	return blank(in.Title) || blank(in.Type) || blank(in.Location) ||
		in.Price == nil || *in.Price == 0 ||
		in.Bathrooms == nil || *in.Bathrooms == 0 ||
		in.Area == nil || *in.Area == 0
}
