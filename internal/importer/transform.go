package importer

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/utils"
)

// RowError reports why a data row was left out. Row is 1-based and does not
// count the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

type ProspectRecord struct {
	Row      int
	Prospect models.Prospect
}

type PropertyRecord struct {
	Row      int
	Property models.Property
}

type ProspectResult struct {
	Records []ProspectRecord
	Errors  []RowError
}

type PropertyResult struct {
	Records []PropertyRecord
	Errors  []RowError
}

// TransformProspects converts every row. Rows missing a required field are
// reported and skipped; the others are returned ready to insert.
func TransformProspects(t *Table, m Mapping) ProspectResult {
	res := ProspectResult{Records: make([]ProspectRecord, 0, len(t.Rows))}
	for i, row := range t.Rows {
		n := i + 1
		get := cellGetter(row, m)

		p := models.Prospect{
			Name:   get("name"),
			Email:  utils.NormalizeEmail(get("email")),
			Phone:  get("phone"),
			Status: strings.ToLower(get("status")),
			Source: get("source"),
			Preferences: models.Preferences{
				Budget:        models.Range{Min: float64(parseInt(get("budgetMin"))), Max: float64(parseInt(get("budgetMax")))},
				PropertyTypes: splitList(get("propertyTypes"), true),
				Locations:     splitList(get("locations"), false),
				Bedrooms:      parseInt(get("bedrooms")),
				Bathrooms:     parseInt(get("bathrooms")),
				Area:          models.Range{Min: float64(parseInt(get("areaMin"))), Max: float64(parseInt(get("areaMax")))},
				Features:      splitList(get("features"), false),
			},
			Notes:    get("notes"),
			IsActive: true,
		}
		if !models.IsProspectStatus(p.Status) {
			p.Status = models.ProspectStatusActive
		}
		if p.Source == "" {
			p.Source = models.ProspectSourceImport
		}

		var errs []RowError
		if p.Name == "" {
			errs = append(errs, RowError{n, "Name is required"})
		}
		if p.Email == "" {
			errs = append(errs, RowError{n, "Email is required"})
		} else if _, err := mail.ParseAddress(p.Email); err != nil {
			errs = append(errs, RowError{n, "Email is invalid"})
		}
		if p.Phone == "" {
			errs = append(errs, RowError{n, "Phone is required"})
		}

		if len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		p.Normalize()
		res.Records = append(res.Records, ProspectRecord{Row: n, Prospect: p})
	}
	return res
}

// TransformProperties converts every row. Unknown types fall back to house and
// unknown statuses to available; rows without title, price, location or area
// are skipped.
func TransformProperties(t *Table, m Mapping) PropertyResult {
	res := PropertyResult{Records: make([]PropertyRecord, 0, len(t.Rows))}
	for i, row := range t.Rows {
		n := i + 1
		get := cellGetter(row, m)

		p := models.Property{
			Title:       get("title"),
			Type:        strings.ToLower(get("type")),
			Price:       parseFloat(get("price")),
			Location:    get("location"),
			Area:        float64(parseInt(get("area"))),
			Bathrooms:   parseInt(get("bathrooms")),
			Bedrooms:    parseInt(get("bedrooms")),
			Status:      strings.ToLower(get("status")),
			Description: get("description"),
			Features:    splitList(get("features"), false),
			Images:      remoteImages(get("image1"), get("image2"), get("image3")),
		}
		if !models.IsPropertyType(p.Type) {
			p.Type = models.PropertyTypeHouse
		}
		if !models.IsPropertyStatus(p.Status) {
			p.Status = models.PropertyStatusAvailable
		}
		if p.Bathrooms <= 0 {
			p.Bathrooms = 1
		}
		if p.Bedrooms < 0 {
			p.Bedrooms = 0
		}

		var errs []RowError
		if p.Title == "" {
			errs = append(errs, RowError{n, "Title is required"})
		} else if len([]rune(p.Title)) > 100 {
			errs = append(errs, RowError{n, "Title cannot exceed 100 characters"})
		}
		if p.Price <= 0 {
			errs = append(errs, RowError{n, "Valid price is required"})
		}
		if p.Location == "" {
			errs = append(errs, RowError{n, "Location is required"})
		}
		if p.Area <= 0 {
			errs = append(errs, RowError{n, "Valid area is required"})
		}
		if len([]rune(p.Description)) > 1000 {
			errs = append(errs, RowError{n, "Description cannot exceed 1000 characters"})
		}

		if len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		res.Records = append(res.Records, PropertyRecord{Row: n, Property: p})
	}
	return res
}

func cellGetter(row Row, m Mapping) func(field string) string {
	return func(field string) string {
		header, ok := m[field]
		if !ok || header == "" {
			return ""
		}
		return strings.TrimSpace(row[header])
	}
}

func splitList(s string, lower bool) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lower {
			part = strings.ToLower(part)
		}
		out = append(out, part)
	}
	return out
}

// remoteImages keeps the http(s) URLs among the image cells. Paths into the
// upload directory are dropped since an import carries no files.
func remoteImages(cells ...string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		lc := strings.ToLower(c)
		if strings.HasPrefix(lc, "https://") || strings.HasPrefix(lc, "http://") {
			out = append(out, c)
		}
	}
	return models.CapImageList(out)
}

var (
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// parseInt reads the leading integer of s, so "3 bedrooms" is 3 and "1,200"
// is 1. Anything unparsable is 0.
func parseInt(s string) int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}
