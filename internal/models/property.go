package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxPropertyImages = 3

const (
	PropertyTypeVilla      = "villa"
	PropertyTypeApartment  = "apartment"
	PropertyTypeHouse      = "house"
	PropertyTypeCommercial = "commercial"

	PropertyStatusAvailable = "available"
	PropertyStatusSold      = "sold"
	PropertyStatusPending   = "pending"
)

var (
	PropertyTypes    = []string{PropertyTypeVilla, PropertyTypeApartment, PropertyTypeHouse, PropertyTypeCommercial}
	PropertyStatuses = []string{PropertyStatusAvailable, PropertyStatusSold, PropertyStatusPending}
)

type Property struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Type        string             `bson:"type" json:"type"`
	Price       float64            `bson:"price" json:"price"`
	Location    string             `bson:"location" json:"location"`
	Status      string             `bson:"status" json:"status"`
	Images      []string           `bson:"images" json:"images"`
	Bedrooms    int                `bson:"bedrooms" json:"bedrooms"`
	Bathrooms   int                `bson:"bathrooms" json:"bathrooms"`
	Area        float64            `bson:"area" json:"area"`
	Description string             `bson:"description" json:"description"`
	Features    []string           `bson:"features" json:"features"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	AddedDate   time.Time          `bson:"addedDate" json:"addedDate"`
	UpdatedDate time.Time          `bson:"updatedDate" json:"updatedDate"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MarshalJSON adds the formattedPrice virtual and never emits null slices.
func (p Property) MarshalJSON() ([]byte, error) {
	type plain Property
	out := struct {
		plain
		FormattedPrice string `json:"formattedPrice"`
	}{plain: plain(p), FormattedPrice: FormatPrice(p.Price)}
	if out.Images == nil {
		out.Images = []string{}
	}
	if out.Features == nil {
		out.Features = []string{}
	}
	return json.Marshal(out)
}

// CapImages enforces the per-listing image limit, keeping the first entries.
func (p *Property) CapImages() {
	p.Images = CapImageList(p.Images)
}

func CapImageList(images []string) []string {
	out := make([]string, 0, MaxPropertyImages)
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if len(out) == MaxPropertyImages {
			break
		}
		out = append(out, img)
	}
	return out
}

func IsPropertyType(t string) bool   { return contains(PropertyTypes, t) }
func IsPropertyStatus(s string) bool { return contains(PropertyStatuses, s) }

// PropertyStatusCounts is the per-status breakdown returned with listings.
type PropertyStatusCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Sold      int64 `json:"sold"`
	Pending   int64 `json:"pending"`
}

type PropertyOverview struct {
	Total          int64   `bson:"total" json:"total"`
	TotalValue     float64 `bson:"totalValue" json:"totalValue"`
	AvgPrice       float64 `bson:"avgPrice" json:"avgPrice"`
	AvailableCount int64   `bson:"availableCount" json:"availableCount"`
	SoldCount      int64   `bson:"soldCount" json:"soldCount"`
	PendingCount   int64   `bson:"pendingCount" json:"pendingCount"`
}

type TypeBucket struct {
	Type     string  `bson:"_id" json:"_id"`
	Count    int64   `bson:"count" json:"count"`
	AvgPrice float64 `bson:"avgPrice" json:"avgPrice"`
}

// FormatPrice renders an amount with en-US digit grouping and the DH suffix,
// e.g. 1250000 -> "1,250,000 DH".
func FormatPrice(amount float64) string {
	neg := amount < 0
	amount = math.Abs(amount)

	s := strconv.FormatFloat(amount, 'f', 3, 64)
	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	b.WriteString(" DH")
	return b.String()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
