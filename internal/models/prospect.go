package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProspectStatusHot    = "hot"
	ProspectStatusWarm   = "warm"
	ProspectStatusCold   = "cold"
	ProspectStatusActive = "active"

	ProspectSourceUnknown = "unknown"
	ProspectSourceImport  = "import"
)

var (
	ProspectStatuses = []string{ProspectStatusHot, ProspectStatusWarm, ProspectStatusCold, ProspectStatusActive}
	InteractionTypes = []string{"call", "email", "whatsapp", "meeting", "note"}
)

type Prospect struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	UserID            primitive.ObjectID   `bson:"userId" json:"userId"`
	Name              string               `bson:"name" json:"name"`
	Email             string               `bson:"email" json:"email"`
	Phone             string               `bson:"phone" json:"phone"`
	Status            string               `bson:"status" json:"status"`
	Source            string               `bson:"source" json:"source"`
	Preferences       Preferences          `bson:"preferences" json:"preferences"`
	MatchedProperties []primitive.ObjectID `bson:"matchedProperties" json:"matchedProperties"`
	LastContact       time.Time            `bson:"lastContact" json:"lastContact"`
	Notes             string               `bson:"notes" json:"notes"`
	Interactions      []Interaction        `bson:"interactions" json:"interactions"`
	IsActive          bool                 `bson:"isActive" json:"isActive"`
	CreatedAt         time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type Preferences struct {
	Budget        Range    `bson:"budget" json:"budget"`
	PropertyTypes []string `bson:"propertyTypes" json:"propertyTypes"`
	Locations     []string `bson:"locations" json:"locations"`
	Bedrooms      int      `bson:"bedrooms" json:"bedrooms"`
	Bathrooms     int      `bson:"bathrooms" json:"bathrooms"`
	Area          Range    `bson:"area" json:"area"`
	Features      []string `bson:"features" json:"features"`
}

// Range is a min/max pair. A zero Max means no upper bound.
type Range struct {
	Min float64 `bson:"min" json:"min"`
	Max float64 `bson:"max" json:"max"`
}

type Interaction struct {
	Type        string    `bson:"type" json:"type"`
	Description string    `bson:"description" json:"description"`
	Date        time.Time `bson:"date" json:"date"`
}

// Normalize fills the defaults a freshly created prospect must carry.
func (p *Prospect) Normalize() {
	if p.Status == "" {
		p.Status = ProspectStatusActive
	}
	if p.Source == "" {
		p.Source = ProspectSourceUnknown
	}
	if p.Preferences.PropertyTypes == nil {
		p.Preferences.PropertyTypes = []string{}
	}
	if p.Preferences.Locations == nil {
		p.Preferences.Locations = []string{}
	}
	if p.Preferences.Features == nil {
		p.Preferences.Features = []string{}
	}
	if p.MatchedProperties == nil {
		p.MatchedProperties = []primitive.ObjectID{}
	}
	if p.Interactions == nil {
		p.Interactions = []Interaction{}
	}
}

func IsProspectStatus(s string) bool  { return contains(ProspectStatuses, s) }
func IsInteractionType(s string) bool { return contains(InteractionTypes, s) }

type SourceCount struct {
	Source string `bson:"_id" json:"_id"`
	Count  int64  `bson:"count" json:"count"`
}

type ProspectStats struct {
	Total           int64         `bson:"total" json:"total"`
	Hot             int64         `bson:"hot" json:"hot"`
	Warm            int64         `bson:"warm" json:"warm"`
	Cold            int64         `bson:"cold" json:"cold"`
	Active          int64         `bson:"active" json:"active"`
	WithMatches     int64         `bson:"withMatches" json:"withMatches"`
	AvgBudgetMin    float64       `bson:"avgBudgetMin" json:"avgBudgetMin"`
	AvgBudgetMax    float64       `bson:"avgBudgetMax" json:"avgBudgetMax"`
	SourceBreakdown []SourceCount `bson:"sourceBreakdown" json:"sourceBreakdown"`
	RecentProspects int64         `bson:"recentProspects" json:"recentProspects"`
	StaleProspects  int64         `bson:"staleProspects" json:"staleProspects"`
}
