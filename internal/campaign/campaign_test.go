package campaign

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/matching"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func fixtures() ([]models.Prospect, []models.Property) {
	prospects := []models.Prospect{
		{
			ID:    primitive.NewObjectID(),
			Name:  "Sara Bennani",
			Phone: "+212 600-11-22-33",
			Preferences: models.Preferences{
				Budget:        models.Range{Min: 500000, Max: 900000},
				PropertyTypes: []string{"apartment"},
				Locations:     []string{"Casablanca"},
				Bedrooms:      2,
			},
		},
		{
			ID:    primitive.NewObjectID(),
			Name:  "Nobody Matches",
			Phone: "+212611111111",
			Preferences: models.Preferences{
				Budget:        models.Range{Min: 1, Max: 2},
				PropertyTypes: []string{"villa"},
				Bedrooms:      9,
			},
		},
	}
	properties := []models.Property{
		{ID: primitive.NewObjectID(), Title: "Sea View Loft", Type: "apartment", Price: 700000, Location: "Ain Diab, Casablanca", Bedrooms: 2, Bathrooms: 1, Area: 60},
		{ID: primitive.NewObjectID(), Title: "Family Flat", Type: "apartment", Price: 850000, Location: "Rabat", Bedrooms: 3, Bathrooms: 2, Area: 95.5},
	}
	return prospects, properties
}

func TestPersonalizePropertyMatchUsesBestMatch(t *testing.T) {
	prospects, properties := fixtures()
	matches := matching.FindMatches(prospects, properties)
	own := matching.ForProspect(matches, &prospects[0])

	tmpl, ok := FindTemplate(TemplatePropertyMatch)
	if !ok {
		t.Fatal("property_match template missing")
	}
	msg := Personalize(tmpl, &prospects[0], own)

	for _, want := range []string{"Hello Sara Bennani,", "🏡 Sea View Loft", "📍 Ain Diab, Casablanca", "💰 700,000 DH\n", "🛏️ 2 bedrooms, 🚿 1 bathrooms", "📐 60 m²"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "{{") {
		t.Errorf("unreplaced placeholder:\n%s", msg)
	}
}

func TestPersonalizeBulkDefaults(t *testing.T) {
	tmpl, _ := FindTemplate(TemplateBulkUpdate)
	p := &models.Prospect{Name: "Omar", Preferences: models.Preferences{Budget: models.Range{Min: 1000000, Max: 2500000}}}

	msg := Personalize(tmpl, p, make([]matching.Match, 3))
	for _, want := range []string{
		"We have 3 new properties",
		"Budget range: 1,000,000 DH - 2,500,000 DH",
		"Preferred locations: Various locations",
		"Property types: All types",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("+212 (600) 11-22-33", "Hello Sara & co\nline two")

	if !strings.HasPrefix(link, "https://wa.me/212600112233?text=") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	if strings.Contains(link, "+") {
		t.Errorf("spaces must be encoded as %%20: %s", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := u.Query().Get("text"); got != "Hello Sara & co\nline two" {
		t.Errorf("decoded text = %q", got)
	}
}

func TestEncodeComponentMatchesBrowser(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hello world", "Hello%20world"},
		{"Villa (3 ch.)! 50% off*", "Villa%20(3%20ch.)!%2050%25%20off*"},
		{"l'offre ~ a+b=c & d/e?", "l'offre%20~%20a%2Bb%3Dc%20%26%20d%2Fe%3F"},
		{"prix: 1 200 000 DH", "prix%3A%201%20200%20000%20DH"},
		{"%21 stays literal", "%2521%20stays%20literal"},
		{"café", "caf%C3%A9"},
	}
	for _, tt := range tests {
		if got := encodeComponent(tt.in); got != tt.want {
			t.Errorf("encodeComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPlanSkipsProspectsWithoutMatches(t *testing.T) {
	prospects, properties := fixtures()
	matches := matching.FindMatches(prospects, properties)
	tmpl, _ := FindTemplate(TemplateMarketUpdate)

	plan := BuildPlan(tmpl, prospects, matches)
	if len(plan) != 1 {
		t.Fatalf("plan has %d entries, want 1", len(plan))
	}
	d := plan[0]
	if d.ProspectID != prospects[0].ID.Hex() || d.MatchCount != 2 || d.BestScore != 100 {
		t.Errorf("dispatch = %+v", d)
	}
	if !strings.HasPrefix(d.Link, "https://wa.me/212600112233?text=") {
		t.Errorf("link = %s", d.Link)
	}
	if !strings.Contains(d.Message, "in Casablanca.") {
		t.Errorf("message = %s", d.Message)
	}
}

func TestDispatcherRunPacesAndCompletes(t *testing.T) {
	plan := []Dispatch{{ProspectID: "a"}, {ProspectID: "b"}, {ProspectID: "c"}}
	d := NewDispatcher(20 * time.Millisecond)

	var seen []string
	start := time.Now()
	sent, err := d.Run(context.Background(), plan, func(i int, dispatch Dispatch) error {
		seen = append(seen, dispatch.ProspectID)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 3 || strings.Join(seen, "") != "abc" {
		t.Errorf("sent=%d seen=%v", sent, seen)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected two pauses between three dispatches, took %v", elapsed)
	}
}

func TestDispatcherRunStopsOnCancel(t *testing.T) {
	plan := []Dispatch{{ProspectID: "a"}, {ProspectID: "b"}, {ProspectID: "c"}}
	d := NewDispatcher(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	sent, err := d.Run(ctx, plan, func(i int, dispatch Dispatch) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
}

func TestDispatcherRunStopsOnEmitError(t *testing.T) {
	boom := errors.New("connection closed")
	sent, err := NewDispatcher(0).Run(context.Background(), []Dispatch{{}, {}}, func(i int, _ Dispatch) error {
		if i == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) || sent != 1 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
}
