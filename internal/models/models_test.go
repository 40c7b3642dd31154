package models

import (
	"encoding/json"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 DH"},
		{950, "950 DH"},
		{1000, "1,000 DH"},
		{700000, "700,000 DH"},
		{1250000, "1,250,000 DH"},
		{1234.5, "1,234.5 DH"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCapImageList(t *testing.T) {
	got := CapImageList([]string{"/uploads/properties/a.jpg", " ", "b.png", "c.gif", "d.webp"})
	want := []string{"/uploads/properties/a.jpg", "b.png", "c.gif"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("CapImageList = %v, want %v", got, want)
	}
	if got := CapImageList(nil); got == nil || len(got) != 0 {
		t.Errorf("CapImageList(nil) = %#v, want empty slice", got)
	}
}

func TestPropertyJSONIncludesFormattedPriceAndEmptyImages(t *testing.T) {
	p := Property{ID: primitive.NewObjectID(), Title: "Sea View Loft", Price: 700000}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["formattedPrice"] != "700,000 DH" {
		t.Errorf("formattedPrice = %v", out["formattedPrice"])
	}
	images, ok := out["images"].([]any)
	if !ok || len(images) != 0 {
		t.Errorf("images = %#v, want []", out["images"])
	}
	if out["title"] != "Sea View Loft" {
		t.Errorf("title = %v", out["title"])
	}
}

func TestUserResponseShape(t *testing.T) {
	id := int64(77)
	u := &User{ID: primitive.NewObjectID(), Name: "Ayman", Credit: 500, ConfirmedUserID: &id, ConfirmedToken: "ct"}
	resp := u.Response("jwt")

	if resp.Credit.ID != u.ID.Hex() || resp.Credit.Credit != 500 {
		t.Errorf("credit = %+v", resp.Credit)
	}
	if resp.Roles == nil || resp.Accounts == nil || resp.CustomCredit == nil {
		t.Error("list fields must never be nil")
	}
	if resp.Token != "jwt" || resp.ConfirmedToken != "ct" {
		t.Errorf("tokens = %q %q", resp.Token, resp.ConfirmedToken)
	}

	raw, _ := json.Marshal(resp)
	if !strings.Contains(string(raw), `"cr_account":null`) {
		t.Errorf("cr_account should serialize as null: %s", raw)
	}
}

func TestProspectNormalize(t *testing.T) {
	p := &Prospect{Name: "Sara"}
	p.Normalize()
	if p.Status != ProspectStatusActive || p.Source != ProspectSourceUnknown {
		t.Errorf("defaults = %q %q", p.Status, p.Source)
	}
	if p.Preferences.Locations == nil || p.MatchedProperties == nil {
		t.Error("slices must be initialised")
	}
}
