// Package campaign turns prospect/property matches into personalised
// WhatsApp deep links and paces their delivery.
package campaign

import (
	"strconv"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/matching"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
)

const (
	TemplatePropertyMatch = "property_match"
	TemplateBulkUpdate    = "bulk_update"
	TemplateMarketUpdate  = "market_update"
)

type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

var templates = []Template{
	{
		ID:   TemplatePropertyMatch,
		Name: "Property Match",
		Message: `Hello {{prospectName}},

I found a perfect property that matches your preferences:

🏡 {{propertyTitle}}
📍 {{propertyLocation}}
💰 {{propertyPrice}}
🛏️ {{bedrooms}} bedrooms, 🚿 {{bathrooms}} bathrooms
📐 {{area}} m²

This property fits your budget and preferences. Would you like to schedule a viewing?

Best regards,
Your Real Estate Agent`,
	},
	{
		ID:   TemplateBulkUpdate,
		Name: "Bulk Property Update",
		Message: `Hello {{prospectName}},

🏠 NEW PROPERTIES ALERT!

We have {{propertyCount}} new properties that match your criteria:
• Budget range: {{budgetRange}}
• Preferred locations: {{locations}}
• Property types: {{propertyTypes}}

Reply "YES" to receive the full list with photos and details.

Best regards,
Your Real Estate Agent`,
	},
	{
		ID:   TemplateMarketUpdate,
		Name: "Market Update",
		Message: `Hello {{prospectName}},

📈 MARKET UPDATE

Current real estate trends in your preferred areas:
• Average prices are stable
• New inventory available
• Best time to buy/invest

We have properties matching your {{budgetRange}} budget in {{locations}}.

Contact us for personalized recommendations!

Best regards,
Your Real Estate Agent`,
	},
}

// Templates returns a copy of the built-in message templates.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

func FindTemplate(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Personalize renders tmpl for one prospect. property_match uses the best
// match, every other template uses the aggregated bulk fields. matches must
// belong to the prospect and be sorted best first.
func Personalize(tmpl Template, prospect *models.Prospect, matches []matching.Match) string {
	if tmpl.ID == TemplatePropertyMatch && len(matches) > 0 {
		return personalizeIndividual(tmpl.Message, prospect, matches[0].Property)
	}
	return personalizeBulk(tmpl.Message, prospect, len(matches))
}

func personalizeIndividual(message string, prospect *models.Prospect, property *models.Property) string {
	return strings.NewReplacer(
		"{{prospectName}}", prospect.Name,
		"{{propertyTitle}}", property.Title,
		"{{propertyLocation}}", property.Location,
		"{{propertyPrice}}", models.FormatPrice(property.Price),
		"{{bedrooms}}", strconv.Itoa(property.Bedrooms),
		"{{bathrooms}}", strconv.Itoa(property.Bathrooms),
		"{{area}}", strconv.FormatFloat(property.Area, 'f', -1, 64),
	).Replace(message)
}

func personalizeBulk(message string, prospect *models.Prospect, count int) string {
	prefs := prospect.Preferences
	return strings.NewReplacer(
		"{{prospectName}}", prospect.Name,
		"{{propertyCount}}", strconv.Itoa(count),
		"{{budgetRange}}", BudgetRange(prefs.Budget),
		"{{locations}}", joinOr(prefs.Locations, "Various locations"),
		"{{propertyTypes}}", joinOr(prefs.PropertyTypes, "All types"),
	).Replace(message)
}

func BudgetRange(budget models.Range) string {
	return models.FormatPrice(budget.Min) + " - " + models.FormatPrice(budget.Max)
}

func joinOr(values []string, fallback string) string {
	joined := strings.Join(values, ", ")
	if joined == "" {
		return fallback
	}
	return joined
}
