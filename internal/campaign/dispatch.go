package campaign

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/matching"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/utils"
)

const DefaultDelay = time.Second

// Dispatch is one prepared message: the user opens Link to send it from
// their own WhatsApp session.
type Dispatch struct {
	ProspectID   string `json:"prospectId"`
	ProspectName string `json:"prospectName"`
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	Link         string `json:"link"`
	MatchCount   int    `json:"matchCount"`
	BestScore    int    `json:"bestScore"`
}

// WhatsAppLink builds a wa.me deep link. Everything but digits is dropped from phone.
func WhatsAppLink(phone, text string) string {
	return "https://wa.me/" + utils.DigitsOnly(phone) + "?text=" + encodeComponent(text)
}

// componentUnescape turns url.QueryEscape output into encodeURIComponent
// output: spaces as %20 and !'()* left as they are.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent percent-encodes like a browser's encodeURIComponent.
func encodeComponent(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

// BuildPlan prepares one dispatch per prospect that has at least one match,
// in prospect order. Prospects without a usable phone number are skipped.
func BuildPlan(tmpl Template, prospects []models.Prospect, matches []matching.Match) []Dispatch {
	plan := make([]Dispatch, 0)
	for i := range prospects {
		prospect := &prospects[i]
		own := matching.ForProspect(matches, prospect)
		if len(own) == 0 {
			continue
		}
		if utils.DigitsOnly(prospect.Phone) == "" {
			continue
		}
		message := Personalize(tmpl, prospect, own)
		plan = append(plan, Dispatch{
			ProspectID:   prospect.ID.Hex(),
			ProspectName: prospect.Name,
			Phone:        prospect.Phone,
			Message:      message,
			Link:         WhatsAppLink(prospect.Phone, message),
			MatchCount:   len(own),
			BestScore:    own[0].Score,
		})
	}
	return plan
}

// Dispatcher emits a plan one entry at a time with a fixed pause between entries.
type Dispatcher struct {
	Delay time.Duration
}

func NewDispatcher(delay time.Duration) *Dispatcher {
	if delay < 0 {
		delay = 0
	}
	return &Dispatcher{Delay: delay}
}

// Run calls emit for every dispatch in order and returns how many were
// emitted. It stops early when ctx is cancelled or emit fails.
func (d *Dispatcher) Run(ctx context.Context, plan []Dispatch, emit func(index int, dispatch Dispatch) error) (int, error) {
	sent := 0
	for i, dispatch := range plan {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := emit(i, dispatch); err != nil {
			return sent, err
		}
		sent++

		if i == len(plan)-1 || d.Delay == 0 {
			continue
		}
		timer := time.NewTimer(d.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return sent, ctx.Err()
		case <-timer.C:
		}
	}
	return sent, nil
}
