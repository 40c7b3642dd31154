package services

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerScope restricts a query to the documents one user owns. Every store
// method builds its filter through a scope so no query can leave it out.
type OwnerScope struct {
	field      string
	owner      primitive.ObjectID
	activeOnly bool
}

func PropertyScope(owner primitive.ObjectID) OwnerScope {
	return OwnerScope{field: "owner", owner: owner}
}

// ProspectScope also hides soft-deleted prospects.
func ProspectScope(owner primitive.ObjectID) OwnerScope {
	return OwnerScope{field: "userId", owner: owner, activeOnly: true}
}

// Filter returns a copy of extra with the owner constraint applied. Keys in
// extra that collide with the owner keys are overwritten.
func (s OwnerScope) Filter(extra bson.M) bson.M {
	f := make(bson.M, len(extra)+2)
	for k, v := range extra {
		f[k] = v
	}
	f[s.field] = s.owner
	if s.activeOnly {
		f["isActive"] = true
	}
	return f
}

// ByID is Filter for a single document.
func (s OwnerScope) ByID(id primitive.ObjectID) bson.M {
	return s.Filter(bson.M{"_id": id})
}

// containsFold matches values containing term, ignoring case. term is quoted
// so user input never reaches the regex engine as a pattern.
func containsFold(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}
