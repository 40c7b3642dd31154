package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/database"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	recentWindow = 7 * 24 * time.Hour
	staleWindow  = 30 * 24 * time.Hour
)

// prospectSortFields maps accepted sortBy values to document fields.
// addedDate is what older clients send.
var prospectSortFields = map[string]string{
	"addedDate":   "createdAt",
	"createdAt":   "createdAt",
	"updatedAt":   "updatedAt",
	"name":        "name",
	"email":       "email",
	"status":      "status",
	"lastContact": "lastContact",
}

type ProspectQuery struct {
	Search       string
	Status       string
	Source       string
	PropertyType string
	Location     string
	BudgetMin    *float64
	BudgetMax    *float64
	SortBy       string
	SortAsc      bool
	Page         int64
	Limit        int64
}

type ProspectStore interface {
	List(ctx context.Context, owner primitive.ObjectID, q ProspectQuery) ([]models.Prospect, int64, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Prospect, error)
	FindByEmail(ctx context.Context, owner primitive.ObjectID, email string) (*models.Prospect, error)
	Create(ctx context.Context, p *models.Prospect) error
	Update(ctx context.Context, owner primitive.ObjectID, p *models.Prospect) error
	Deactivate(ctx context.Context, owner, id primitive.ObjectID) error
	Stats(ctx context.Context, owner primitive.ObjectID) (models.ProspectStats, error)
	Active(ctx context.Context, owner primitive.ObjectID) ([]models.Prospect, error)
	AddInteraction(ctx context.Context, owner, id primitive.ObjectID, in models.Interaction) (*models.Prospect, error)
	SetMatches(ctx context.Context, owner, id primitive.ObjectID, propertyIDs []primitive.ObjectID) error
}

func ProspectFilter(owner primitive.ObjectID, q ProspectQuery) bson.M {
	f := bson.M{}
	if q.Status != "" && q.Status != "all" {
		f["status"] = q.Status
	}
	if q.Source != "" && q.Source != "all" {
		f["source"] = q.Source
	}
	if q.PropertyType != "" && q.PropertyType != "all" {
		f["preferences.propertyTypes"] = q.PropertyType
	}
	if q.Location != "" {
		f["preferences.locations"] = containsFold(q.Location)
	}
	if q.BudgetMin != nil {
		f["preferences.budget.min"] = bson.M{"$gte": *q.BudgetMin}
	}
	if q.BudgetMax != nil {
		f["preferences.budget.max"] = bson.M{"$lte": *q.BudgetMax}
	}
	if q.Search != "" {
		re := containsFold(q.Search)
		f["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"phone": re},
			bson.M{"notes": re},
			bson.M{"preferences.locations": re},
		}
	}
	return ProspectScope(owner).Filter(f)
}

func ProspectSort(q ProspectQuery) bson.D {
	field, ok := prospectSortFields[q.SortBy]
	if !ok {
		field = "createdAt"
	}
	dir := -1
	if q.SortAsc {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

type MongoProspectStore struct {
	col *mongo.Collection
}

func NewProspectStore(db *mongo.Database) *MongoProspectStore {
	return &MongoProspectStore{col: db.Collection(database.ProspectsCollection)}
}

func (s *MongoProspectStore) List(ctx context.Context, owner primitive.ObjectID, q ProspectQuery) ([]models.Prospect, int64, error) {
	filter := ProspectFilter(owner, q)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count prospects: %w", err)
	}

	opts := options.Find().
		SetSort(ProspectSort(q)).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find prospects: %w", err)
	}
	prospects := make([]models.Prospect, 0, q.Limit)
	if err := cur.All(ctx, &prospects); err != nil {
		return nil, 0, fmt.Errorf("decode prospects: %w", err)
	}
	return prospects, total, nil
}

func (s *MongoProspectStore) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Prospect, error) {
	var p models.Prospect
	if err := s.col.FindOne(ctx, ProspectScope(owner).ByID(id)).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *MongoProspectStore) FindByEmail(ctx context.Context, owner primitive.ObjectID, email string) (*models.Prospect, error) {
	var p models.Prospect
	if err := s.col.FindOne(ctx, ProspectScope(owner).Filter(bson.M{"email": email})).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *MongoProspectStore) Create(ctx context.Context, p *models.Prospect) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.LastContact.IsZero() {
		p.LastContact = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true
	p.Normalize()

	if _, err := s.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert prospect: %w", err)
	}
	return nil
}

func (s *MongoProspectStore) Update(ctx context.Context, owner primitive.ObjectID, p *models.Prospect) error {
	p.UserID = owner
	p.IsActive = true
	p.UpdatedAt = time.Now().UTC()
	p.Normalize()

	res, err := s.col.ReplaceOne(ctx, ProspectScope(owner).ByID(p.ID), p)
	if err != nil {
		return fmt.Errorf("update prospect: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes the prospect. It disappears from every scoped read.
func (s *MongoProspectStore) Deactivate(ctx context.Context, owner, id primitive.ObjectID) error {
	res, err := s.col.UpdateOne(ctx, ProspectScope(owner).ByID(id), bson.M{
		"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("deactivate prospect: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProspectStore) Stats(ctx context.Context, owner primitive.ObjectID) (models.ProspectStats, error) {
	stats := models.ProspectStats{SourceBreakdown: []models.SourceCount{}}
	scope := ProspectScope(owner)
	match := bson.D{{Key: "$match", Value: scope.Filter(nil)}}

	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"total":  bson.M{"$sum": 1},
			"hot":    countIf("status", models.ProspectStatusHot),
			"warm":   countIf("status", models.ProspectStatusWarm),
			"cold":   countIf("status", models.ProspectStatusCold),
			"active": countIf("status", models.ProspectStatusActive),
			"withMatches": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$size": bson.M{"$ifNull": bson.A{"$matchedProperties", bson.A{}}}}, 0}}, 1, 0,
			}}},
			"avgBudgetMin": bson.M{"$avg": "$preferences.budget.min"},
			"avgBudgetMax": bson.M{"$avg": "$preferences.budget.max"},
		}}},
	})
	if err != nil {
		return stats, fmt.Errorf("aggregate prospect stats: %w", err)
	}
	var rows []models.ProspectStats
	if err := cur.All(ctx, &rows); err != nil {
		return stats, fmt.Errorf("decode prospect stats: %w", err)
	}
	if len(rows) > 0 {
		stats = rows[0]
		stats.SourceBreakdown = []models.SourceCount{}
	}

	cur, err = s.col.Aggregate(ctx, mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.M{"_id": "$source", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return stats, fmt.Errorf("aggregate sources: %w", err)
	}
	if err := cur.All(ctx, &stats.SourceBreakdown); err != nil {
		return stats, fmt.Errorf("decode sources: %w", err)
	}

	now := time.Now().UTC()
	if stats.RecentProspects, err = s.col.CountDocuments(ctx, scope.Filter(bson.M{
		"createdAt": bson.M{"$gte": now.Add(-recentWindow)},
	})); err != nil {
		return stats, fmt.Errorf("count recent prospects: %w", err)
	}
	if stats.StaleProspects, err = s.col.CountDocuments(ctx, scope.Filter(bson.M{
		"lastContact": bson.M{"$lt": now.Add(-staleWindow)},
	})); err != nil {
		return stats, fmt.Errorf("count stale prospects: %w", err)
	}
	return stats, nil
}

func (s *MongoProspectStore) Active(ctx context.Context, owner primitive.ObjectID) ([]models.Prospect, error) {
	cur, err := s.col.Find(ctx, ProspectScope(owner).Filter(nil), options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find active prospects: %w", err)
	}
	prospects := make([]models.Prospect, 0)
	if err := cur.All(ctx, &prospects); err != nil {
		return nil, fmt.Errorf("decode prospects: %w", err)
	}
	return prospects, nil
}

// AddInteraction appends in and moves lastContact to its date.
func (s *MongoProspectStore) AddInteraction(ctx context.Context, owner, id primitive.ObjectID, in models.Interaction) (*models.Prospect, error) {
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	update := bson.M{
		"$push": bson.M{"interactions": in},
		"$set":  bson.M{"lastContact": in.Date, "updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Prospect
	if err := s.col.FindOneAndUpdate(ctx, ProspectScope(owner).ByID(id), update, opts).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *MongoProspectStore) SetMatches(ctx context.Context, owner, id primitive.ObjectID, propertyIDs []primitive.ObjectID) error {
	if propertyIDs == nil {
		propertyIDs = []primitive.ObjectID{}
	}
	res, err := s.col.UpdateOne(ctx, ProspectScope(owner).ByID(id), bson.M{
		"$set": bson.M{"matchedProperties": propertyIDs, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("set matches: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
