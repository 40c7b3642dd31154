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

// PropertySortFields are the columns a listing may be sorted by.
var PropertySortFields = []string{"addedDate", "updatedDate", "price", "title", "area", "bedrooms"}

type PropertyQuery struct {
	Type     string
	Status   string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	SortAsc  bool
	Page     int64
	Limit    int64
}

type PropertyStore interface {
	List(ctx context.Context, owner primitive.ObjectID, q PropertyQuery) ([]models.Property, int64, error)
	StatusCounts(ctx context.Context, owner primitive.ObjectID) (models.PropertyStatusCounts, error)
	Overview(ctx context.Context, owner primitive.ObjectID) (models.PropertyOverview, []models.TypeBucket, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Property, error)
	Create(ctx context.Context, p *models.Property) error
	Update(ctx context.Context, owner primitive.ObjectID, p *models.Property) error
	Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Property, error)
	All(ctx context.Context, owner primitive.ObjectID) ([]models.Property, error)
}

// PropertyFilter builds the listing filter. "all" and empty values are ignored.
func PropertyFilter(owner primitive.ObjectID, q PropertyQuery) bson.M {
	f := bson.M{}
	if q.Type != "" && q.Type != "all" {
		f["type"] = q.Type
	}
	if q.Status != "" && q.Status != "all" {
		f["status"] = q.Status
	}
	if q.Search != "" {
		re := containsFold(q.Search)
		f["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"location": re},
			bson.M{"description": re},
		}
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		f["price"] = price
	}
	return PropertyScope(owner).Filter(f)
}

// PropertySort returns the sort document, falling back to newest first for
// fields outside PropertySortFields.
func PropertySort(q PropertyQuery) bson.D {
	field := "addedDate"
	for _, allowed := range PropertySortFields {
		if q.SortBy == allowed {
			field = allowed
			break
		}
	}
	dir := -1
	if q.SortAsc {
		dir = 1
	}
	// _id as tie-breaker keeps pages stable
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

type MongoPropertyStore struct {
	col *mongo.Collection
}

func NewPropertyStore(db *mongo.Database) *MongoPropertyStore {
	return &MongoPropertyStore{col: db.Collection(database.PropertiesCollection)}
}

func (s *MongoPropertyStore) List(ctx context.Context, owner primitive.ObjectID, q PropertyQuery) ([]models.Property, int64, error) {
	filter := PropertyFilter(owner, q)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	opts := options.Find().
		SetSort(PropertySort(q)).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find properties: %w", err)
	}
	properties := make([]models.Property, 0, q.Limit)
	if err := cur.All(ctx, &properties); err != nil {
		return nil, 0, fmt.Errorf("decode properties: %w", err)
	}
	return properties, total, nil
}

func (s *MongoPropertyStore) StatusCounts(ctx context.Context, owner primitive.ObjectID) (models.PropertyStatusCounts, error) {
	var counts models.PropertyStatusCounts

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: PropertyScope(owner).Filter(nil)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return counts, fmt.Errorf("aggregate status counts: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return counts, fmt.Errorf("decode status counts: %w", err)
	}

	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.PropertyStatusAvailable:
			counts.Available = row.Count
		case models.PropertyStatusSold:
			counts.Sold = row.Count
		case models.PropertyStatusPending:
			counts.Pending = row.Count
		}
	}
	return counts, nil
}

func countIf(field, value string) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$" + field, value}}, 1, 0}}}
}

func (s *MongoPropertyStore) Overview(ctx context.Context, owner primitive.ObjectID) (models.PropertyOverview, []models.TypeBucket, error) {
	var overview models.PropertyOverview
	match := bson.D{{Key: "$match", Value: PropertyScope(owner).Filter(nil)}}

	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total":          bson.M{"$sum": 1},
			"totalValue":     bson.M{"$sum": "$price"},
			"avgPrice":       bson.M{"$avg": "$price"},
			"availableCount": countIf("status", models.PropertyStatusAvailable),
			"soldCount":      countIf("status", models.PropertyStatusSold),
			"pendingCount":   countIf("status", models.PropertyStatusPending),
		}}},
	})
	if err != nil {
		return overview, nil, fmt.Errorf("aggregate overview: %w", err)
	}
	var rows []models.PropertyOverview
	if err := cur.All(ctx, &rows); err != nil {
		return overview, nil, fmt.Errorf("decode overview: %w", err)
	}
	if len(rows) > 0 {
		overview = rows[0]
	}

	cur, err = s.col.Aggregate(ctx, mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.M{
			"_id":      "$type",
			"count":    bson.M{"$sum": 1},
			"avgPrice": bson.M{"$avg": "$price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return overview, nil, fmt.Errorf("aggregate type distribution: %w", err)
	}
	buckets := make([]models.TypeBucket, 0, len(models.PropertyTypes))
	if err := cur.All(ctx, &buckets); err != nil {
		return overview, nil, fmt.Errorf("decode type distribution: %w", err)
	}
	return overview, buckets, nil
}

func (s *MongoPropertyStore) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	if err := s.col.FindOne(ctx, PropertyScope(owner).ByID(id)).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *MongoPropertyStore) Create(ctx context.Context, p *models.Property) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.AddedDate.IsZero() {
		p.AddedDate = now
	}
	p.UpdatedDate = now
	p.CreatedAt = now
	p.UpdatedAt = now
	p.CapImages()

	if _, err := s.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// Update replaces the owner's document. p.Owner is reset to owner so a listing
// never changes hands.
func (s *MongoPropertyStore) Update(ctx context.Context, owner primitive.ObjectID, p *models.Property) error {
	now := time.Now().UTC()
	p.Owner = owner
	p.UpdatedDate = now
	p.UpdatedAt = now
	p.CapImages()

	res, err := s.col.ReplaceOne(ctx, PropertyScope(owner).ByID(p.ID), p)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the document and returns it so its images can be cleaned up.
func (s *MongoPropertyStore) Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	if err := s.col.FindOneAndDelete(ctx, PropertyScope(owner).ByID(id)).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *MongoPropertyStore) All(ctx context.Context, owner primitive.ObjectID) ([]models.Property, error) {
	cur, err := s.col.Find(ctx, PropertyScope(owner).Filter(nil), options.Find().SetSort(bson.D{{Key: "addedDate", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find properties: %w", err)
	}
	properties := make([]models.Property, 0)
	if err := cur.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return properties, nil
}
