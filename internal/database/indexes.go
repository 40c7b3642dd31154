package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection      = "users"
	PropertiesCollection = "properties"
	ProspectsCollection  = "prospects"
)

// Indexes lists the indexes EnsureIndexes creates, by collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetName("uniq_phone").SetUnique(true)},
			// Sparse: users without a linked provider account have no token.
			{Keys: bson.D{{Key: "confirmed_token", Value: 1}}, Options: options.Index().SetName("uniq_confirmed_token").SetUnique(true).SetSparse(true)},
		},
		PropertiesCollection: {
			{
				Keys:    bson.D{{Key: "location", Value: "text"}, {Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
				Options: options.Index().SetName("idx_property_text"),
			},
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("idx_owner_status")},
			{Keys: bson.D{{Key: "type", Value: 1}}, Options: options.Index().SetName("idx_type")},
			{Keys: bson.D{{Key: "price", Value: 1}}, Options: options.Index().SetName("idx_price")},
		},
		ProspectsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}}, Options: options.Index().SetName("idx_user_active")},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetName("idx_user_email")},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("idx_status")},
			{
				Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "email", Value: "text"}, {Key: "notes", Value: "text"}},
				Options: options.Index().SetName("idx_prospect_text"),
			},
		},
	}
}

// EnsureIndexes creates every index. Called from main once Mongo is up.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range Indexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}
