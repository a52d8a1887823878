package models

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FixCategories scans for complaints whose category is outside the canonical
// set and rewrites any that still map to a known synonym. Unrecognized values
// are left untouched. Each document is processed independently so one bad
// document cannot abort the rest; safe to run on every start.
func FixCategories(collection *mongo.Collection) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	allowed := CanonicalCategories()
	cursor, err := collection.Find(ctx, bson.M{"category": bson.M{"$nin": allowed, "$exists": true, "$ne": ""}})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	fixed := 0
	for cursor.Next(ctx) {
		var doc struct {
			ID       interface{} `bson:"_id"`
			Category string      `bson:"category"`
		}
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("FixCategories: decode failed: %v", err)
			continue
		}

		canon, ok := CanonicalCategory(doc.Category)
		if !ok || string(canon) == doc.Category {
			continue
		}

		_, err := collection.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"category": canon, "updatedAt": time.Now()}},
		)
		if err != nil {
			log.Printf("FixCategories: update %v failed: %v", doc.ID, err)
			continue
		}
		fixed++
	}

	return fixed, cursor.Err()
}
