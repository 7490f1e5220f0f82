package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferencesCollection holds per-task notification preferences.
const PreferencesCollection = "notification_preferences"

// Preferences stores which tasks a user has muted. It implements
// notify.Suppressor.
type Preferences struct {
	coll *mongo.Collection
}

// NewPreferences returns the preference store in db.
func NewPreferences(db *mongo.Database) *Preferences {
	return &Preferences{coll: db.Collection(PreferencesCollection)}
}

// Suppress mutes future notifications for todoID.
func (p *Preferences) Suppress(ctx context.Context, userID, todoID string) error {
	filter := bson.M{"user_id": userID, "todo_id": todoID}
	update := bson.M{"$set": bson.M{"muted": true, "updated_at": time.Now().UTC()}}
	_, err := p.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return wrapError("suppress", err)
}

// Muted reports whether todoID is muted for userID.
func (p *Preferences) Muted(ctx context.Context, userID, todoID string) (bool, error) {
	var doc struct {
		Muted bool `bson:"muted"`
	}
	err := p.coll.FindOne(ctx, bson.M{"user_id": userID, "todo_id": todoID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, wrapError("muted", err)
	}
	return doc.Muted, nil
}
