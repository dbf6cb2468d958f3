package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"scholarhub/internal/entity"
)

// PresenceRepository persists client online/offline state so the rest of
// the backend can query who is connected without asking the hub.
type PresenceRepository interface {
	SetOnline(ctx context.Context, presence entity.Presence) error
	SetOffline(ctx context.Context, clientID string) error
	Online(ctx context.Context) ([]entity.Presence, error)
}

type presenceRepository struct {
	db *mongo.Database
}

// NewPresenceRepository creates a Mongo-backed presence repository.
func NewPresenceRepository(db *mongo.Database) PresenceRepository {
	return &presenceRepository{db: db}
}

func (r *presenceRepository) SetOnline(ctx context.Context, presence entity.Presence) error {
	collection := r.db.Collection("presence")
	filter := bson.M{"_id": presence.ClientID}
	update := bson.M{
		"$set": bson.M{
			"group":       presence.Group,
			"remoteAddr":  presence.RemoteAddr,
			"online":      true,
			"connectedAt": presence.ConnectedAt,
			"lastSeenAt":  time.Now().UTC(),
		},
	}
	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *presenceRepository) SetOffline(ctx context.Context, clientID string) error {
	collection := r.db.Collection("presence")
	filter := bson.M{"_id": clientID}
	update := bson.M{
		"$set": bson.M{
			"online":     false,
			"lastSeenAt": time.Now().UTC(),
		},
	}
	_, err := collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *presenceRepository) Online(ctx context.Context) ([]entity.Presence, error) {
	collection := r.db.Collection("presence")
	cursor, err := collection.Find(ctx, bson.M{"online": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []entity.Presence
	for cursor.Next(ctx) {
		var p entity.Presence
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, cursor.Err()
}
