// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound = errors.New("workspace not found")
	ErrBadUID   = errors.New("contributor uid is empty")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspaces")}
}

// Insert stores a new workspace. ID, NameCI and timestamps are assigned here.
func (s *Store) Insert(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	now := time.Now().UTC()
	ws.ID = primitive.NewObjectID()
	ws.NameCI = text.Fold(ws.Name)
	ws.CreatedAt = now
	ws.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ws); err != nil {
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByID retrieves a workspace by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// Rename sets the workspace name. Names are not unique.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"workspace_name":    name,
		"workspace_name_ci": text.Fold(name),
		"updated_at":        time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetContributor adds or replaces uid's role. uid is an opaque string and may
// contain dots or start with "$", so the map is updated with $setField in a
// pipeline update rather than through a dotted path.
func (s *Store) SetContributor(ctx context.Context, id primitive.ObjectID, uid, role string) error {
	if uid == "" {
		return ErrBadUID
	}
	res, err := s.c.UpdateByID(ctx, id, mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"contributors": bson.M{"$setField": bson.M{
				"field": bson.M{"$literal": uid},
				"input": "$contributors",
				"value": bson.M{"$literal": role},
			}},
			"updated_at": time.Now().UTC(),
		}}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveContributor deletes uid from the contributors map. Reports whether
// uid was present.
func (s *Store) RemoveContributor(ctx context.Context, id primitive.ObjectID, uid string) (bool, error) {
	if uid == "" {
		return false, ErrBadUID
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "$expr": HasContributor("$contributors", uid)},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"contributors": bson.M{"$unsetField": bson.M{
					"field": bson.M{"$literal": uid},
					"input": "$contributors",
				}},
				"updated_at": time.Now().UTC(),
			}}},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// HasContributor builds an aggregation expression that is true when the
// contributors map at path has a key equal to uid.
func HasContributor(path, uid string) bson.M {
	return bson.M{"$not": bson.A{
		bson.M{"$in": bson.A{
			bson.M{"$type": bson.M{"$getField": bson.M{
				"field": bson.M{"$literal": uid},
				"input": path,
			}}},
			bson.A{"missing", "null"},
		}},
	}}
}

// Delete removes a workspace by ID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindOrphans returns workspaces created before cutoff whose only contributor
// is the owner and whose owner profile does not point back at them. These are
// left behind when a create runs without transactions and fails halfway, but
// also when an owner creates a second workspace; callers must check that a
// candidate holds no data before deleting it.
func (s *Store) FindOrphans(ctx context.Context, cutoff time.Time) ([]models.Workspace, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$lt": cutoff}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "owner_uid",
			"foreignField": "_id",
			"as":           "owner",
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Workspace
	for cur.Next(ctx) {
		var row struct {
			models.Workspace `bson:",inline"`
			Owner            []models.User `bson:"owner"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		if len(row.Contributors) > 1 {
			continue
		}
		if len(row.Owner) == 1 && row.Owner[0].WorkspaceID != nil && *row.Owner[0].WorkspaceID == row.ID {
			continue
		}
		out = append(out, row.Workspace)
	}
	return out, cur.Err()
}

// Missing returns the ids in ids that have no workspace document.
func (s *Store) Missing(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	found := make(map[primitive.ObjectID]bool, len(ids))
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		found[row.ID] = true
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	var out []primitive.ObjectID
	for _, id := range ids {
		if !found[id] {
			out = append(out, id)
		}
	}
	return out, nil
}
