// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrMissingUID = errors.New("uid is required")
)

type Store struct {
	c          *mongo.Collection
	workspaces *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:          db.Collection("users"),
		workspaces: db.Collection("workspaces"),
	}
}

// Profile is the identity-provider view of a user.
type Profile struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

// Sync creates the profile on first sign-in and refreshes the profile fields
// on later ones. workspace_id is only ever written on insert (as null).
func (s *Store) Sync(ctx context.Context, p Profile) (models.User, error) {
	if p.UID == "" {
		return models.User{}, ErrMissingUID
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	if p.DisplayName != "" {
		set["display_name"] = p.DisplayName
	}
	if p.Email != "" {
		set["email"] = p.Email
	}
	if p.PhotoURL != "" {
		set["photo_url"] = p.PhotoURL
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"created_at":   now,
			"workspace_id": nil,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": p.UID}, update, opts).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByUID loads a profile as stored, without repair.
func (s *Store) GetByUID(ctx context.Context, uid string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Resolve loads the profile and the workspace it points at. A pointer to a
// workspace that is gone, or that no longer lists the user, is cleared and
// the returned workspace is nil.
func (s *Store) Resolve(ctx context.Context, uid string) (models.User, *models.Workspace, error) {
	u, err := s.GetByUID(ctx, uid)
	if err != nil {
		return models.User{}, nil, err
	}
	if !u.InWorkspace() {
		return u, nil, nil
	}

	var ws models.Workspace
	err = s.workspaces.FindOne(ctx, bson.M{"_id": *u.WorkspaceID}).Decode(&ws)
	switch {
	case err == nil && ws.HasContributor(uid):
		return u, &ws, nil
	case err == nil, err == mongo.ErrNoDocuments:
		if _, err := s.ClearWorkspace(ctx, uid, *u.WorkspaceID); err != nil {
			return models.User{}, nil, err
		}
		u.WorkspaceID = nil
		return u, nil, nil
	default:
		return models.User{}, nil, err
	}
}

// SetWorkspace points uid at wsID. The profile must exist.
func (s *Store) SetWorkspace(ctx context.Context, uid string, wsID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"workspace_id": wsID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearWorkspace nulls uid's pointer if it still references wsID. Reports
// whether a profile was changed.
func (s *Store) ClearWorkspace(ctx context.Context, uid string, wsID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid, "workspace_id": wsID},
		bson.M{"$set": bson.M{"workspace_id": nil, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ClearWorkspaceForAll nulls the pointer on every listed profile that still
// references wsID.
func (s *Store) ClearWorkspaceForAll(ctx context.Context, uids []string, wsID primitive.ObjectID) (int64, error) {
	if len(uids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": uids}, "workspace_id": wsID},
		bson.M{"$set": bson.M{"workspace_id": nil, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// GetMany returns the profiles for uids, keyed by uid. Unknown uids are absent.
func (s *Store) GetMany(ctx context.Context, uids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.UID] = u
	}
	return out, cur.Err()
}

// RepairPointers clears every dangling workspace pointer: the workspace is
// missing or its contributors map no longer lists the user. Returns the
// number of profiles cleared.
func (s *Store) RepairPointers(ctx context.Context) (int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"workspace_id": bson.M{"$ne": nil}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "workspaces",
			"localField":   "workspace_id",
			"foreignField": "_id",
			"as":           "ws",
		}}},
		{{Key: "$project", Value: bson.M{"workspace_id": 1, "ws.contributors": 1}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var cleared int64
	for cur.Next(ctx) {
		var row struct {
			UID         string             `bson:"_id"`
			WorkspaceID primitive.ObjectID `bson:"workspace_id"`
			WS          []models.Workspace `bson:"ws"`
		}
		if err := cur.Decode(&row); err != nil {
			return cleared, err
		}
		if len(row.WS) == 1 && row.WS[0].HasContributor(row.UID) {
			continue
		}
		changed, err := s.ClearWorkspace(ctx, row.UID, row.WorkspaceID)
		if err != nil {
			return cleared, err
		}
		if changed {
			cleared++
		}
	}
	return cleared, cur.Err()
}
