// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/washhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxCodeAttempts bounds the re-roll loop in Create. With 36^6 codes a
// collision streak this long means the generator is broken.
const MaxCodeAttempts = 32

var (
	ErrNotFound      = errors.New("invitation not found")
	ErrNotActive     = errors.New("invitation is not active")
	ErrFull          = errors.New("invitation has no room left")
	ErrCodeExhausted = errors.New("could not find a free invitation code")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

// Create inserts inv under a fresh code from gen. Each candidate is checked
// for existence first; a duplicate-key error on insert (another writer took
// the code in between) re-rolls as well.
func (s *Store) Create(ctx context.Context, inv models.Invitation, gen func() (string, error)) (models.Invitation, error) {
	now := time.Now().UTC()
	inv.Status = models.InviteActive
	inv.UsersWhoJoined = []string{}
	inv.CreatedAt = now
	inv.UpdatedAt = now

	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		code, err := gen()
		if err != nil {
			return models.Invitation{}, err
		}

		taken, err := s.exists(ctx, code)
		if err != nil {
			return models.Invitation{}, err
		}
		if taken {
			continue
		}

		inv.Code = code
		if _, err := s.c.InsertOne(ctx, inv); err != nil {
			if wafflemongo.IsDup(err) {
				continue
			}
			return models.Invitation{}, err
		}
		return inv, nil
	}
	return models.Invitation{}, ErrCodeExhausted
}

func (s *Store) exists(ctx context.Context, code string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": code}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByCode retrieves an invitation by its code.
func (s *Store) GetByCode(ctx context.Context, code string) (models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, bson.M{"_id": code}).Decode(&inv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Invitation{}, ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// ListByWorkspace returns a workspace's invitations, newest first.
func (s *Store) ListByWorkspace(ctx context.Context, wsID primitive.ObjectID) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": wsID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Invitation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WorkspaceIDs returns every workspace id that has issued an invitation.
func (s *Store) WorkspaceIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	vals, err := s.c.Distinct(ctx, "workspace_id", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// MarkExpired flips an active invitation to expired. Status never moves
// backward, so an invitation that is already used or expired yields
// ErrNotActive.
func (s *Store) MarkExpired(ctx context.Context, code string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": code, "status": models.InviteActive},
		bson.M{"$set": bson.M{"status": models.InviteExpired, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByCode(ctx, code); err != nil {
			return err
		}
		return ErrNotActive
	}
	return nil
}

// AddJoiner appends uid to users_who_joined and, when full is set, flips
// the status to used in the same write. The write only applies while the
// invitation is active and has room, so writers that race outside a
// transaction cannot overfill it.
func (s *Store) AddJoiner(ctx context.Context, code, uid string, full bool) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if full {
		set["status"] = models.InviteUsed
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":    code,
			"status": models.InviteActive,
			"$expr": bson.M{"$lt": bson.A{
				bson.M{"$size": bson.M{"$ifNull": bson.A{"$users_who_joined", bson.A{}}}},
				"$max_contributors",
			}},
		},
		bson.M{"$push": bson.M{"users_who_joined": uid}, "$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		inv, err := s.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if inv.Status == models.InviteActive {
			return ErrFull
		}
		return ErrNotActive
	}
	return nil
}

// ExpireOverdue flips every active invitation whose expiry is at or before
// now. Returns the number flipped.
func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"status":     models.InviteActive,
			"expires_at": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{"status": models.InviteExpired, "updated_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
