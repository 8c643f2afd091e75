// internal/app/store/catalog/catalogstore.go
package catalogstore

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

var ErrNotFound = errors.New("catalog entry not found")

// Store manages one catalog kind. Services and items share the shape but
// live in separate collections.
type Store struct {
	c    *mongo.Collection
	kind string
}

// New returns the store for kind (models.KindService or models.KindItem).
func New(db *mongo.Database, kind string) *Store {
	return &Store{c: db.Collection(Collection(kind)), kind: kind}
}

// Collection maps a catalog kind to its collection name.
func Collection(kind string) string {
	if kind == models.KindService {
		return "services"
	}
	return "items"
}

// Kind reports which catalog this store manages.
func (s *Store) Kind() string { return s.kind }

// Create inserts an entry. Items have no unit.
func (s *Store) Create(ctx context.Context, e models.CatalogEntry) (models.CatalogEntry, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.NameCI = text.Fold(e.Name)
	if s.kind == models.KindItem {
		e.Unit = ""
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.CatalogEntry{}, err
	}
	return e, nil
}

// GetByID loads an entry of wsID.
func (s *Store) GetByID(ctx context.Context, wsID, id primitive.ObjectID) (models.CatalogEntry, error) {
	var e models.CatalogEntry
	err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return models.CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return models.CatalogEntry{}, err
	}
	return e, nil
}

// Update holds the fields to change. Nil fields are left alone.
type Update struct {
	Name       *string
	PriceCents *int64
	Unit       *string
}

// Update applies u and returns the updated entry.
func (s *Store) Update(ctx context.Context, wsID, id primitive.ObjectID, u Update) (models.CatalogEntry, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
		set["name_ci"] = text.Fold(*u.Name)
	}
	if u.PriceCents != nil {
		set["price_cents"] = *u.PriceCents
	}
	if u.Unit != nil && s.kind == models.KindService {
		set["unit"] = *u.Unit
	}

	var e models.CatalogEntry
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "workspace_id": wsID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return models.CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return models.CatalogEntry{}, err
	}
	return e, nil
}

// Delete removes an entry. Orders keep their copied name and price.
func (s *Store) Delete(ctx context.Context, wsID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": wsID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the whole catalog of wsID ordered by name.
func (s *Store) List(ctx context.Context, wsID primitive.ObjectID) ([]models.CatalogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": wsID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.CatalogEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByWorkspace removes every entry of wsID.
func (s *Store) DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// WorkspaceIDs returns every workspace id that has entries in this catalog.
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
