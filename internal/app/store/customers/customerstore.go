// internal/app/store/customers/customerstore.go
package customerstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/washhub/internal/app/system/paging"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("customer not found")
	ErrInUse    = errors.New("customer has open orders")
)

type Store struct {
	c      *mongo.Collection
	orders *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("customers"),
		orders: db.Collection("orders"),
	}
}

// Create inserts a customer. ID, NameCI and timestamps are assigned here.
func (s *Store) Create(ctx context.Context, c models.Customer) (models.Customer, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Customer{}, err
	}
	return c, nil
}

// GetByID loads a customer of wsID.
func (s *Store) GetByID(ctx context.Context, wsID, id primitive.ObjectID) (models.Customer, error) {
	var c models.Customer
	err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return models.Customer{}, ErrNotFound
	}
	if err != nil {
		return models.Customer{}, err
	}
	return c, nil
}

// Update holds the fields to change. Nil fields are left alone.
type Update struct {
	Name    *string
	Phone   *string
	Address *string
	Notes   *string
}

// Update applies u and returns the updated customer.
func (s *Store) Update(ctx context.Context, wsID, id primitive.ObjectID, u Update) (models.Customer, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
		set["name_ci"] = text.Fold(*u.Name)
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.Notes != nil {
		set["notes"] = *u.Notes
	}

	var c models.Customer
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "workspace_id": wsID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return models.Customer{}, ErrNotFound
	}
	if err != nil {
		return models.Customer{}, err
	}
	return c, nil
}

// Delete removes a customer. Customers with orders that are still in the
// wash cannot be deleted.
func (s *Store) Delete(ctx context.Context, wsID, id primitive.ObjectID) error {
	open, err := s.orders.CountDocuments(ctx, bson.M{
		"workspace_id": wsID,
		"customer_id":  id,
		"status":       bson.M{"$nin": []string{models.OrderDelivered, models.OrderCancelled}},
	})
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrInUse
	}

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": wsID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of wsID's customers ordered by name. A non-empty
// search restricts to names starting with it (case-insensitive).
func (s *Store) List(ctx context.Context, wsID primitive.ObjectID, search string, q paging.Query) (paging.Page[models.Customer], error) {
	filter := bson.M{"workspace_id": wsID}
	if search != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(search))}
	}
	q.Apply(filter, "name_ci")

	cur, err := s.c.Find(ctx, filter, q.FindOptions("name_ci"))
	if err != nil {
		return paging.Page[models.Customer]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Customer
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Customer]{}, err
	}
	return paging.Finish(rows, q,
		func(c models.Customer) string { return c.NameCI },
		func(c models.Customer) primitive.ObjectID { return c.ID },
	), nil
}

// DeleteByWorkspace removes every customer of wsID.
func (s *Store) DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// WorkspaceIDs returns every workspace id that has customers.
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
