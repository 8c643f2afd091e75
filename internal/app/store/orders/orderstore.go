// internal/app/store/orders/orderstore.go
package orderstore

import (
	"context"
	"errors"
	"math"
	"time"

	catalogstore "github.com/dalemusser/washhub/internal/app/store/catalog"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxListed caps List results. The board shows open work, not history.
const MaxListed = 200

var (
	ErrNotFound          = errors.New("order not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrEntryNotFound     = errors.New("catalog entry not found")
	ErrEmptyOrder        = errors.New("an order needs at least one line")
	ErrBadQuantity       = errors.New("quantity must be greater than zero and at most 10000")
	ErrTotalTooLarge     = errors.New("order total is too large")
	ErrBadStatus         = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("order cannot move to that status")
	ErrStaleStatus       = errors.New("order status changed underneath the move")
)

type Store struct {
	c         *mongo.Collection
	customers *mongo.Collection
	services  *mongo.Collection
	items     *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:         db.Collection("orders"),
		customers: db.Collection("customers"),
		services:  db.Collection(catalogstore.Collection(models.KindService)),
		items:     db.Collection(catalogstore.Collection(models.KindItem)),
	}
}

// LineInput names a catalog entry and how much of it the order takes.
type LineInput struct {
	Kind     string
	RefID    primitive.ObjectID
	Quantity float64
}

// Place creates an order for customerID in wsID. Each line is priced from
// the workspace catalog at placement time.
func (s *Store) Place(ctx context.Context, wsID primitive.ObjectID, uid string, customerID primitive.ObjectID, lines []LineInput, notes string) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyOrder
	}

	n, err := s.customers.CountDocuments(ctx, bson.M{"_id": customerID, "workspace_id": wsID})
	if err != nil {
		return models.Order{}, err
	}
	if n == 0 {
		return models.Order{}, ErrCustomerNotFound
	}

	priced := make([]models.OrderLine, 0, len(lines))
	for _, in := range lines {
		if math.IsNaN(in.Quantity) || in.Quantity <= 0 || in.Quantity > models.MaxLineQuantity {
			return models.Order{}, ErrBadQuantity
		}
		coll := s.items
		switch in.Kind {
		case models.KindService:
			coll = s.services
		case models.KindItem:
		default:
			return models.Order{}, ErrEntryNotFound
		}
		var e models.CatalogEntry
		err := coll.FindOne(ctx, bson.M{"_id": in.RefID, "workspace_id": wsID}).Decode(&e)
		if err == mongo.ErrNoDocuments {
			return models.Order{}, ErrEntryNotFound
		}
		if err != nil {
			return models.Order{}, err
		}
		priced = append(priced, models.OrderLine{
			Kind:           in.Kind,
			RefID:          e.ID,
			Name:           e.Name,
			Quantity:       in.Quantity,
			UnitPriceCents: e.PriceCents,
		})
	}

	now := time.Now().UTC()
	o := models.Order{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		CustomerID:  customerID,
		Lines:       priced,
		Status:      models.OrderReceived,
		Notes:       notes,
		CreatedBy:   uid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	total, ok := o.Total()
	if !ok {
		return models.Order{}, ErrTotalTooLarge
	}
	o.TotalCents = total
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

// GetByID loads an order of wsID.
func (s *Store) GetByID(ctx context.Context, wsID, id primitive.ObjectID) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return o, nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status     string
	CustomerID *primitive.ObjectID
}

// List returns up to MaxListed orders of wsID, newest first.
func (s *Store) List(ctx context.Context, wsID primitive.ObjectID, f ListFilter) ([]models.Order, error) {
	filter := bson.M{"workspace_id": wsID}
	if f.Status != "" {
		if !models.IsValidOrderStatus(f.Status) {
			return nil, ErrBadStatus
		}
		filter["status"] = f.Status
	}
	if f.CustomerID != nil {
		filter["customer_id"] = *f.CustomerID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(MaxListed)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Board groups open and recent orders of wsID by status column. Every
// board column is present even when empty.
func (s *Store) Board(ctx context.Context, wsID primitive.ObjectID) (map[string][]models.Order, error) {
	orders, err := s.List(ctx, wsID, ListFilter{})
	if err != nil {
		return nil, err
	}
	board := make(map[string][]models.Order, len(models.OrderBoard))
	for _, st := range models.OrderBoard {
		board[st] = []models.Order{}
	}
	for _, o := range orders {
		if _, ok := board[o.Status]; ok {
			board[o.Status] = append(board[o.Status], o)
		}
	}
	return board, nil
}

// Move changes an order's status. The update is conditional on the status
// the move was validated against, so two concurrent moves cannot both win.
func (s *Store) Move(ctx context.Context, wsID, id primitive.ObjectID, to string) (models.Order, error) {
	if !models.IsValidOrderStatus(to) {
		return models.Order{}, ErrBadStatus
	}
	o, err := s.GetByID(ctx, wsID, id)
	if err != nil {
		return models.Order{}, err
	}
	if !models.CanMoveOrder(o.Status, to) {
		return models.Order{}, ErrInvalidTransition
	}

	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": wsID, "status": o.Status},
		bson.M{"$set": bson.M{"status": to, "updated_at": now}},
	)
	if err != nil {
		return models.Order{}, err
	}
	if res.MatchedCount == 0 {
		return models.Order{}, ErrStaleStatus
	}
	o.Status = to
	o.UpdatedAt = now
	return o, nil
}

// UpdateNotes replaces an order's notes.
func (s *Store) UpdateNotes(ctx context.Context, wsID, id primitive.ObjectID, notes string) (models.Order, error) {
	var o models.Order
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "workspace_id": wsID},
		bson.M{"$set": bson.M{"notes": notes, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return o, nil
}

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

// DeleteByWorkspace removes every order of wsID.
func (s *Store) DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": wsID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// WorkspaceIDs returns every workspace id that has orders.
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
