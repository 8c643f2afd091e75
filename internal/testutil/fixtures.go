package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a profile with no workspace.
func (f *Fixtures) CreateUser(ctx context.Context, uid string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	name := "User " + uid
	u := models.User{
		UID:         uid,
		DisplayName: &name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateWorkspace inserts a workspace owned by owner with the given members
// and points every contributor's profile at it. Profiles are created if missing.
func (f *Fixtures) CreateWorkspace(ctx context.Context, name, owner string, members ...string) models.Workspace {
	f.t.Helper()

	now := time.Now().UTC()
	contributors := map[string]string{owner: models.RoleOwner}
	for _, m := range members {
		contributors[m] = models.RoleMember
	}
	ws := models.Workspace{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		OwnerUID:     owner,
		Contributors: contributors,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("workspaces").InsertOne(ctx, ws); err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}

	for uid := range contributors {
		f.PointUserAt(ctx, uid, &ws.ID)
	}
	return ws
}

// PointUserAt upserts the profile for uid and sets its workspace pointer
// without touching the workspace document. Passing nil clears it.
func (f *Fixtures) PointUserAt(ctx context.Context, uid string, wsID *primitive.ObjectID) {
	f.t.Helper()

	now := time.Now().UTC()
	_, err := f.db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{
			"$set":         bson.M{"workspace_id": wsID, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		f.t.Fatalf("failed to point user at workspace: %v", err)
	}
}

// CreateInvitation inserts an invitation directly, bypassing code generation.
func (f *Fixtures) CreateInvitation(ctx context.Context, code string, wsID primitive.ObjectID, max int, expiresAt *time.Time, joined ...string) models.Invitation {
	f.t.Helper()

	if joined == nil {
		joined = []string{}
	}
	now := time.Now().UTC()
	inv := models.Invitation{
		Code:            code,
		WorkspaceID:     &wsID,
		MaxContributors: max,
		ExpiresAt:       expiresAt,
		Status:          models.InviteActive,
		UsersWhoJoined:  joined,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}

// CreateCustomer inserts a customer in wsID.
func (f *Fixtures) CreateCustomer(ctx context.Context, wsID primitive.ObjectID, name string) models.Customer {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Customer{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		Name:        name,
		NameCI:      text.Fold(name),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("customers").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test customer: %v", err)
	}
	return c
}

// CreateCatalogEntry inserts a service or item into wsID's catalog.
func (f *Fixtures) CreateCatalogEntry(ctx context.Context, kind string, wsID primitive.ObjectID, name string, priceCents int64) models.CatalogEntry {
	f.t.Helper()

	coll := "items"
	unit := ""
	if kind == models.KindService {
		coll = "services"
		unit = "kg"
	}
	now := time.Now().UTC()
	e := models.CatalogEntry{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		Name:        name,
		NameCI:      text.Fold(name),
		PriceCents:  priceCents,
		Unit:        unit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection(coll).InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test catalog entry: %v", err)
	}
	return e
}
