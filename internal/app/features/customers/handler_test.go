package customers_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/washhub/internal/app/features/customers"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/washhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type page struct {
	Items []models.Customer `json:"items"`
	Next  string            `json:"next"`
	Prev  string            `json:"prev"`
}

func setup(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	requireWS := workspace.Middleware(userstore.New(db), logger, apiresp.Failer(logger))
	return customers.Routes(customers.NewHandler(db, logger), requireWS), testutil.NewFixtures(t, db)
}

func do(t *testing.T, h http.Handler, method, target, uid string, body any) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, method, target, uid, body))
	return rec
}

func TestCRUD(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateWorkspace(ctx, "Suds", "alice", "bob")

	rec := do(t, h, http.MethodPost, "/", "bob", map[string]string{"name": "Ana <i>Souza</i>", "phone": "555-0101"})
	rec.AssertStatus(t, http.StatusCreated)
	var c models.Customer
	rec.DecodeData(t, &c)
	if c.Name != "Ana Souza" || c.CreatedBy != "bob" {
		t.Errorf("created: %+v", c)
	}

	path := "/" + c.ID.Hex()
	rec = do(t, h, http.MethodPatch, path, "alice", map[string]string{"notes": "ring twice"})
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeData(t, &c)
	if c.Notes != "ring twice" || c.Phone != "555-0101" {
		t.Errorf("updated: %+v", c)
	}

	do(t, h, http.MethodGet, path, "alice", nil).AssertStatus(t, http.StatusOK)
	do(t, h, http.MethodDelete, path, "alice", nil).AssertStatus(t, http.StatusOK)
	do(t, h, http.MethodGet, path, "alice", nil).AssertStatus(t, http.StatusNotFound)
}

func TestIsolatedByWorkspace(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	mine := fx.CreateWorkspace(ctx, "Mine", "alice")
	fx.CreateWorkspace(ctx, "Theirs", "mallory")
	c := fx.CreateCustomer(ctx, mine.ID, "Private")

	do(t, h, http.MethodGet, "/"+c.ID.Hex(), "mallory", nil).AssertStatus(t, http.StatusNotFound)
	do(t, h, http.MethodDelete, "/"+c.ID.Hex(), "mallory", nil).AssertStatus(t, http.StatusNotFound)

	rec := do(t, h, http.MethodGet, "/", "mallory", nil)
	var p page
	rec.DecodeData(t, &p)
	if len(p.Items) != 0 {
		t.Errorf("mallory sees %d customers", len(p.Items))
	}
}

func TestValidation(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateWorkspace(ctx, "Suds", "alice")

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"missing name", http.MethodPost, "/", map[string]string{"phone": "1"}, http.StatusBadRequest},
		{"blank name", http.MethodPost, "/", map[string]string{"name": "  "}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/not-an-id", nil, http.StatusNotFound},
		{"unknown id", http.MethodPatch, "/" + primitive.NewObjectID().Hex(), map[string]string{"notes": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, h, tt.method, tt.target, "alice", tt.body).AssertStatus(t, tt.status)
		})
	}
}

func TestList_Paging(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ws := fx.CreateWorkspace(ctx, "Suds", "alice")
	for i := 0; i < 60; i++ {
		fx.CreateCustomer(ctx, ws.ID, fmt.Sprintf("Customer %02d", i))
	}

	var first page
	do(t, h, http.MethodGet, "/", "alice", nil).DecodeData(t, &first)
	if len(first.Items) != 50 || first.Next == "" {
		t.Fatalf("first page: %d items, next=%q", len(first.Items), first.Next)
	}

	var second page
	do(t, h, http.MethodGet, "/?after="+url.QueryEscape(first.Next), "alice", nil).DecodeData(t, &second)
	if len(second.Items) != 10 || second.Items[0].Name != "Customer 50" {
		t.Errorf("second page: %d items", len(second.Items))
	}

	var search page
	do(t, h, http.MethodGet, "/?q=customer+0", "alice", nil).DecodeData(t, &search)
	if len(search.Items) != 10 {
		t.Errorf("search: got %d, want 10", len(search.Items))
	}
}

func TestNoWorkspace(t *testing.T) {
	h, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "drifter")

	rec := do(t, h, http.MethodGet, "/", "drifter", nil)
	rec.AssertStatus(t, http.StatusConflict)
	if env := rec.Envelope(t); env.Code != apiresp.CodeNoWorkspace {
		t.Errorf("code: got %q", env.Code)
	}
}
