package customerstore_test

import (
	"errors"
	"fmt"
	"testing"

	customerstore "github.com/dalemusser/washhub/internal/app/store/customers"
	"github.com/dalemusser/washhub/internal/app/system/paging"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/washhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	c, err := store.Create(ctx, models.Customer{WorkspaceID: wsID, Name: "Ana Souza", Phone: "555-0101", CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.ID.IsZero() || c.NameCI != "ana souza" {
		t.Errorf("create: id=%v name_ci=%q", c.ID, c.NameCI)
	}

	got, err := store.GetByID(ctx, wsID, c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Ana Souza" || got.Phone != "555-0101" {
		t.Errorf("got %+v", got)
	}

	// Another workspace cannot see it.
	if _, err := store.GetByID(ctx, primitive.NewObjectID(), c.ID); !errors.Is(err, customerstore.ErrNotFound) {
		t.Errorf("cross-workspace get: got %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	c := fx.CreateCustomer(ctx, wsID, "Bruno")

	name, notes := "Bruno Lima", "gate code 4411"
	got, err := store.Update(ctx, wsID, c.ID, customerstore.Update{Name: &name, Notes: &notes})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Name != name || got.NameCI != "bruno lima" || got.Notes != notes {
		t.Errorf("got %+v", got)
	}

	if _, err := store.Update(ctx, wsID, primitive.NewObjectID(), customerstore.Update{Name: &name}); !errors.Is(err, customerstore.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

func TestDelete_OpenOrdersBlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	c := fx.CreateCustomer(ctx, wsID, "Carla")
	orderID := primitive.NewObjectID()
	if _, err := db.Collection("orders").InsertOne(ctx, models.Order{
		ID: orderID, WorkspaceID: wsID, CustomerID: c.ID, Status: models.OrderWashing,
	}); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	if err := store.Delete(ctx, wsID, c.ID); !errors.Is(err, customerstore.ErrInUse) {
		t.Fatalf("open order: got %v, want ErrInUse", err)
	}

	if _, err := db.Collection("orders").UpdateByID(ctx, orderID, map[string]any{"$set": map[string]any{"status": models.OrderDelivered}}); err != nil {
		t.Fatalf("deliver order: %v", err)
	}
	if err := store.Delete(ctx, wsID, c.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, wsID, c.ID); !errors.Is(err, customerstore.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestList_PagesByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		fx.CreateCustomer(ctx, wsID, fmt.Sprintf("Customer %02d", i))
	}
	fx.CreateCustomer(ctx, primitive.NewObjectID(), "Customer 99")

	first, err := store.List(ctx, wsID, "", paging.New("", "").WithSize(3))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(first.Items) != 3 || first.Items[0].Name != "Customer 00" {
		t.Fatalf("first page: %+v", first.Items)
	}
	if first.Next == "" || first.Prev != "" {
		t.Errorf("first page cursors: next=%q prev=%q", first.Next, first.Prev)
	}

	second, err := store.List(ctx, wsID, "", paging.New("", first.Next).WithSize(3))
	if err != nil {
		t.Fatalf("List page 2 failed: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].Name != "Customer 03" {
		t.Fatalf("second page: %+v", second.Items)
	}
	if second.Next != "" || second.Prev == "" {
		t.Errorf("second page cursors: next=%q prev=%q", second.Next, second.Prev)
	}
}

func TestList_Search(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := customerstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	fx.CreateCustomer(ctx, wsID, "Dora")
	fx.CreateCustomer(ctx, wsID, "Dorival")
	fx.CreateCustomer(ctx, wsID, "Edu")
	fx.CreateCustomer(ctx, wsID, "(weird)")

	page, err := store.List(ctx, wsID, "DOR", paging.New("", ""))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("search DOR: got %d, want 2", len(page.Items))
	}

	page, err = store.List(ctx, wsID, "(we", paging.New("", ""))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("search with regex metachars: got %d, want 1", len(page.Items))
	}
}
