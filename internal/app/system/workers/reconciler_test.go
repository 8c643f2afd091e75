package workers_test

import (
	"testing"
	"time"

	"github.com/dalemusser/washhub/internal/app/system/workers"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/washhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestRunOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// A live workspace with a member: nothing here should change.
	live := fx.CreateWorkspace(ctx, "Live", "alice", "bob")
	fx.CreateCustomer(ctx, live.ID, "Kept")

	// Overdue invitation.
	past := time.Now().Add(-time.Hour)
	fx.CreateInvitation(ctx, "OLD001", live.ID, 3, &past)

	// Dangling pointer.
	fx.CreateUser(ctx, "carol")
	gone := primitive.NewObjectID()
	fx.PointUserAt(ctx, "carol", &gone)

	// Orphan: the owner's profile points elsewhere and nobody else is in it.
	orphan := fx.CreateWorkspace(ctx, "Abandoned", "dave")
	fx.PointUserAt(ctx, "dave", nil)

	// Records of a workspace that no longer exists.
	fx.CreateCatalogEntry(ctx, models.KindService, gone, "Wash", 300)

	w := workers.NewReconciler(db, zap.NewNop(), time.Minute, time.Hour)
	w.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	rep := w.RunOnce(ctx)

	if rep.Expired != 1 {
		t.Errorf("expired: got %d, want 1", rep.Expired)
	}
	if rep.Repaired != 1 {
		t.Errorf("repaired: got %d, want 1", rep.Repaired)
	}
	if rep.OrphansDeleted != 1 {
		t.Errorf("orphans: got %d, want 1", rep.OrphansDeleted)
	}
	if rep.RecordsPurged != 1 {
		t.Errorf("purged: got %d, want 1", rep.RecordsPurged)
	}

	if n, _ := db.Collection("workspaces").CountDocuments(ctx, bson.M{"_id": live.ID}); n != 1 {
		t.Error("live workspace should remain")
	}
	if n, _ := db.Collection("customers").CountDocuments(ctx, bson.M{"workspace_id": live.ID}); n != 1 {
		t.Error("live workspace's customer should remain")
	}
	if n, _ := db.Collection("workspaces").CountDocuments(ctx, bson.M{"_id": orphan.ID}); n != 0 {
		t.Error("orphan should be deleted")
	}
	var inv models.Invitation
	if err := db.Collection("invitations").FindOne(ctx, bson.M{"_id": "OLD001"}).Decode(&inv); err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if inv.Status != models.InviteExpired {
		t.Errorf("invitation status: got %q", inv.Status)
	}

	// A second pass has nothing left to do.
	if again := w.RunOnce(ctx); again != (workers.Report{}) {
		t.Errorf("second pass: %+v", again)
	}
}

func TestRunOnce_KeepsWorkspaceOwnerWalkedAwayFrom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// alice fills a workspace, then creates a second one, which moves her
	// pointer. The first still looks abandoned by owner and contributors.
	first := fx.CreateWorkspace(ctx, "First Shop", "alice")
	fx.CreateCustomer(ctx, first.ID, "Ana")
	fx.CreateCatalogEntry(ctx, models.KindItem, first.ID, "Shirt", 250)
	second := fx.CreateWorkspace(ctx, "Second Shop", "alice")
	fx.PointUserAt(ctx, "alice", &second.ID)

	// Same shape, but the only trace left is an invitation.
	invited := fx.CreateWorkspace(ctx, "Invited", "bob")
	fx.CreateInvitation(ctx, "INV001", invited.ID, 2, nil)
	fx.PointUserAt(ctx, "bob", nil)

	w := workers.NewReconciler(db, zap.NewNop(), time.Minute, time.Hour)
	w.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	rep := w.RunOnce(ctx)

	if rep.OrphansDeleted != 0 {
		t.Errorf("orphans: got %d, want 0", rep.OrphansDeleted)
	}
	if rep.RecordsPurged != 0 {
		t.Errorf("purged: got %d, want 0", rep.RecordsPurged)
	}
	for _, id := range []primitive.ObjectID{first.ID, second.ID, invited.ID} {
		if n, _ := db.Collection("workspaces").CountDocuments(ctx, bson.M{"_id": id}); n != 1 {
			t.Errorf("workspace %s should remain", id.Hex())
		}
	}
	if n, _ := db.Collection("customers").CountDocuments(ctx, bson.M{"workspace_id": first.ID}); n != 1 {
		t.Error("first workspace's customer should remain")
	}
	if n, _ := db.Collection("items").CountDocuments(ctx, bson.M{"workspace_id": first.ID}); n != 1 {
		t.Error("first workspace's item should remain")
	}
}

func TestStartStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	w := workers.NewReconciler(db, zap.NewNop(), 10*time.Millisecond, time.Hour)
	w.Start()
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}
