package invitationstore_test

import (
	"errors"
	"testing"
	"time"

	invitationstore "github.com/dalemusser/washhub/internal/app/store/invitations"
	"github.com/dalemusser/washhub/internal/app/system/invitecode"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/washhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_AssignsFreshCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		inv, err := store.Create(ctx, models.Invitation{WorkspaceID: &wsID, MaxContributors: 2}, invitecode.New)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if !invitecode.Valid(inv.Code) {
			t.Errorf("invalid code %q", inv.Code)
		}
		if seen[inv.Code] {
			t.Errorf("duplicate code %q", inv.Code)
		}
		seen[inv.Code] = true
		if inv.Status != models.InviteActive || inv.UsersWhoJoined == nil {
			t.Errorf("new invitation: status=%q joined=%v", inv.Status, inv.UsersWhoJoined)
		}
	}

	list, err := store.ListByWorkspace(ctx, wsID)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(list) != 20 {
		t.Errorf("len: got %d, want 20", len(list))
	}
}

func TestCreate_Exhausted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	fx.CreateInvitation(ctx, "SAME00", wsID, 1, nil)

	calls := 0
	_, err := store.Create(ctx, models.Invitation{WorkspaceID: &wsID, MaxContributors: 1}, func() (string, error) {
		calls++
		return "SAME00", nil
	})
	if !errors.Is(err, invitationstore.ErrCodeExhausted) {
		t.Errorf("err: got %v, want ErrCodeExhausted", err)
	}
	if calls != invitationstore.MaxCodeAttempts {
		t.Errorf("attempts: got %d, want %d", calls, invitationstore.MaxCodeAttempts)
	}
}

func TestCreate_GeneratorError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	boom := errors.New("entropy gone")
	_, err := store.Create(ctx, models.Invitation{}, func() (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Errorf("err: got %v, want %v", err, boom)
	}
}

func TestStatusTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	fx.CreateInvitation(ctx, "FLOW01", wsID, 2, nil)

	if err := store.AddJoiner(ctx, "FLOW01", "bob", false); err != nil {
		t.Fatalf("AddJoiner: %v", err)
	}
	if err := store.AddJoiner(ctx, "FLOW01", "carol", true); err != nil {
		t.Fatalf("AddJoiner (full): %v", err)
	}
	inv, _ := store.GetByCode(ctx, "FLOW01")
	if inv.Status != models.InviteUsed || len(inv.UsersWhoJoined) != 2 {
		t.Errorf("after fill: status=%q joined=%v", inv.Status, inv.UsersWhoJoined)
	}

	// Used never goes back to active or on to expired.
	if err := store.AddJoiner(ctx, "FLOW01", "dave", false); !errors.Is(err, invitationstore.ErrNotActive) {
		t.Errorf("join used: got %v, want ErrNotActive", err)
	}
	if err := store.MarkExpired(ctx, "FLOW01"); !errors.Is(err, invitationstore.ErrNotActive) {
		t.Errorf("expire used: got %v, want ErrNotActive", err)
	}
	if err := store.MarkExpired(ctx, "NOPE00"); !errors.Is(err, invitationstore.ErrNotFound) {
		t.Errorf("expire missing: got %v, want ErrNotFound", err)
	}
}

func TestAddJoiner_RespectsCapacity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Active but already at capacity, as left by a writer that filled the
	// last place without flipping the status.
	fx.CreateInvitation(ctx, "ROOM01", primitive.NewObjectID(), 1, nil, "bob")

	if err := store.AddJoiner(ctx, "ROOM01", "carol", false); !errors.Is(err, invitationstore.ErrFull) {
		t.Errorf("join full: got %v, want ErrFull", err)
	}
	inv, _ := store.GetByCode(ctx, "ROOM01")
	if len(inv.UsersWhoJoined) != 1 || inv.Status != models.InviteActive {
		t.Errorf("after rejected join: status=%q joined=%v", inv.Status, inv.UsersWhoJoined)
	}
	if err := store.AddJoiner(ctx, "NOPE00", "carol", false); !errors.Is(err, invitationstore.ErrNotFound) {
		t.Errorf("join missing: got %v, want ErrNotFound", err)
	}
}

func TestExpireOverdue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := invitationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	wsID := primitive.NewObjectID()

	fx.CreateInvitation(ctx, "PAST01", wsID, 2, &past)
	fx.CreateInvitation(ctx, "FUTR01", wsID, 2, &future)
	fx.CreateInvitation(ctx, "NEVER1", wsID, 2, nil)

	n, err := store.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireOverdue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expired: got %d, want 1", n)
	}

	want := map[string]string{
		"PAST01": models.InviteExpired,
		"FUTR01": models.InviteActive,
		"NEVER1": models.InviteActive,
	}
	for code, status := range want {
		inv, err := store.GetByCode(ctx, code)
		if err != nil {
			t.Fatalf("GetByCode %s: %v", code, err)
		}
		if inv.Status != status {
			t.Errorf("%s status: got %q, want %q", code, inv.Status, status)
		}
	}
}
