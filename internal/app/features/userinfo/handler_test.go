package userinfo_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/washhub/internal/app/features/userinfo"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/washhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type meData struct {
	Profile   models.User       `json:"profile"`
	Workspace *models.Workspace `json:"workspace"`
	Role      string            `json:"role"`
}

func TestHandleSync_CreatesProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := userinfo.NewHandler(db, zap.NewNop())

	req := testutil.NewAuthenticatedRequest(t, http.MethodPost, "/session", "alice", nil)
	rec := testutil.NewRecorder()
	h.HandleSync(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got meData
	rec.DecodeData(t, &got)
	if got.Profile.UID != "alice" {
		t.Errorf("uid: got %q", got.Profile.UID)
	}
	if got.Profile.DisplayName == nil || *got.Profile.DisplayName != "User alice" {
		t.Errorf("display name: %v", got.Profile.DisplayName)
	}
	if got.Workspace != nil {
		t.Errorf("new profile should have no workspace, got %+v", got.Workspace)
	}
}

func TestServeMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	h := userinfo.NewHandler(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ws := fx.CreateWorkspace(ctx, "Suds", "alice", "bob")

	tests := []struct {
		name     string
		uid      string
		wantWS   bool
		wantRole string
	}{
		{"owner", "alice", true, models.RoleOwner},
		{"member", "bob", true, models.RoleMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeMe(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/me", tt.uid, nil))

			rec.AssertStatus(t, http.StatusOK)
			var got meData
			rec.DecodeData(t, &got)
			if (got.Workspace != nil) != tt.wantWS {
				t.Fatalf("workspace: %+v", got.Workspace)
			}
			if got.Workspace.ID != ws.ID || got.Role != tt.wantRole {
				t.Errorf("workspace=%s role=%q", got.Workspace.ID.Hex(), got.Role)
			}
		})
	}
}

func TestServeMe_ClearsStalePointer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	h := userinfo.NewHandler(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "carol")
	gone := primitive.NewObjectID()
	fx.PointUserAt(ctx, "carol", &gone)

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/me", "carol", nil))

	var got meData
	rec.DecodeData(t, &got)
	if got.Workspace != nil || got.Profile.WorkspaceID != nil {
		t.Errorf("stale pointer should be cleared: %+v", got)
	}
}

func TestServeMe_NoProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := userinfo.NewHandler(db, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/me", "ghost", nil))

	rec.AssertStatus(t, http.StatusNotFound)
	if env := rec.Envelope(t); env.Code != apiresp.CodeProfileNotFound {
		t.Errorf("code: got %q", env.Code)
	}
}

func TestServeMe_Anonymous(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := userinfo.NewHandler(db, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewRequest(t, http.MethodGet, "/me", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
