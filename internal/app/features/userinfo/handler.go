// internal/app/features/userinfo/handler.go
package userinfo

import (
	"context"
	"net/http"

	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in caller's profile.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

// NewHandler creates a new userinfo handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		Log:   logger,
	}
}

// meResponse is the body of GET /me and POST /session.
type meResponse struct {
	Profile   models.User       `json:"profile"`
	Workspace *models.Workspace `json:"workspace"`
	Role      string            `json:"role,omitempty"`
}

// HandleSync creates or refreshes the caller's profile from the token
// claims. Clients call it after every sign-in.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		apiresp.Fail(w, r, h.Log, auth.ErrInvalidToken)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Users.Sync(ctx, userstore.Profile{
		UID:         id.UID,
		DisplayName: htmlsanitize.PlainText(id.DisplayName),
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
	}); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.respond(ctx, w, r, id.UID)
}

// ServeMe returns the caller's profile and current workspace. A pointer to
// a workspace that no longer lists the caller is cleared on the way.
//
// Response data:
//
//	{ "profile": {...}, "workspace": {...} | null, "role": "owner" | "member" }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		apiresp.Fail(w, r, h.Log, auth.ErrInvalidToken)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	h.respond(ctx, w, r, id.UID)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, r *http.Request, uid string) {
	u, ws, err := h.Users.Resolve(ctx, uid)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	resp := meResponse{Profile: u, Workspace: ws}
	if ws != nil {
		resp.Role = ws.RoleOf(uid)
	}
	apiresp.OK(w, http.StatusOK, resp)
}
