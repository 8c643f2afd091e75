// Package workspace resolves the caller's current workspace and scopes
// workspace-owned queries to it.
package workspace

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrNoIdentity  = errors.New("request is not signed in")
	ErrNoWorkspace = errors.New("you are not in a workspace")
	ErrNotOwner    = errors.New("only the workspace owner can do that")
)

type ctxKey string

const workspaceKey ctxKey = "workspace"

// Info holds the current workspace for the request.
type Info struct {
	ID       primitive.ObjectID
	Name     string
	OwnerUID string
	Role     string // caller's role: owner | member
}

// IsOwner reports whether the caller owns the workspace.
func (i *Info) IsOwner() bool {
	return i != nil && i.Role == models.RoleOwner
}

// Resolver loads a profile and the workspace it points at.
type Resolver interface {
	Resolve(ctx context.Context, uid string) (models.User, *models.Workspace, error)
}

// FailFunc writes the response for a request that has no usable workspace.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware resolves the signed-in caller's workspace pointer and stores
// it on the request. A stale pointer is repaired by the resolver and the
// request fails with ErrNoWorkspace. Must run after auth.
func Middleware(res Resolver, logger *zap.Logger, onFail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if FromRequest(r) != nil {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := auth.CurrentIdentity(r)
			if !ok {
				onFail(w, r, ErrNoIdentity)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			defer cancel()

			_, ws, err := res.Resolve(ctx, id.UID)
			if err != nil {
				logger.Debug("workspace resolve failed", zap.String("uid", id.UID), zap.Error(err))
				onFail(w, r, err)
				return
			}
			if ws == nil {
				onFail(w, r, ErrNoWorkspace)
				return
			}

			r = withWorkspace(r, &Info{
				ID:       ws.ID,
				Name:     ws.Name,
				OwnerUID: ws.OwnerUID,
				Role:     ws.RoleOf(id.UID),
			})
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner rejects callers that do not own the current workspace.
func RequireOwner(onFail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws := FromRequest(r)
			if ws == nil {
				onFail(w, r, ErrNoWorkspace)
				return
			}
			if !ws.IsOwner() {
				onFail(w, r, ErrNotOwner)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromRequest returns the workspace info, or nil if none is set.
func FromRequest(r *http.Request) *Info {
	if ws, ok := r.Context().Value(workspaceKey).(*Info); ok {
		return ws
	}
	return nil
}

// IDFromRequest returns the workspace ID, or primitive.NilObjectID.
func IDFromRequest(r *http.Request) primitive.ObjectID {
	if ws := FromRequest(r); ws != nil {
		return ws.ID
	}
	return primitive.NilObjectID
}

func withWorkspace(r *http.Request, ws *Info) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), workspaceKey, ws))
}

// WithTestWorkspace sets workspace context on a request. Tests only.
func WithTestWorkspace(r *http.Request, id primitive.ObjectID, name, ownerUID, role string) *http.Request {
	return withWorkspace(r, &Info{ID: id, Name: name, OwnerUID: ownerUID, Role: role})
}
