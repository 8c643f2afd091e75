// internal/app/features/workspaces/handler.go
package workspaces

import (
	"github.com/dalemusser/washhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/washhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/washhub/internal/app/store/workspaces"
	"github.com/dalemusser/washhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for the caller's workspace: create,
// inspect, rename, delete, leave, remove members and read its audit trail.
type Handler struct {
	Members    *membershipstore.Store
	Workspaces *workspacestore.Store
	Users      *userstore.Store
	Events     *audit.Store
	Log        *zap.Logger
	AuditLog   *auditlog.Logger
}

// NewHandler creates a new workspaces Handler.
func NewHandler(db *mongo.Database, members *membershipstore.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Members:    members,
		Workspaces: workspacestore.New(db),
		Users:      userstore.New(db),
		Events:     audit.New(db),
		Log:        logger,
		AuditLog:   auditLog,
	}
}
