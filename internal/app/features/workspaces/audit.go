// internal/app/features/workspaces/audit.go
package workspaces

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/washhub/internal/app/store/audit"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/waffle/pantry/query"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type auditResponse struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
}

// ServeAudit lists the workspace's audit events, newest first. Owner only.
//
// Query: category, event_type, limit (1-200), offset.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	wsID := workspace.IDFromRequest(r)

	filter := audit.QueryFilter{
		WorkspaceID: &wsID,
		Category:    query.Get(r, "category"),
		EventType:   query.Get(r, "event_type"),
		Limit:       defaultAuditLimit,
	}
	if v, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64); err == nil && v > 0 {
		filter.Limit = min(v, maxAuditLimit)
	}
	if v, err := strconv.ParseInt(query.Get(r, "offset"), 10, 64); err == nil && v > 0 {
		filter.Offset = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, auditResponse{Events: events, Total: total})
}
