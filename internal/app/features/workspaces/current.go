// internal/app/features/workspaces/current.go
package workspaces

import (
	"context"
	"net/http"
	"sort"

	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
)

// memberRow is one contributor as shown to other contributors.
type memberRow struct {
	UID         string  `json:"uid"`
	Role        string  `json:"role"`
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

type currentResponse struct {
	Workspace models.Workspace `json:"workspace"`
	Members   []memberRow      `json:"members"`
}

// ServeCurrent returns the caller's workspace with its contributors. The
// owner is listed first, then members by uid.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ws, err := h.Workspaces.GetByID(ctx, workspace.IDFromRequest(r))
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	uids := make([]string, 0, len(ws.Contributors))
	for uid := range ws.Contributors {
		uids = append(uids, uid)
	}
	profiles, err := h.Users.GetMany(ctx, uids)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	rows := make([]memberRow, 0, len(uids))
	for _, uid := range uids {
		row := memberRow{UID: uid, Role: ws.Contributors[uid]}
		if p, ok := profiles[uid]; ok {
			row.DisplayName = p.DisplayName
			row.PhotoURL = p.PhotoURL
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if (rows[i].Role == models.RoleOwner) != (rows[j].Role == models.RoleOwner) {
			return rows[i].Role == models.RoleOwner
		}
		return rows[i].UID < rows[j].UID
	})

	apiresp.OK(w, http.StatusOK, currentResponse{Workspace: ws, Members: rows})
}

// HandleRename renames the caller's workspace. Owner only.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	wsID := workspace.IDFromRequest(r)

	var in nameInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	name := htmlsanitize.PlainText(in.Name)
	if err := h.Members.RenameWorkspace(ctx, id.UID, wsID, name); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.AuditLog.WorkspaceRenamed(ctx, r, id.UID, wsID, name)

	ws, err := h.Workspaces.GetByID(ctx, wsID)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, ws)
}

// HandleDelete deletes the caller's workspace and clears every
// contributor's pointer to it. Owner only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	wsID := workspace.IDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ws, err := h.Members.DeleteWorkspace(ctx, id.UID, wsID)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.AuditLog.WorkspaceDeleted(ctx, r, id.UID, wsID, len(ws.Contributors))

	apiresp.OK(w, http.StatusOK, map[string]string{"workspace_id": wsID.Hex()})
}
