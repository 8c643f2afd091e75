// internal/app/features/invitations/handler.go
package invitations

import (
	"context"
	"net/http"
	"time"

	membershipstore "github.com/dalemusser/washhub/internal/app/store/memberships"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auditlog"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/ratelimit"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler issues, lists, revokes and redeems invitation codes. Limiter
// throttles redemption attempts per caller.
type Handler struct {
	Members  *membershipstore.Store
	Limiter  ratelimit.Allower
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

// NewHandler creates a new invitations Handler.
func NewHandler(members *membershipstore.Store, limiter ratelimit.Allower, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Members:  members,
		Limiter:  limiter,
		Log:      logger,
		AuditLog: auditLog,
	}
}

type issueInput struct {
	MaxContributors int        `json:"max_contributors"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// HandleIssue issues a new code for the caller's workspace. Owner only.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	wsID := workspace.IDFromRequest(r)

	var in issueInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Members.IssueInvitation(ctx, id.UID, wsID, in.MaxContributors, in.ExpiresAt)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.AuditLog.InvitationIssued(ctx, r, id.UID, wsID, inv.Code, inv.MaxContributors)

	apiresp.OK(w, http.StatusCreated, inv)
}

// invitationRow is an invitation as listed to its owner.
type invitationRow struct {
	models.Invitation
	Remaining int `json:"remaining"`
}

// ServeList lists the workspace's invitations, newest first. Owner only.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Members.ListInvitations(ctx, id.UID, workspace.IDFromRequest(r))
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	rows := make([]invitationRow, 0, len(list))
	for _, inv := range list {
		rows = append(rows, invitationRow{Invitation: inv, Remaining: inv.Remaining()})
	}
	apiresp.OK(w, http.StatusOK, rows)
}

// HandleRevoke expires an active code early. Owner only.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	code := chi.URLParam(r, "code")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Members.RevokeInvitation(ctx, id.UID, code)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	if inv.WorkspaceID != nil {
		h.AuditLog.InvitationRevoked(ctx, r, id.UID, *inv.WorkspaceID, inv.Code)
	}
	apiresp.OK(w, http.StatusOK, inv)
}

type redeemInput struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	WorkspaceID string `json:"workspace_id"`
}

// HandleRedeem joins the caller to the workspace behind a code. Every
// attempt with a well-formed body is audited, successful or not.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var in redeemInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wsID, err := h.Members.Redeem(ctx, id.UID, in.Code)
	if err != nil {
		_, code, _ := apiresp.Classify(err)
		h.AuditLog.InvitationRedeemFailed(ctx, r, id.UID, in.Code, code)
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	h.Log.Info("invitation redeemed",
		zap.String("uid", id.UID),
		zap.String("workspace_id", wsID.Hex()))
	h.AuditLog.InvitationRedeemed(ctx, r, id.UID, wsID, in.Code)

	// A successful join clears the caller's failed attempts.
	if err := h.Limiter.Reset(ctx, redeemKey(r)); err != nil {
		h.Log.Warn("rate limiter reset failed", zap.String("uid", id.UID), zap.Error(err))
	}

	apiresp.OK(w, http.StatusOK, redeemResponse{WorkspaceID: wsID.Hex()})
}

// rateLimited answers a redemption over the caller's limit.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request) {
	apiresp.Fail(w, r, h.Log, apiresp.ErrRateLimited)
}
