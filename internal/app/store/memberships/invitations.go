package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	invitationstore "github.com/dalemusser/washhub/internal/app/store/invitations"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/washhub/internal/app/store/workspaces"
	"github.com/dalemusser/washhub/internal/app/system/invitecode"
	"github.com/dalemusser/washhub/internal/app/system/txn"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueInvitation creates an active invitation for the workspace. Owner only.
// A workspace may have several active invitations at once, and max is not
// tied to the workspace's current size.
func (s *Store) IssueInvitation(ctx context.Context, uid string, wsID primitive.ObjectID, max int, expiresAt *time.Time) (models.Invitation, error) {
	if max < 1 || max > MaxContributors {
		return models.Invitation{}, fmt.Errorf("%w: max contributors must be 1-%d", ErrInvalidInput, MaxContributors)
	}
	if expiresAt != nil {
		now := s.now()
		if !expiresAt.After(now) || expiresAt.Sub(now) > maxInviteLifetime {
			return models.Invitation{}, fmt.Errorf("%w: expiry must be in the future and within 90 days", ErrInvalidInput)
		}
		t := expiresAt.UTC()
		expiresAt = &t
	}

	if _, err := s.ownedWorkspace(ctx, uid, wsID); err != nil {
		return models.Invitation{}, err
	}

	return s.invitations.Create(ctx, models.Invitation{
		WorkspaceID:     &wsID,
		MaxContributors: max,
		ExpiresAt:       expiresAt,
		CreatedBy:       uid,
	}, s.codes)
}

// ListInvitations returns the workspace's invitations, newest first. Owner only.
func (s *Store) ListInvitations(ctx context.Context, uid string, wsID primitive.ObjectID) ([]models.Invitation, error) {
	if _, err := s.ownedWorkspace(ctx, uid, wsID); err != nil {
		return nil, err
	}
	return s.invitations.ListByWorkspace(ctx, wsID)
}

// RevokeInvitation expires an active invitation early. Only the owner of the
// invitation's workspace may revoke it.
func (s *Store) RevokeInvitation(ctx context.Context, uid, code string) (models.Invitation, error) {
	code = normalizeCode(code)
	inv, err := s.invitations.GetByCode(ctx, code)
	if errors.Is(err, invitationstore.ErrNotFound) {
		return models.Invitation{}, ErrInvalidCode
	}
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.WorkspaceID == nil {
		return models.Invitation{}, ErrMalformedInvite
	}
	if _, err := s.ownedWorkspace(ctx, uid, *inv.WorkspaceID); err != nil {
		return models.Invitation{}, err
	}

	if err := s.invitations.MarkExpired(ctx, code); err != nil {
		if errors.Is(err, invitationstore.ErrNotActive) {
			return models.Invitation{}, ErrCodeNotActive
		}
		return models.Invitation{}, err
	}
	inv.Status = models.InviteExpired
	return inv, nil
}

// Redeem joins uid to the workspace behind code and returns its ID.
//
// Checks run in order: the code exists, is active, has not expired, has room,
// and names a workspace that still exists. An expired code is flipped to
// expired and that write is committed even though ErrCodeExpired is returned.
// Every other failure leaves the database untouched. Concurrent redemptions
// of one code conflict on the invitation document and the losing transaction
// is retried by the driver against fresh state.
func (s *Store) Redeem(ctx context.Context, uid, code string) (primitive.ObjectID, error) {
	code = normalizeCode(code)
	if !invitecode.Valid(code) {
		return primitive.NilObjectID, ErrInvalidCode
	}

	var joined primitive.ObjectID
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		inv, err := s.invitations.GetByCode(ctx, code)
		if errors.Is(err, invitationstore.ErrNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}

		if inv.Status != models.InviteActive {
			return ErrCodeNotActive
		}
		if inv.ExpiredAt(s.now()) {
			if err := s.invitations.MarkExpired(ctx, code); err != nil {
				return err
			}
			return txn.Commit(ErrCodeExpired)
		}
		if len(inv.UsersWhoJoined) >= inv.MaxContributors {
			return ErrCodeFull
		}
		if inv.WorkspaceID == nil || inv.WorkspaceID.IsZero() {
			return ErrMalformedInvite
		}

		ws, err := s.workspaces.GetByID(ctx, *inv.WorkspaceID)
		if errors.Is(err, workspacestore.ErrNotFound) {
			return ErrMalformedInvite
		}
		if err != nil {
			return err
		}

		u, err := s.users.GetByUID(ctx, uid)
		if errors.Is(err, userstore.ErrNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return err
		}
		if ws.HasContributor(uid) {
			return ErrAlreadyInWorkspace
		}
		if u.InWorkspace() {
			current, err := s.workspaces.GetByID(ctx, *u.WorkspaceID)
			switch {
			case err == nil && current.HasContributor(uid):
				return ErrAlreadyInWorkspace
			case err != nil && !errors.Is(err, workspacestore.ErrNotFound):
				return err
			}
			// Dangling pointer; it is overwritten below.
		}

		full := len(inv.UsersWhoJoined)+1 >= inv.MaxContributors
		if err := s.invitations.AddJoiner(ctx, code, uid, full); err != nil {
			switch {
			case errors.Is(err, invitationstore.ErrNotActive):
				return ErrCodeNotActive
			case errors.Is(err, invitationstore.ErrFull):
				return ErrCodeFull
			}
			return err
		}
		if err := s.workspaces.SetContributor(ctx, ws.ID, uid, models.RoleMember); err != nil {
			return err
		}
		if err := s.users.SetWorkspace(ctx, uid, ws.ID); err != nil {
			return err
		}

		joined = ws.ID
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return joined, nil
}

// Codes match exactly as generated. Only surrounding whitespace is dropped.
func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
