// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	invitationstore "github.com/dalemusser/washhub/internal/app/store/invitations"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/washhub/internal/app/store/workspaces"
	"github.com/dalemusser/washhub/internal/app/system/invitecode"
	"github.com/dalemusser/washhub/internal/app/system/txn"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxNameLength     = 80
	MaxContributors   = 50
	maxInviteLifetime = 90 * 24 * time.Hour
)

// Store implements the workspace membership protocol on top of the users,
// workspaces and invitations collections. Every multi-document operation
// runs in one transaction.
type Store struct {
	db  *mongo.Database
	log *zap.Logger

	users       *userstore.Store
	workspaces  *workspacestore.Store
	invitations *invitationstore.Store

	now   func() time.Time
	codes func() (string, error)
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:          db,
		log:         log,
		users:       userstore.New(db),
		workspaces:  workspacestore.New(db),
		invitations: invitationstore.New(db),
		now:         func() time.Time { return time.Now().UTC() },
		codes:       invitecode.New,
	}
}

// SetClock replaces the time source used for expiry checks.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// SetCodeSource replaces the invitation code generator.
func (s *Store) SetCodeSource(gen func() (string, error)) { s.codes = gen }

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, MaxNameLength)
	}
	return name, nil
}

// ownedWorkspace loads wsID and checks uid owns it.
func (s *Store) ownedWorkspace(ctx context.Context, uid string, wsID primitive.ObjectID) (models.Workspace, error) {
	ws, err := s.workspaces.GetByID(ctx, wsID)
	if errors.Is(err, workspacestore.ErrNotFound) {
		return models.Workspace{}, ErrWorkspaceNotFound
	}
	if err != nil {
		return models.Workspace{}, err
	}
	if !ws.IsOwner(uid) {
		return models.Workspace{}, ErrPermissionDenied
	}
	return ws, nil
}

// CreateWorkspace creates a workspace owned by uid and points uid's profile at it.
func (s *Store) CreateWorkspace(ctx context.Context, uid, name string) (models.Workspace, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Workspace{}, err
	}

	var created models.Workspace
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ws, err := s.workspaces.Insert(ctx, models.Workspace{
			Name:         name,
			OwnerUID:     uid,
			Contributors: map[string]string{uid: models.RoleOwner},
		})
		if err != nil {
			return err
		}
		if err := s.users.SetWorkspace(ctx, uid, ws.ID); err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				return ErrProfileNotFound
			}
			return err
		}
		created = ws
		return nil
	})
	if err != nil {
		return models.Workspace{}, err
	}
	return created, nil
}

// RenameWorkspace changes the workspace name. Owner only.
func (s *Store) RenameWorkspace(ctx context.Context, uid string, wsID primitive.ObjectID, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if _, err := s.ownedWorkspace(ctx, uid, wsID); err != nil {
		return err
	}
	if err := s.workspaces.Rename(ctx, wsID, name); err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return ErrWorkspaceNotFound
		}
		return err
	}
	return nil
}

// DeleteWorkspace clears the pointer of every contributor that still
// references the workspace, then deletes it. Invitations are kept as history.
// Returns the deleted workspace.
func (s *Store) DeleteWorkspace(ctx context.Context, uid string, wsID primitive.ObjectID) (models.Workspace, error) {
	var deleted models.Workspace
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ws, err := s.ownedWorkspace(ctx, uid, wsID)
		if err != nil {
			return err
		}

		uids := make([]string, 0, len(ws.Contributors))
		for c := range ws.Contributors {
			uids = append(uids, c)
		}
		if _, err := s.users.ClearWorkspaceForAll(ctx, uids, ws.ID); err != nil {
			return err
		}
		if _, err := s.workspaces.Delete(ctx, ws.ID); err != nil {
			return err
		}
		deleted = ws
		return nil
	})
	if err != nil {
		return models.Workspace{}, err
	}
	return deleted, nil
}

// Kick removes target from the workspace. Owner only; the owner can't be kicked.
func (s *Store) Kick(ctx context.Context, uid string, wsID primitive.ObjectID, target string) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ws, err := s.ownedWorkspace(ctx, uid, wsID)
		if err != nil {
			return err
		}
		if target == ws.OwnerUID {
			return ErrCannotRemoveOwner
		}
		removed, err := s.workspaces.RemoveContributor(ctx, ws.ID, target)
		if err != nil {
			if errors.Is(err, workspacestore.ErrBadUID) {
				return ErrNotMember
			}
			return err
		}
		if !removed {
			return ErrNotMember
		}
		_, err = s.users.ClearWorkspace(ctx, target, ws.ID)
		return err
	})
}

// Leave removes uid from the workspace its profile points at and returns
// that workspace's ID. The owner can't leave. A pointer to a workspace that
// is gone or no longer lists uid is cleared and ErrNotMember is reported.
func (s *Store) Leave(ctx context.Context, uid string) (primitive.ObjectID, error) {
	var left primitive.ObjectID
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		u, err := s.users.GetByUID(ctx, uid)
		if errors.Is(err, userstore.ErrNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return err
		}
		if !u.InWorkspace() {
			return ErrNotMember
		}
		wsID := *u.WorkspaceID

		ws, err := s.workspaces.GetByID(ctx, wsID)
		if err != nil && !errors.Is(err, workspacestore.ErrNotFound) {
			return err
		}
		if err != nil || !ws.HasContributor(uid) {
			if _, err := s.users.ClearWorkspace(ctx, uid, wsID); err != nil {
				return err
			}
			return txn.Commit(ErrNotMember)
		}
		if ws.IsOwner(uid) {
			return ErrOwnerCannotLeave
		}

		if _, err := s.workspaces.RemoveContributor(ctx, wsID, uid); err != nil {
			return err
		}
		if _, err := s.users.ClearWorkspace(ctx, uid, wsID); err != nil {
			return err
		}
		left = wsID
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return left, nil
}
