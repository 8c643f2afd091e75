// internal/app/system/workers/reconciler.go
package workers

import (
	"context"
	"sync"
	"time"

	catalogstore "github.com/dalemusser/washhub/internal/app/store/catalog"
	customerstore "github.com/dalemusser/washhub/internal/app/store/customers"
	invitationstore "github.com/dalemusser/washhub/internal/app/store/invitations"
	orderstore "github.com/dalemusser/washhub/internal/app/store/orders"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/washhub/internal/app/store/workspaces"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// recordSet is a workspace-scoped collection the reconciler can purge.
type recordSet interface {
	WorkspaceIDs(ctx context.Context) ([]primitive.ObjectID, error)
	DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error)
}

// Report counts what one reconcile pass changed.
type Report struct {
	Expired        int64
	Repaired       int64
	OrphansDeleted int64
	RecordsPurged  int64
}

// Reconciler is a background worker that repairs state the request path
// only fixes lazily: overdue invitations, dangling profile pointers,
// abandoned workspaces and records left behind by deleted workspaces.
type Reconciler struct {
	invitations *invitationstore.Store
	users       *userstore.Store
	workspaces  *workspacestore.Store
	records     map[string]recordSet
	log         *zap.Logger
	interval    time.Duration
	orphanGrace time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewReconciler creates a reconciler.
//
// Parameters:
//   - db: the application database
//   - logger: zap logger for logging
//   - interval: how often to run a pass (e.g., 5 minutes)
//   - orphanGrace: how old an orphaned workspace must be before it is deleted
func NewReconciler(db *mongo.Database, logger *zap.Logger, interval, orphanGrace time.Duration) *Reconciler {
	return &Reconciler{
		invitations: invitationstore.New(db),
		users:       userstore.New(db),
		workspaces:  workspacestore.New(db),
		records: map[string]recordSet{
			"customers": customerstore.New(db),
			"services":  catalogstore.New(db, models.KindService),
			"items":     catalogstore.New(db, models.KindItem),
			"orders":    orderstore.New(db),
		},
		log:         logger,
		interval:    interval,
		orphanGrace: orphanGrace,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// SetClock replaces the time source. Tests only.
func (w *Reconciler) SetClock(now func() time.Time) { w.now = now }

// Start begins the background loop.
func (w *Reconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconciler started",
		zap.Duration("interval", w.interval),
		zap.Duration("orphan_grace", w.orphanGrace))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Reconciler) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("reconciler stopped")
}

func (w *Reconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			w.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce performs a single pass. Each step runs even when an earlier one
// fails; failures are logged.
func (w *Reconciler) RunOnce(ctx context.Context) Report {
	var rep Report
	now := w.now().UTC()

	if n, err := w.invitations.ExpireOverdue(ctx, now); err != nil {
		w.log.Error("reconcile: expire invitations failed", zap.Error(err))
	} else {
		rep.Expired = n
	}

	if n, err := w.users.RepairPointers(ctx); err != nil {
		w.log.Error("reconcile: repair pointers failed", zap.Error(err))
	} else {
		rep.Repaired = n
	}

	orphans, err := w.workspaces.FindOrphans(ctx, now.Add(-w.orphanGrace))
	if err != nil {
		w.log.Error("reconcile: find orphans failed", zap.Error(err))
	}
	if len(orphans) > 0 {
		used, err := w.usedWorkspaces(ctx)
		if err != nil {
			w.log.Error("reconcile: list used workspaces failed", zap.Error(err))
			orphans = nil
		}
		kept := orphans[:0]
		for _, ws := range orphans {
			if !used[ws.ID] {
				kept = append(kept, ws)
			}
		}
		orphans = kept
	}
	for _, ws := range orphans {
		n, err := w.workspaces.Delete(ctx, ws.ID)
		if err != nil {
			w.log.Error("reconcile: delete orphan failed",
				zap.String("workspace_id", ws.ID.Hex()), zap.Error(err))
			continue
		}
		rep.OrphansDeleted += n
	}

	for name, set := range w.records {
		rep.RecordsPurged += w.purge(ctx, name, set)
	}

	if rep != (Report{}) {
		w.log.Info("reconcile pass changed state",
			zap.Int64("expired_invitations", rep.Expired),
			zap.Int64("repaired_pointers", rep.Repaired),
			zap.Int64("orphans_deleted", rep.OrphansDeleted),
			zap.Int64("records_purged", rep.RecordsPurged))
	}
	return rep
}

// usedWorkspaces returns the ids of workspaces that hold records or have
// ever issued an invitation. An owner can walk away from such a workspace by
// creating another one, so it is never treated as an orphan.
func (w *Reconciler) usedWorkspaces(ctx context.Context) (map[primitive.ObjectID]bool, error) {
	used := make(map[primitive.ObjectID]bool)
	for _, set := range w.records {
		ids, err := set.WorkspaceIDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			used[id] = true
		}
	}
	ids, err := w.invitations.WorkspaceIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		used[id] = true
	}
	return used, nil
}

// purge deletes records of set whose workspace no longer exists.
func (w *Reconciler) purge(ctx context.Context, name string, set recordSet) int64 {
	ids, err := set.WorkspaceIDs(ctx)
	if err != nil {
		w.log.Error("reconcile: list workspace ids failed", zap.String("collection", name), zap.Error(err))
		return 0
	}
	gone, err := w.workspaces.Missing(ctx, ids)
	if err != nil {
		w.log.Error("reconcile: check workspaces failed", zap.String("collection", name), zap.Error(err))
		return 0
	}

	var total int64
	for _, id := range gone {
		n, err := set.DeleteByWorkspace(ctx, id)
		if err != nil {
			w.log.Error("reconcile: purge failed",
				zap.String("collection", name), zap.String("workspace_id", id.Hex()), zap.Error(err))
			continue
		}
		total += n
	}
	return total
}
