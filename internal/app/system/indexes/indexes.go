// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from EnsureSchema at startup and from test setup. Each
collection set is idempotent. Errors are aggregated so every problem shows
up in one startup failure.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", usersIndexes()},
		{"workspaces", workspacesIndexes()},
		{"invitations", invitationsIndexes()},
		{"customers", nameScopedIndexes("customers")},
		{"services", nameScopedIndexes("services")},
		{"items", nameScopedIndexes("items")},
		{"orders", ordersIndexes()},
		{"audit_events", auditIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models, log); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureIndexSet creates each model. When an index with the same name but
// different options already exists (IndexOptionsConflict / IndexKeySpecsConflict)
// it is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string
	for _, m := range models {
		name := ""
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}

		_, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isConflict(err) && name != "" {
			log.Info("recreating index with changed options",
				zap.String("collection", coll.Name()),
				zap.String("name", name))
			if _, dropErr := coll.Indexes().DropOne(ctx, name); dropErr != nil {
				errs = append(errs, name+": drop failed: "+dropErr.Error())
				continue
			}
			_, err = coll.Indexes().CreateOne(ctx, m)
		}
		if err != nil {
			log.Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.Error(err))
			errs = append(errs, name+": "+err.Error())
			continue
		}
		log.Debug("index ensured", zap.String("collection", coll.Name()), zap.String("name", name))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isConflict(err error) bool {
	s := err.Error()
	return strings.Contains(s, "IndexOptionsConflict") || strings.Contains(s, "IndexKeySpecsConflict")
}

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Reverse lookup used by workspace deletion and the reconciler.
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}},
			Options: options.Index().SetName("idx_users_workspace"),
		},
	}
}

func workspacesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_uid", Value: 1}},
			Options: options.Index().SetName("idx_workspaces_owner"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_workspaces_created"),
		},
	}
}

func invitationsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Owner's invitation list, newest first.
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_invitations_ws_created"),
		},
		// Reconciler sweep of overdue active codes.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_invitations_status_expires"),
		},
	}
}

func nameScopedIndexes(coll string) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_" + coll + "_ws_nameci_id"),
		},
	}
}

func ordersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Status board columns.
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_orders_ws_status_created"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "customer_id", Value: 1}},
			Options: options.Index().SetName("idx_orders_ws_customer"),
		},
	}
}

func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ws_ts"),
		},
		{
			Keys:    bson.D{{Key: "actor_uid", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_ts"),
		},
	}
}
