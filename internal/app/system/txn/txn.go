// Package txn runs multi-document writes in a MongoDB transaction.
//
// Transactions need a replica set or sharded cluster. Against a standalone
// server (local development) Run logs once per call and executes the function
// without a transaction, so writes still happen but are not atomic.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes that mean "transactions are not available here".
const (
	codeIllegalOperation    = 20
	codeNoReplicationEnable = 51
	codeOperationNotInTxn   = 263
)

// committed carries an error the caller should see after the transaction
// has been committed, rather than one that aborts it.
type committed struct{ err error }

func (c committed) Error() string { return c.err.Error() }
func (c committed) Unwrap() error { return c.err }

// Commit marks err as a result to report after commit. A function passed to
// Run returns Commit(err) when the writes it made so far must persist even
// though the operation as a whole is refused.
func Commit(err error) error {
	if err == nil {
		return nil
	}
	return committed{err: err}
}

// split separates a function result into the error that decides the
// transaction's fate and the error reported to the caller.
func split(err error) (abort, report error) {
	var c committed
	if errors.As(err, &c) {
		return nil, c.err
	}
	return err, err
}

// Run executes fn in a transaction. The context passed to fn carries the
// session and must be used for every store call that belongs to the
// transaction. WithTransaction retries fn on transient write conflicts, so fn
// must not have side effects outside the database.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, log, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	var report error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var abort error
		abort, report = split(fn(sc))
		return nil, abort
	})
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, log, fn, err)
		}
		return err
	}
	return report
}

func runWithout(ctx context.Context, log *zap.Logger, fn func(ctx context.Context) error, cause error) error {
	if log != nil {
		log.Warn("transactions unavailable, running without atomicity", zap.Error(cause))
	}
	_, report := split(fn(ctx))
	return report
}

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, or an operation disallowed in one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoReplicationEnable, codeOperationNotInTxn:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && (has("replica set") || has("session") || has("illegal operation")):
		return true
	case has("session") && has("not supported"):
		return true
	}
	return false
}
