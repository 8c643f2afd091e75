// Package realtime turns MongoDB change streams into live-updating reads.
//
// A Feed pairs a change stream with a loader. Subscribing emits the current
// value, then reloads and emits again whenever the stream reports a change.
// Changes that arrive while a reload is pending are collapsed into one
// reload, so subscribers always see the freshest value but may skip
// intermediate ones.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// closeTimeout bounds releasing the server-side cursor after the
// subscriber's context is gone.
const closeTimeout = 5 * time.Second

// ErrStreamEnded is reported when the server closes a stream on its own,
// for example after the watched collection is dropped.
var ErrStreamEnded = errors.New("change stream ended")

// Stream is the part of *mongo.ChangeStream a Feed drives.
type Stream interface {
	Next(ctx context.Context) bool
	TryNext(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Opener starts a change stream.
type Opener func(ctx context.Context) (Stream, error)

// Unsubscribe stops a subscription and waits until its stream is closed.
// It is safe to call more than once but must not be called from inside the
// subscription's own callbacks.
type Unsubscribe func()

// Feed is a live-updating read of T.
type Feed[T any] struct {
	Open Opener
	Load func(ctx context.Context) (T, error)
}

// Subscribe starts delivering values to onNext until ctx ends, Unsubscribe
// is called, or the feed fails. A failure is reported once through onError
// and ends the subscription; cancellation is not a failure. Callbacks run
// on a single goroutine, one at a time. Subscribing again starts over with
// a fresh initial value.
func (f Feed[T]) Subscribe(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := f.run(ctx, onNext); err != nil && ctx.Err() == nil {
			onError(err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (f Feed[T]) run(ctx context.Context, onNext func(T)) error {
	// Open before the first load so no change between the two is missed.
	s, err := f.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		_ = s.Close(cctx)
	}()

	if err := f.emit(ctx, onNext); err != nil {
		return err
	}
	for s.Next(ctx) {
		for s.TryNext(ctx) {
		}
		if err := f.emit(ctx, onNext); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return ErrStreamEnded
}

func (f Feed[T]) emit(ctx context.Context, onNext func(T)) error {
	v, err := f.Load(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	onNext(v)
	return nil
}

// Watch opens a change stream on coll restricted by match.
func Watch(coll *mongo.Collection, match bson.D) Opener {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	return func(ctx context.Context) (Stream, error) {
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		cs, err := coll.Watch(ctx, pipeline, opts)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}
}

// WatchDatabase opens a change stream across every collection of db
// restricted by match. Use "ns.coll" in match to pick collections.
func WatchDatabase(db *mongo.Database, match bson.D) Opener {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	return func(ctx context.Context) (Stream, error) {
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		cs, err := db.Watch(ctx, pipeline, opts)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}
}

// DocumentMatch matches changes to the single document with _id id.
func DocumentMatch(id any) bson.D {
	return bson.D{{Key: "documentKey._id", Value: id}}
}

// WorkspaceMatch matches changes to documents of wsID. Delete events carry
// no document body, so every delete in the collection matches and triggers
// a reload.
func WorkspaceMatch(wsID any) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "fullDocument.workspace_id", Value: wsID}},
		bson.D{{Key: "operationType", Value: "delete"}},
	}}}
}
