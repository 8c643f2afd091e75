// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryWorkspace  = "workspace"
	CategoryInvitation = "invitation"
	CategoryMembership = "membership"
)

// Event types
const (
	EventWorkspaceCreated       = "workspace_created"
	EventWorkspaceRenamed       = "workspace_renamed"
	EventWorkspaceDeleted       = "workspace_deleted"
	EventInvitationIssued       = "invitation_issued"
	EventInvitationRevoked      = "invitation_revoked"
	EventInvitationRedeemed     = "invitation_redeemed"
	EventInvitationRedeemFailed = "invitation_redeem_failed"
	EventMemberKicked           = "member_kicked"
	EventMemberLeft             = "member_left"
)

// Event represents an audit event.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Timestamp   time.Time           `bson:"timestamp" json:"timestamp"`
	WorkspaceID *primitive.ObjectID `bson:"workspace_id,omitempty" json:"workspace_id,omitempty"`

	// Event classification
	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// Who
	ActorUID  string `bson:"actor_uid" json:"actor_uid"`                       // who performed the action
	TargetUID string `bson:"target_uid,omitempty" json:"target_uid,omitempty"` // affected user, when not the actor

	// Context
	IP        string `bson:"ip" json:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	WorkspaceID *primitive.ObjectID
	ActorUID    string
	Category    string
	EventType   string
	StartTime   *time.Time
	EndTime     *time.Time
	Limit       int64
	Offset      int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	query := bson.M{}
	if f.WorkspaceID != nil {
		query["workspace_id"] = *f.WorkspaceID
	}
	if f.ActorUID != "" {
		query["actor_uid"] = f.ActorUID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByWorkspace retrieves recent audit events for a workspace.
func (s *Store) GetByWorkspace(ctx context.Context, wsID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{WorkspaceID: &wsID, Limit: limit})
}
