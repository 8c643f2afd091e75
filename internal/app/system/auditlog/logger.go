// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/washhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for Config.Mode.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Mode controls where events are recorded: "all", "db", "log" or "off".
	Mode string
	// PublishTimeout bounds each broker publish. Zero means 2s.
	PublishTimeout time.Duration
}

// Publisher forwards audit events to a broker. Satisfied by events.Publisher.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any) error
}

// Logger records audit events to MongoDB (via audit.Store), structured logs
// (via zap) and, when set, a message broker.
type Logger struct {
	store     *audit.Store
	zapLog    *zap.Logger
	publisher Publisher
	config    Config
}

// New creates a new audit Logger. publisher may be nil.
func New(store *audit.Store, zapLog *zap.Logger, publisher Publisher, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	if config.Mode == "" {
		config.Mode = ModeAll
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 2 * time.Second
	}
	return &Logger{
		store:     store,
		zapLog:    zapLog,
		publisher: publisher,
		config:    config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("actor_uid", event.ActorUID),
		zap.String("ip", event.IP),
	}

	if event.WorkspaceID != nil {
		fields = append(fields, zap.String("workspace_id", event.WorkspaceID.Hex()))
	}
	if event.TargetUID != "" {
		fields = append(fields, zap.String("target_uid", event.TargetUID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// The broker receives every event unless the mode is "off"; it is the feed
// for downstream consumers rather than a log destination.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.config.Mode == ModeOff {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	mode := l.config.Mode
	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}

	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}

	if l.publisher != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.config.PublishTimeout)
		defer cancel()
		if err := l.publisher.Publish(pctx, event.EventType, event); err != nil {
			l.zapLog.Warn("failed to publish audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) record(ctx context.Context, r *http.Request, category, eventType, actor string, wsID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:    category,
		EventType:   eventType,
		ActorUID:    actor,
		WorkspaceID: wsID,
		IP:          getClientIP(r),
		UserAgent:   userAgent(r),
		Success:     true,
		Details:     details,
	})
}

// --- Workspace Events ---

// WorkspaceCreated logs creation of a workspace.
func (l *Logger) WorkspaceCreated(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, name string) {
	l.record(ctx, r, audit.CategoryWorkspace, audit.EventWorkspaceCreated, actor, &wsID, map[string]string{
		"workspace_name": name,
	})
}

// WorkspaceRenamed logs a rename.
func (l *Logger) WorkspaceRenamed(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, name string) {
	l.record(ctx, r, audit.CategoryWorkspace, audit.EventWorkspaceRenamed, actor, &wsID, map[string]string{
		"workspace_name": name,
	})
}

// WorkspaceDeleted logs deletion of a workspace.
func (l *Logger) WorkspaceDeleted(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, contributors int) {
	l.record(ctx, r, audit.CategoryWorkspace, audit.EventWorkspaceDeleted, actor, &wsID, map[string]string{
		"contributors": strconv.Itoa(contributors),
	})
}

// --- Invitation Events ---

// InvitationIssued logs a new invitation code.
func (l *Logger) InvitationIssued(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, code string, max int) {
	l.record(ctx, r, audit.CategoryInvitation, audit.EventInvitationIssued, actor, &wsID, map[string]string{
		"code":             code,
		"max_contributors": strconv.Itoa(max),
	})
}

// InvitationRevoked logs an owner expiring a code early.
func (l *Logger) InvitationRevoked(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, code string) {
	l.record(ctx, r, audit.CategoryInvitation, audit.EventInvitationRevoked, actor, &wsID, map[string]string{
		"code": code,
	})
}

// InvitationRedeemed logs a successful join.
func (l *Logger) InvitationRedeemed(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, code string) {
	l.record(ctx, r, audit.CategoryInvitation, audit.EventInvitationRedeemed, actor, &wsID, map[string]string{
		"code": code,
	})
}

// InvitationRedeemFailed logs a refused join. reason is the error code
// returned to the caller.
func (l *Logger) InvitationRedeemFailed(ctx context.Context, r *http.Request, actor, code, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryInvitation,
		EventType:     audit.EventInvitationRedeemFailed,
		ActorUID:      actor,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: reason,
		Details: map[string]string{
			"code": code,
		},
	})
}

// --- Membership Events ---

// MemberKicked logs the owner removing a member.
func (l *Logger) MemberKicked(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID, target string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryMembership,
		EventType:   audit.EventMemberKicked,
		ActorUID:    actor,
		TargetUID:   target,
		WorkspaceID: &wsID,
		IP:          getClientIP(r),
		UserAgent:   userAgent(r),
		Success:     true,
	})
}

// MemberLeft logs a member leaving on their own.
func (l *Logger) MemberLeft(ctx context.Context, r *http.Request, actor string, wsID primitive.ObjectID) {
	l.record(ctx, r, audit.CategoryMembership, audit.EventMemberLeft, actor, &wsID, nil)
}
