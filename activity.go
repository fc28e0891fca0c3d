package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventTokenIssued      ActivityEventType = "auth.token.issued"
	ActivityEventTokenRefreshed   ActivityEventType = "auth.token.refreshed"
	ActivityEventTokenRevoked     ActivityEventType = "auth.token.revoked"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventUserSaved        ActivityEventType = "user.saved"
	ActivityEventUserSaveRejected ActivityEventType = "user.save.rejected"
)

// ActorRef identifies who triggered an event
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	ClientID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink record error", "event", event.EventType, "error", err)
	}
}

func actorFromAuthentication(a *Authentication) ActorRef {
	if a == nil {
		return ActorRef{Type: "unknown"}
	}

	if a.IsClientOnly() {
		return ActorRef{ID: a.ClientID, Type: "client"}
	}

	return ActorRef{ID: a.UserID.String(), Type: "user"}
}

func actorFromCaller(c *Caller) ActorRef {
	if c == nil {
		return ActorRef{Type: "unknown"}
	}

	if c.IsClientOnly() {
		return ActorRef{ID: c.ClientID, Type: "client"}
	}

	return ActorRef{ID: c.UserID.String(), Type: "user"}
}
