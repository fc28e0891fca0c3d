package activitymap_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/goliatone/go-logistics-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventUserSaved,
		Actor:     auth.ActorRef{ID: "admin-42", Type: "user"},
		UserID:    "user-100",
		ClientID:  "user-client",
		Metadata: map[string]any{
			"created": true,
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "admin-42" {
		t.Fatalf("expected actor_id admin-42, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventUserSaved) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventUserSaved, out.Verb)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ObjectID != "user-100" {
		t.Fatalf("expected object_id user-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["created"] != true {
		t.Fatalf("expected metadata created true, got %#v", out.Metadata["created"])
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "user" {
		t.Fatalf("expected metadata actor_type user, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyClientID] != "user-client" {
		t.Fatalf("expected metadata client_id user-client, got %#v", out.Metadata[activitymap.MetadataKeyClientID])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeTokenEvents(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventTokenIssued,
		UserID:    "user-1",
		Metadata:  map[string]any{"jti": "token-1"},
	})

	if out.ObjectType != "token" {
		t.Fatalf("expected object_type token, got %q", out.ObjectType)
	}
	if out.ObjectID != "token-1" {
		t.Fatalf("expected object_id token-1, got %q", out.ObjectID)
	}
	if out.ActorID != "user-1" {
		t.Fatalf("expected actor_id user-1, got %q", out.ActorID)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventUserSaveRejected,
		Actor:     auth.ActorRef{Type: "user"},
		UserID:    "user-200",
		Metadata: map[string]any{
			"request_id":                     "req-1",
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			if v, ok := e.Metadata["request_id"].(string); ok {
				return v
			}
			return ""
		}),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "req-1" {
		t.Fatalf("expected object_id req-1, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "existing" {
		t.Fatalf("expected existing actor_type preserved, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: "actor-1"}, UserID: "user-1"},
			expect: "actor-1",
		},
		{
			name:   "uses user id when actor id missing",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: ""}, UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

type lineLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLogger) add(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level)
}

func (l *lineLogger) Debug(string, ...any) { l.add("debug") }
func (l *lineLogger) Info(string, ...any)  { l.add("info") }
func (l *lineLogger) Warn(string, ...any)  { l.add("warn") }
func (l *lineLogger) Error(string, ...any) { l.add("error") }

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	logger := &lineLogger{}
	sink := activitymap.LogSink(logger)
	ctx := context.Background()

	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventTokenIssued}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(logger.lines) != 2 || logger.lines[0] != "info" || logger.lines[1] != "warn" {
		t.Fatalf("expected info then warn, got %v", logger.lines)
	}
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var calls int
	boom := errors.New("boom")
	sink := activitymap.Fanout(
		auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
			calls++
			return boom
		}),
		nil,
		auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
			calls++
			return nil
		}),
	)

	err := sink.Record(context.Background(), auth.ActivityEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected every sink to be called, got %d", calls)
	}
}
