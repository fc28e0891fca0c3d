package activitymap

import (
	"context"

	auth "github.com/goliatone/go-logistics-auth"
)

// LogSink returns an ActivitySink that writes normalized events to logger.
// Rejections and login failures are logged as warnings.
func LogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		if logger == nil {
			return nil
		}

		record := Normalize(event, opts...)
		args := []any{
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_type", record.ObjectType,
			"object_id", record.ObjectID,
			"channel", record.Channel,
		}
		for key, value := range record.Metadata {
			args = append(args, key, value)
		}

		switch event.EventType {
		case auth.ActivityEventLoginFailure, auth.ActivityEventUserSaveRejected:
			logger.Warn("activity", args...)
		default:
			logger.Info("activity", args...)
		}
		return nil
	})
}

// Fanout records each event on every sink, returning the first error
func Fanout(sinks ...auth.ActivitySink) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
