package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SaveUserMessage asks for a user payload to be validated and persisted on
// behalf of Caller.
type SaveUserMessage struct {
	Caller     *Caller
	User       *UserRequest
	OnResponse func(resp *SaveUserResponse)
}

func (e SaveUserMessage) Type() string { return "user.save" }

// SaveUserResponse carries the saved user
type SaveUserResponse struct {
	User    *UserRequest
	Created bool
}

// SaveUserHandler validates then saves users
type SaveUserHandler struct {
	validator *UserValidator
	service   *UserService
	activity  ActivitySink
	logger    Logger
	timeout   time.Duration
}

// NewSaveUserHandler wires a validator and a user service together
func NewSaveUserHandler(validator *UserValidator, service *UserService) *SaveUserHandler {
	return &SaveUserHandler{
		validator: validator,
		service:   service,
		activity:  noopActivitySink{},
		logger:    defLogger{},
		timeout:   time.Second * 10,
	}
}

// WithActivitySink configures an ActivitySink for user save events.
func (h *SaveUserHandler) WithActivitySink(sink ActivitySink) *SaveUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger sets the logger
func (h *SaveUserHandler) WithLogger(logger Logger) *SaveUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *SaveUserHandler) Execute(ctx context.Context, event SaveUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user save",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SaveUserHandler) execute(ctx context.Context, event SaveUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if event.Caller == nil {
		return ErrMissingCaller
	}

	result, err := h.validator.Validate(ctx, event.Caller, event.User)
	if err != nil {
		return err
	}

	if err := result.Err(); err != nil {
		recordActivity(ctx, h.activity, h.logger, ActivityEvent{
			EventType: ActivityEventUserSaveRejected,
			Actor:     actorFromCaller(event.Caller),
			UserID:    requestUserID(event.User),
			ClientID:  event.Caller.ClientID,
			Metadata:  map[string]any{"violations": result.Violations()},
		})
		return err
	}

	saved, operation, err := h.service.SaveUser(ctx, event.User)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user save failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventUserSaved,
		Actor:     actorFromCaller(event.Caller),
		UserID:    requestUserID(saved),
		ClientID:  event.Caller.ClientID,
		Metadata:  map[string]any{"operation": string(operation)},
	})

	if event.OnResponse != nil {
		event.OnResponse(&SaveUserResponse{
			User:    saved,
			Created: operation == SaveOperationCreate,
		})
	}

	return nil
}

func requestUserID(req *UserRequest) string {
	id := req.UserID()
	if id == nil {
		return ""
	}
	return id.String()
}
