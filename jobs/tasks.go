package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionsInvalidate evicts memoized permission sets.
	TaskPermissionsInvalidate = "rbac:permissions:invalidate"
)

// ErrInvalidRole is returned when a task targets a negative role id.
var ErrInvalidRole = errors.New("jobs: role id must not be negative")

// PermissionsInvalidatePayload names the role whose grants changed.
// A zero RoleID evicts every role.
type PermissionsInvalidatePayload struct {
	RoleID int64 `json:"role_id"`
}

// NewPermissionsInvalidateTask constructs an Asynq task. roleID 0 targets all roles.
func NewPermissionsInvalidateTask(roleID int64) (*asynq.Task, error) {
	if roleID < 0 {
		return nil, ErrInvalidRole
	}
	data, err := json.Marshal(PermissionsInvalidatePayload{RoleID: roleID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionsInvalidate, data), nil
}

// PermissionInvalidator evicts memoized permission sets.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, roleID int64) error
	InvalidateAll(ctx context.Context) (int, error)
}

// PermissionsInvalidateJob handles TaskPermissionsInvalidate.
type PermissionsInvalidateJob struct {
	invalidator PermissionInvalidator
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
}

// NewPermissionsInvalidateJob wires dependencies for the handler. metrics may be nil.
func NewPermissionsInvalidateJob(invalidator PermissionInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *PermissionsInvalidateJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsInvalidateJob{invalidator: invalidator, logger: logger, metrics: metrics}
}

// Handle processes invalidation tasks. Malformed payloads are not retried.
func (j *PermissionsInvalidateJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.invalidator == nil {
		return errors.New("permissions invalidate: handler not configured")
	}
	tracker := j.metrics.Track(TaskPermissionsInvalidate)
	defer func() { err = tracker.End(err) }()

	var payload PermissionsInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Warn("permissions invalidate: bad payload", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}
	if payload.RoleID < 0 {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, ErrInvalidRole)
	}

	if payload.RoleID == 0 {
		removed, err := j.invalidator.InvalidateAll(ctx)
		if err != nil {
			j.logger.Error("invalidate all permission sets", slog.Any("error", err))
			return err
		}
		j.metrics.AddEvictions(removed)
		j.logger.Info("permission sets invalidated", slog.Int("removed", removed))
		return nil
	}
	if err := j.invalidator.Invalidate(ctx, payload.RoleID); err != nil {
		j.logger.Error("invalidate permission set", slog.Int64("role_id", payload.RoleID), slog.Any("error", err))
		return err
	}
	j.metrics.AddEvictions(1)
	j.logger.Info("permission set invalidated", slog.Int64("role_id", payload.RoleID))
	return nil
}
