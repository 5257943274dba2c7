package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admin/jobs"
)

// Enqueuer submits permission invalidation tasks.
type Enqueuer interface {
	EnqueuePermissionsInvalidate(ctx context.Context, roleID int64) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector *asynq.Inspector
	stdout    io.Writer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string, stdout io.Writer) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{
		client:    jobs.NewClient(opts),
		inspector: asynq.NewInspector(opts),
		stdout:    stdout,
	}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if closer, ok := c.client.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Run dispatches a jobs subcommand and returns the process exit code.
func (c *JobsCLI) Run(ctx context.Context, args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: odyssey-admin jobs <invalidate-permissions|queue> [flags]")
		return 2
	}
	switch args[0] {
	case "invalidate-permissions":
		fs := flag.NewFlagSet("invalidate-permissions", flag.ContinueOnError)
		fs.SetOutput(stderr)
		role := fs.String("role", "", "role id to evict, or \"all\"")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		roleID, err := ParseRoleArg(*role)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		info, err := c.InvalidatePermissions(ctx, roleID)
		if err != nil {
			fmt.Fprintln(stderr, "enqueue:", err)
			return 1
		}
		fmt.Fprintf(c.stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "queue":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "inspect:", err)
			return 1
		}
		fmt.Fprintf(c.stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		fmt.Fprintf(stderr, "jobs cli: unknown command %q\n", args[0])
		return 2
	}
}

// ParseRoleArg accepts a positive role id or "all" (returned as 0).
func ParseRoleArg(raw string) (int64, error) {
	if raw == "all" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("jobs cli: --role must be a positive integer or \"all\", got %q", raw)
	}
	return id, nil
}

// InvalidatePermissions enqueues eviction of a role's memoized permission set.
func (c *JobsCLI) InvalidatePermissions(ctx context.Context, roleID int64) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueuePermissionsInvalidate(ctx, roleID)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}
