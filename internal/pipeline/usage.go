// internal/pipeline/usage.go
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcp-tg/github-reader/internal/logging"
	"github.com/mcp-tg/github-reader/internal/storage"
)

// usageKeyPrefix scopes usage records in the store.
const usageKeyPrefix = "middleware/usage/"

// maxRetainedErrors bounds the per-tool failure history; oldest entries are
// evicted first.
const maxRetainedErrors = 10

// CallError is one retained failure.
type CallError struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// UsageStats is the durable running aggregate for one tool. Invariants:
// TotalCalls == SuccessfulCalls + FailedCalls, and AverageExecutionTime ==
// TotalExecutionTime / TotalCalls whenever TotalCalls > 0. Durations are
// seconds.
type UsageStats struct {
	ToolName             string      `json:"tool_name"`
	TotalCalls           int64       `json:"total_calls"`
	SuccessfulCalls      int64       `json:"successful_calls"`
	FailedCalls          int64       `json:"failed_calls"`
	TotalExecutionTime   float64     `json:"total_execution_time"`
	AverageExecutionTime float64     `json:"average_execution_time"`
	LastCalled           string      `json:"last_called"`
	Errors               []CallError `json:"errors"`
}

// TrackingError wraps a failure while persisting usage statistics. It is
// always contained at the usage interceptor: logged, never propagated, and
// it never replaces the original invocation outcome.
type TrackingError struct {
	Tool string
	Err  error
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("failed to track usage for %s: %v", e.Tool, e.Err)
}

func (e *TrackingError) Unwrap() error {
	return e.Err
}

// MetricsRecorder receives per-invocation telemetry. Implemented by the
// server's OTEL metrics; nil disables recording.
type MetricsRecorder interface {
	IncrementActive(ctx context.Context, toolName string)
	DecrementActive(ctx context.Context, toolName string)
	RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error)
}

// UsageInterceptor wraps each invocation with timing and outcome
// accounting. Each completed invocation, success or failure, performs
// exactly one read-modify-write of the tool's usage record. Updates for a
// given tool are serialized with a per-tool mutex so concurrent calls never
// lose an increment.
type UsageInterceptor struct {
	store   *storage.Store
	logger  *logging.Logger
	metrics MetricsRecorder
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUsageInterceptor creates the usage interceptor. metrics may be nil.
func NewUsageInterceptor(store *storage.Store, logger *logging.Logger, metrics MetricsRecorder) *UsageInterceptor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &UsageInterceptor{
		store:   store,
		logger:  logger.Named("usage"),
		metrics: metrics,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Name implements Interceptor.
func (u *UsageInterceptor) Name() string { return "usage" }

// Intercept generates a fresh correlation identifier, times the inner
// stage, records the outcome, and returns the handler's result or error
// unchanged.
func (u *UsageInterceptor) Intercept(ctx context.Context, desc *Descriptor, next Handler) (any, error) {
	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	start := u.now()
	u.logger.Info(ctx, "starting tool execution",
		zap.String("tool_name", desc.Name))

	if u.metrics != nil {
		u.metrics.IncrementActive(ctx, desc.Name)
	}

	result, err := next(ctx)

	elapsed := u.now().Sub(start)
	if u.metrics != nil {
		u.metrics.DecrementActive(ctx, desc.Name)
		u.metrics.RecordInvocation(ctx, desc.Name, elapsed, err)
	}

	// The record must reflect the call whether it succeeded or failed.
	u.track(ctx, desc.Name, elapsed, err)

	if err != nil {
		u.logger.Error(ctx, "tool execution failed",
			zap.String("tool_name", desc.Name),
			zap.Float64("execution_time_ms", float64(elapsed)/float64(time.Millisecond)),
			zap.String("error", err.Error()))
		return nil, err
	}

	u.logger.Info(ctx, "tool execution completed",
		zap.String("tool_name", desc.Name),
		zap.Float64("execution_time_ms", float64(elapsed)/float64(time.Millisecond)))
	return result, nil
}

// lockFor returns the mutex serializing updates for one tool name.
func (u *UsageInterceptor) lockFor(tool string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.locks[tool]
	if !ok {
		l = &sync.Mutex{}
		u.locks[tool] = l
	}
	return l
}

// track performs the single read-modify-write for this invocation. Store
// failures are wrapped as *TrackingError, logged and swallowed so they can
// never mask the invocation outcome.
func (u *UsageInterceptor) track(ctx context.Context, tool string, elapsed time.Duration, callErr error) {
	lock := u.lockFor(tool)
	lock.Lock()
	defer lock.Unlock()

	key := usageKeyPrefix + tool

	stats := UsageStats{ToolName: tool, Errors: []CallError{}}
	if _, err := u.store.Load(key, &stats); err != nil {
		u.swallow(ctx, &TrackingError{Tool: tool, Err: err})
		return
	}
	// A record created before this field existed, or hand-edited.
	if stats.ToolName == "" {
		stats.ToolName = tool
	}

	now := u.now().UTC()

	stats.TotalCalls++
	stats.TotalExecutionTime += elapsed.Seconds()
	if callErr == nil {
		stats.SuccessfulCalls++
	} else {
		stats.FailedCalls++
		stats.Errors = append(stats.Errors, CallError{
			Timestamp: now.Format(time.RFC3339Nano),
			Error:     callErr.Error(),
		})
		if n := len(stats.Errors); n > maxRetainedErrors {
			stats.Errors = stats.Errors[n-maxRetainedErrors:]
		}
	}
	stats.AverageExecutionTime = stats.TotalExecutionTime / float64(stats.TotalCalls)
	stats.LastCalled = now.Format(time.RFC3339Nano)

	if _, err := u.store.Save(key, &stats); err != nil {
		u.swallow(ctx, &TrackingError{Tool: tool, Err: err})
		return
	}

	u.logger.Debug(ctx, "usage stats saved",
		zap.String("tool_name", tool),
		zap.Int64("total_calls", stats.TotalCalls))
}

func (u *UsageInterceptor) swallow(ctx context.Context, terr *TrackingError) {
	u.logger.Error(ctx, "usage tracking failed",
		zap.String("tool_name", terr.Tool),
		zap.Error(terr))
}
