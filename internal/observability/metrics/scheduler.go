// Package metrics names and tags the metrics the scheduler emits.
package metrics

import (
	"errors"
	"reflect"
	"strings"
	"time"

	apperrors "github.com/target/inboxjobs/internal/errors"
	"github.com/target/inboxjobs/internal/observability/statsd"
)

// Metric names.
const (
	InvocationCount    = "scheduler.invocation"
	InvocationDuration = "scheduler.invocation.duration"
	JobCreated         = "jobs.created"
)

// OutcomeError tags invocations that returned an error instead of a result.
const OutcomeError = "error"

// Invocation describes one scheduler wake-up.
type Invocation struct {
	Outcome  string
	JobType  string
	Duration time.Duration
	Err      error
}

// EmitInvocation counts the wake-up by outcome and records its duration.
func EmitInvocation(sink statsd.Sink, in Invocation) {
	if sink == nil {
		return
	}
	tags := statsd.Tags{"outcome": in.Outcome}
	if in.JobType != "" {
		tags["job_type"] = in.JobType
	}
	if in.Err != nil {
		tags["outcome"] = OutcomeError
		tags["error_class"] = ErrorClass(in.Err)
	}
	sink.Count(InvocationCount, 1, tags)
	if in.Duration > 0 {
		sink.Timing(InvocationDuration, in.Duration, tags)
	}
}

// EmitJobCreated counts an admitted job.
func EmitJobCreated(sink statsd.Sink, jobType string) {
	if sink == nil {
		return
	}
	sink.Count(JobCreated, 1, statsd.Tags{"job_type": jobType})
}

// ErrorClass names err for tagging: the application error code when there is one,
// otherwise the innermost concrete type, e.g. "net_operror".
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
