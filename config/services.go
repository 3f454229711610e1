package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the job control HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScheduler runs the periodic scheduler runner.
	ServiceModeScheduler ServiceMode = "scheduler"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeScheduler,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeScheduler:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scheduler)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SchedulerConfig contains scheduler service configuration.
type SchedulerConfig struct {
	// PageSize is the number of threads one invocation touches.
	PageSize int `env:"SCHEDULER_PAGE_SIZE" envDefault:"100"`

	// InvocationBudget is the deadline of one scheduler invocation.
	InvocationBudget time.Duration `env:"SCHEDULER_INVOCATION_BUDGET" envDefault:"5m"`

	// PollInterval is how often the runner checks whether a wake-up is due.
	PollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"5s"`

	// TriggerInterval is the wake-up interval registered when a job is created.
	TriggerInterval time.Duration `env:"SCHEDULER_TRIGGER_INTERVAL" envDefault:"1m"`

	// UseLease guards each invocation with a Redis lease so overlapping runners skip.
	UseLease bool `env:"SCHEDULER_USE_LEASE" envDefault:"true"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.PageSize < 1 {
		s.PageSize = 1
	}
	if s.PageSize > 500 {
		s.PageSize = 500
	}
	if s.InvocationBudget < 10*time.Second {
		s.InvocationBudget = 10 * time.Second
	}
	if s.PollInterval < time.Second {
		s.PollInterval = time.Second
	}
	if s.TriggerInterval < time.Minute {
		s.TriggerInterval = time.Minute
	}
}
