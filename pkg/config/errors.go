package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidUpdateInterval is returned when update interval is <= 0.
	ErrInvalidUpdateInterval = errors.New("invalid update interval: must be > 0")

	// ErrInvalidDebounceInterval is returned when debounce interval is <= 0.
	ErrInvalidDebounceInterval = errors.New("invalid debounce interval: must be > 0")

	// ErrInvalidHistoryRetention is returned when history retention is <= 0.
	ErrInvalidHistoryRetention = errors.New("invalid history retention: must be > 0")

	// ErrInvalidWarningThreshold is returned when warning threshold is outside (0, 1].
	ErrInvalidWarningThreshold = errors.New("invalid warning threshold: must be in (0, 1]")

	// ErrInvalidPlan is returned when the plan name is not recognized.
	ErrInvalidPlan = errors.New("invalid plan: must be pro, max5, max20, or custom")

	// ErrInvalidCustomLimit is returned when a custom plan has no positive limit.
	ErrInvalidCustomLimit = errors.New("invalid custom limit: must be > 0 for custom plan")

	// ErrInvalidDisplayMode is returned when display mode is not recognized.
	ErrInvalidDisplayMode = errors.New("invalid display mode: must be simple, table, or json")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
