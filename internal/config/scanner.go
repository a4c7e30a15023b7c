package config

// ScannerConfig configures the Auto-Scanner supervisor (spec.md §4.C).
type ScannerConfig struct {
	// AutoScanEnabled is the global master switch; per-repo auto_scan flags
	// are only honored when this is true.
	AutoScanEnabled bool `yaml:"auto_scan_enabled"`
	// DefaultIntervalMinutes seeds new repos' scan_interval_minutes.
	DefaultIntervalMinutes int `yaml:"default_interval_minutes"`
	// MaxConcurrentScans is the global scan-concurrency semaphore capacity.
	MaxConcurrentScans int `yaml:"max_concurrent_scans"`
	// ProgressBatchSize is N in "every N files, write a progress snapshot".
	ProgressBatchSize int `yaml:"progress_batch_size"`
	// TickInterval is how often the supervisor re-evaluates eligibility (≤60s).
	TickInterval string `yaml:"tick_interval"`
}

// MinScanIntervalMinutes and MaxScanIntervalMinutes bound
// scan_interval_minutes per spec.md §3.
const (
	MinScanIntervalMinutes = 5
	MaxScanIntervalMinutes = 1440
)

// ValidateScanInterval enforces the [5, 1440] bound from spec.md §3/§8.
func ValidateScanInterval(minutes int) error {
	if minutes < MinScanIntervalMinutes || minutes > MaxScanIntervalMinutes {
		return ValidationError{
			Field:   "scan_interval_minutes",
			Message: "must be between 5 and 1440",
		}
	}
	return nil
}

// ValidationError reports a boundary validation failure (spec.md §7).
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
