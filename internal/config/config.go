package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/store"
	"github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

const defaultDataDir = "."
const defaultListenAddress = ":8080"

// Configuration holds every setting read from the environment, keyed by its
// lowercase name.
type Configuration map[string]any

// ReadConfig reads the configuration from the environment. A .env file in DATA_DIR is
// loaded first if present; variables already set in the environment take precedence.
func ReadConfig() Configuration {
	c := Configuration{}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	c["data_dir"] = dataDir

	if err := godotenv.Load(filepath.Join(dataDir, ".env")); err != nil {
		logrus.Debugf("No env file in %s, reading from environment variables", dataDir)
	}

	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	c["log_level"] = level.String()
	SetLogLevel(level)

	c["scan_interval"] = envSeconds("SCAN_INTERVAL_SECONDS", supervisor.DefaultScanInterval)
	windows := supervisor.DefaultDetectionWindows()
	c["vital_window"] = envSeconds("VITAL_WINDOW_SECONDS", windows[types.CriticalityVital])
	c["important_window"] = envSeconds("IMPORTANT_WINDOW_SECONDS", windows[types.CriticalityImportant])
	c["standard_window"] = envSeconds("STANDARD_WINDOW_SECONDS", windows[types.CriticalityStandard])
	c["restart_threshold"] = envSeconds("RESTART_THRESHOLD_SECONDS", supervisor.DefaultRestartThreshold)
	c["launcher_timeout"] = envSeconds("LAUNCHER_TIMEOUT_SECONDS", supervisor.DefaultLauncherTimeout)

	thresholds := supervisor.DefaultCrashThresholds()
	c["crash_window"] = envSeconds("CRASH_WINDOW_SECONDS", supervisor.DefaultCrashWindow)
	c["crash_advisory_threshold"] = envInt("CRASH_ADVISORY_THRESHOLD", thresholds.Advisory)
	c["crash_degraded_threshold"] = envInt("CRASH_DEGRADED_THRESHOLD", thresholds.Degraded)
	c["crash_disabled_threshold"] = envInt("CRASH_DISABLED_THRESHOLD", thresholds.Disabled)
	c["crash_excluded_sources"] = envList("CRASH_EXCLUDED_SOURCES")
	c["event_retention"] = envSeconds("EVENT_RETENTION_SECONDS", supervisor.DefaultEventRetention)

	backoff, err := ParseSchedule(os.Getenv("DEPENDENCY_BACKOFF_SECONDS"))
	if err != nil {
		logrus.Errorf("Error parsing DEPENDENCY_BACKOFF_SECONDS: %s. Setting to default.", err)
		backoff = nil
	}
	if len(backoff) == 0 {
		backoff = supervisor.DefaultDependencyBackoff()
	}
	c["dependency_backoff"] = backoff
	c["dependency_url"] = os.Getenv("DEPENDENCY_URL")
	c["dependency_reset_url"] = os.Getenv("DEPENDENCY_RESET_URL")

	workers, err := ParseManagedWorkers(os.Getenv("MANAGED_WORKERS"))
	if err != nil {
		logrus.Errorf("Error parsing MANAGED_WORKERS: %s. No workers will be managed.", err)
		workers = []ManagedWorker{}
	}
	c["managed_workers"] = workers

	c["emergency_stop_file"] = os.Getenv("EMERGENCY_STOP_FILE")
	c["rest_flag_file"] = os.Getenv("REST_FLAG_FILE")

	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = store.DriverMemory
	}
	c["store_driver"] = driver
	c["store_dsn"] = os.Getenv("STORE_DSN")

	listenAddress := os.Getenv("LISTEN_ADDRESS")
	if listenAddress == "" {
		listenAddress = defaultListenAddress
	}
	c["listen_address"] = listenAddress

	// API Key for authentication
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		c["api_key"] = apiKey
	}

	c["profiling_enabled"] = os.Getenv("ENABLE_PPROF") == "true"

	return c
}

func envSeconds(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		logrus.Errorf("Error parsing %s=%q. Setting to default %v.", key, s, def)
		return def
	}
	return time.Duration(v) * time.Second
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		logrus.Errorf("Error parsing %s=%q. Setting to default %d.", key, s, def)
		return def
	}
	return v
}

func envList(key string) []string {
	s := os.Getenv(key)
	if s == "" {
		return []string{}
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseSchedule parses a comma separated list of seconds, e.g. "5,10,30,60".
func ParseSchedule(s string) ([]time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []time.Duration
	for _, item := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return nil, fmt.Errorf("invalid backoff step %q: %w", item, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("invalid backoff step %q: must be positive", item)
		}
		out = append(out, time.Duration(v)*time.Second)
	}
	return out, nil
}

// ManagedWorker is a worker process the supervisor starts and restarts itself.
type ManagedWorker struct {
	Name        string
	Criticality types.Criticality
	Command     []string
}

// ParseManagedWorkers parses a semicolon separated list of name=CRITICALITY=command
// entries, e.g. "indexer=VITAL=/usr/bin/indexer --fast;reporter=STANDARD=/usr/bin/reporter".
func ParseManagedWorkers(s string) ([]ManagedWorker, error) {
	workers := []ManagedWorker{}
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid worker %q: expected name=CRITICALITY=command", entry)
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("invalid worker %q: empty name", entry)
		}
		criticality, err := types.ParseCriticality(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid worker %q: %w", entry, err)
		}
		command := strings.Fields(parts[2])
		if len(command) == 0 {
			return nil, fmt.Errorf("invalid worker %q: empty command", entry)
		}
		workers = append(workers, ManagedWorker{Name: name, Criticality: criticality, Command: command})
	}
	return workers, nil
}

func (c Configuration) ManagedWorkers() []ManagedWorker {
	if v, ok := c["managed_workers"].([]ManagedWorker); ok {
		return v
	}
	return []ManagedWorker{}
}

func (c Configuration) DataDir() string {
	return c.GetString("data_dir", defaultDataDir)
}

func (c Configuration) ListenAddress() string {
	return c.GetString("listen_address", defaultListenAddress)
}

func (c Configuration) APIKey() string {
	return c.GetString("api_key", "")
}

func (c Configuration) ProfilingEnabled() bool {
	return c.GetBool("profiling_enabled", false)
}

// GetInt safely extracts an int from the Configuration, with a default fallback
func (c Configuration) GetInt(key string, def int) (int, error) {
	if v, ok := c[key]; ok {
		switch val := v.(type) {
		case int:
			return val, nil
		case int64:
			return int(val), nil
		case float64:
			return int(val), nil
		default:
			return def, fmt.Errorf("value %v for key %q cannot be converted to int", val, key)
		}
	}
	return def, nil
}

func (c Configuration) GetDuration(key string, def time.Duration) time.Duration {
	if v, ok := c[key]; ok {
		if val, ok := v.(time.Duration); ok {
			return val
		}
	}
	return def
}

func (c Configuration) GetDurations(key string, def []time.Duration) []time.Duration {
	if v, ok := c[key]; ok {
		if val, ok := v.([]time.Duration); ok {
			return val
		}
	}
	return def
}

func (c Configuration) GetString(key string, def string) string {
	if v, ok := c[key]; ok {
		if val, ok := v.(string); ok {
			return val
		}
	}
	return def
}

// GetStringSlice safely extracts a string slice from the Configuration, with a default fallback
func (c Configuration) GetStringSlice(key string, def []string) []string {
	if v, ok := c[key]; ok {
		if val, ok := v.([]string); ok {
			return val
		}
	}
	return def
}

// GetBool safely extracts a bool from the Configuration, with a default fallback
func (c Configuration) GetBool(key string, def bool) bool {
	if v, ok := c[key]; ok {
		if val, ok := v.(bool); ok {
			return val
		}
	}
	return def
}

// SupervisorConfig builds the supervisor tuning from the Configuration.
func (c Configuration) SupervisorConfig() supervisor.Config {
	d := supervisor.DefaultConfig()
	thresholds := supervisor.CrashThresholds{}
	thresholds.Advisory, _ = c.GetInt("crash_advisory_threshold", d.CrashThresholds.Advisory)
	thresholds.Degraded, _ = c.GetInt("crash_degraded_threshold", d.CrashThresholds.Degraded)
	thresholds.Disabled, _ = c.GetInt("crash_disabled_threshold", d.CrashThresholds.Disabled)

	return supervisor.Config{
		ScanInterval: c.GetDuration("scan_interval", d.ScanInterval),
		DetectionWindows: map[types.Criticality]time.Duration{
			types.CriticalityVital:     c.GetDuration("vital_window", d.DetectionWindows[types.CriticalityVital]),
			types.CriticalityImportant: c.GetDuration("important_window", d.DetectionWindows[types.CriticalityImportant]),
			types.CriticalityStandard:  c.GetDuration("standard_window", d.DetectionWindows[types.CriticalityStandard]),
		},
		RestartThreshold:  c.GetDuration("restart_threshold", d.RestartThreshold),
		LauncherTimeout:   c.GetDuration("launcher_timeout", d.LauncherTimeout),
		CrashWindow:       c.GetDuration("crash_window", d.CrashWindow),
		CrashThresholds:   thresholds,
		ExcludedSources:   c.GetStringSlice("crash_excluded_sources", nil),
		EventRetention:    c.GetDuration("event_retention", d.EventRetention),
		DependencyBackoff: c.GetDurations("dependency_backoff", d.DependencyBackoff),
		StopTimeout:       d.StopTimeout,
	}
}

// StoreConfig returns the store driver and DSN.
func (c Configuration) StoreConfig() (driver, dsn string) {
	return c.GetString("store_driver", store.DriverMemory), c.GetString("store_dsn", "")
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.Error("Invalid log level", "level", logLevel, "setting_to", logrus.InfoLevel.String())
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
