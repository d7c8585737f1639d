package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Runtime is the environment-level configuration: where the artifacts live
// and how a run should behave. It is constructed once at startup and threaded
// through every component call.
type Runtime struct {
	UserConfigPath  string `yaml:"userConfigPath"`
	SystemStatePath string `yaml:"systemStatePath"`
	DryRun          bool   `yaml:"dryRun"`
	LogLevel        string `yaml:"logLevel"`
	// MetricsAddr enables the /metrics server when non-empty (e.g. ":9090").
	MetricsAddr string `yaml:"metricsAddr"`
	// RunLogPath enables the local sqlite execution log when non-empty.
	RunLogPath string `yaml:"runLogPath"`
	// PostDelayMillis paces outbound posts between bots.
	PostDelayMillis int `yaml:"postDelayMillis"`
}

// Default returns the runtime configuration used when no file is present.
func Default() Runtime {
	return Runtime{
		UserConfigPath:  "./config/user-config.json",
		SystemStatePath: "./config/system-state.json",
		LogLevel:        "info",
		RunLogPath:      "./rotapost.db",
		PostDelayMillis: 1000,
	}
}

// PostDelay returns the inter-post pacing delay.
func (r Runtime) PostDelay() time.Duration {
	return time.Duration(r.PostDelayMillis) * time.Millisecond
}

// ResolveEnv overrides fields from environment variables when set.
func (r *Runtime) ResolveEnv() {
	if v := os.Getenv("USER_CONFIG_PATH"); v != "" {
		r.UserConfigPath = v
	}
	if v := os.Getenv("SYSTEM_STATE_PATH"); v != "" {
		r.SystemStatePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		r.LogLevel = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		r.MetricsAddr = v
	}
	if v := os.Getenv("RUNLOG_PATH"); v != "" {
		r.RunLogPath = v
	}
	if os.Getenv("DRY_RUN") == "true" {
		r.DryRun = true
	}
}

// LoadRuntime reads the YAML runtime config from path. A missing file yields
// the defaults; environment overrides are applied in both cases.
func LoadRuntime(path string) (Runtime, error) {
	rt := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			rt.ResolveEnv()
			return rt, nil
		}
		return rt, err
	}
	if err := yaml.Unmarshal(b, &rt); err != nil {
		return rt, err
	}
	rt.ResolveEnv()
	return rt, nil
}

// SaveRuntime writes the YAML runtime config, creating directories as needed.
func SaveRuntime(path string, rt Runtime) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(rt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
