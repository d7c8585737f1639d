package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"rotapost/internal/logging"
	"rotapost/internal/model"
	"rotapost/internal/schedule"
)

// LoadUserConfig reads and decodes the user config artifact. Any failure here
// is fatal to the run: no bot-level work is meaningful without it.
func LoadUserConfig(path string) (*model.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user config: %w", err)
	}
	var cfg model.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse user config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadSystemState reads the system state artifact. Missing or malformed state
// is not fatal: it degrades to nil (treated as empty) with a warning, because
// cursor continuity is recoverable while the user config is not.
func LoadSystemState(path string) *model.SystemState {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("system_state_unreadable", map[string]any{"path": path, "error": err.Error()})
		}
		return nil
	}
	var state model.SystemState
	if err := json.Unmarshal(b, &state); err != nil {
		logging.Warn("system_state_malformed", map[string]any{"path": path, "error": err.Error()})
		return nil
	}
	return &state
}

// LoadMerged loads both artifacts and returns the canonical merged config.
func LoadMerged(rt Runtime) (*model.Config, error) {
	user, err := LoadUserConfig(rt.UserConfigPath)
	if err != nil {
		return nil, err
	}
	return Merge(user, LoadSystemState(rt.SystemStatePath)), nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// SaveSystemState rewrites the system state artifact wholesale.
func SaveSystemState(path string, state model.SystemState) error {
	if err := writeJSON(path, state); err != nil {
		return fmt.Errorf("write system state: %w", err)
	}
	return nil
}

// SaveConfig writes a config-shaped artifact (user config or canonical).
func SaveConfig(path string, cfg model.Config) error {
	if err := writeJSON(path, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ValidateUserConfig returns human-readable findings for a loaded user
// config. An empty result means the config is structurally sound.
func ValidateUserConfig(c *model.Config) []string {
	var findings []string
	seen := map[string]int{}
	for i, bot := range c.Bots {
		name := "bot#" + strconv.Itoa(i+1)
		if bot.Account == nil {
			findings = append(findings, name+": missing account")
			continue
		}
		if bot.Account.Name != "" {
			name = bot.Account.Name
		}
		switch bot.Account.Status {
		case model.StatusActive, model.StatusInactive, model.StatusError, "":
		default:
			findings = append(findings, name+": unknown status "+strconv.Quote(bot.Account.Status))
		}
		if key := model.AccountKey(bot.Account); key != "" {
			seen[key]++
			if seen[key] == 2 {
				findings = append(findings, name+": duplicate account key "+key)
			}
		} else {
			findings = append(findings, name+": account has neither id nor name")
		}
		if bot.ScheduledTimes != "" && len(schedule.ParseWindows(bot.ScheduledTimes)) == 0 {
			findings = append(findings, name+": scheduled_times has no valid tokens")
		}
	}
	for i, setting := range c.ReplySettings {
		name := "reply_setting#" + strconv.Itoa(i+1)
		if model.ReplyKey(&setting) == "" {
			findings = append(findings, name+": has neither id nor reply_bot_id")
		}
		if setting.ReplyContent == "" {
			findings = append(findings, name+": empty reply_content")
		}
	}
	return findings
}
