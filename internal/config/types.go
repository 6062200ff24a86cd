// Package config defines the lookup definitions and runtime options for the audit agent.
package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Setting keys understood by the settings reader.
const (
	KeyIdleDelay    = "idle_delay"
	KeyLockDelay    = "lock_delay"
	KeyLockEnabled  = "lock_enabled"
	KeySerialNumber = "serial_number"
	KeySystemUUID   = "system_uuid"
)

// Config represents the complete lookup configuration.
type Config struct {
	Settings map[string]SettingDefinition `yaml:"settings"`
}

// SettingDefinition is a map of OS names to an ordered list of lookup rules.
// The key can be:
// - "description" for the setting description
// - An OS name like "linux", "freebsd"
// - A comma-separated list like "linux,freebsd"
// - "unix" for all Unix-like systems
// - "all" for all systems.
//
// The first rule of a list reads the primary store, the second the fallback store.
type SettingDefinition map[string]any

// CommandRule defines a single lookup command.
type CommandRule struct {
	Output     string `yaml:"output,omitempty"`     // Command to execute
	Privileged bool   `yaml:"privileged,omitempty"` // Command needs elevated privilege; failure is fatal
}

// Load parses lookup definitions from YAML.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}
	if len(cfg.Settings) == 0 {
		return nil, errors.New("sources config defines no settings")
	}
	return &cfg, nil
}

// Description returns the human-readable description of the setting, if any.
func (sd SettingDefinition) Description() string {
	if d, ok := sd["description"].(string); ok {
		return d
	}
	return ""
}

// CommandsForOS returns the lookup rules for a specific OS.
// Priority order:
// 1. Exact OS match (e.g., "freebsd")
// 2. Comma-separated match (e.g., "linux,freebsd")
// 3. Unix (for all Unix-like systems)
// 4. All (works on any OS).
func (sd SettingDefinition) CommandsForOS(osName string) []CommandRule {
	if rules := sd.parseRules(osName); rules != nil {
		return rules
	}

	for key := range sd {
		if strings.Contains(key, ",") {
			for _, part := range strings.Split(key, ",") {
				if strings.TrimSpace(part) == osName {
					if rules := sd.parseRules(key); rules != nil {
						return rules
					}
					break
				}
			}
		}
	}

	if osName != "windows" {
		if rules := sd.parseRules("unix"); rules != nil {
			return rules
		}
	}

	return sd.parseRules("all")
}

// parseRules converts the raw YAML data into a CommandRule slice.
func (sd SettingDefinition) parseRules(key string) []CommandRule {
	val, exists := sd[key]
	if !exists || val == nil {
		return nil
	}

	slice, ok := val.([]any)
	if !ok || len(slice) == 0 {
		return nil
	}

	var rules []CommandRule
	for _, item := range slice {
		var ruleMap map[string]any

		switch m := item.(type) {
		case map[string]any:
			ruleMap = m
		case SettingDefinition:
			// yaml.v3 decodes nested mappings into the parent's map type.
			ruleMap = map[string]any(m)
		case map[any]any:
			ruleMap = make(map[string]any)
			for k, v := range m {
				if ks, ok := k.(string); ok {
					ruleMap[ks] = v
				}
			}
		case string:
			// Shorthand: a bare command string
			ruleMap = map[string]any{"output": m}
		default:
			continue
		}

		rule := CommandRule{}
		if output, ok := ruleMap["output"].(string); ok {
			rule.Output = strings.TrimSpace(output)
		}
		if privileged, ok := ruleMap["privileged"].(bool); ok {
			rule.Privileged = privileged
		}

		if rule.Output != "" {
			rules = append(rules, rule)
		}
	}

	return rules
}
