// Package settings reads screen lock settings and hardware identity from the host.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"cyberaudit/internal/audit"
	"cyberaudit/internal/config"
)

//go:generate mockgen -source=source.go -destination=mock_source_test.go -package=settings

// Source is a store that can be asked for the textual value of a setting key.
type Source interface {
	Lookup(ctx context.Context, key string) (string, error)
}

// CommandSource answers lookups by running the configured command for each key.
type CommandSource struct {
	log   logrus.FieldLogger
	run   RunFunc
	rules map[string]config.CommandRule
	name  string
}

// NewCommandSource creates a store from explicit rules. A nil run executes commands with bash -r.
func NewCommandSource(name string, rules map[string]config.CommandRule, run RunFunc, log logrus.FieldLogger) *CommandSource {
	log = log.WithField("source", name)
	if run == nil {
		run = shellRunner(log)
	}
	return &CommandSource{name: name, rules: rules, run: run, log: log}
}

// Tier builds the store made of the tier-th lookup of every setting for osName.
// Tier 0 is the primary store, tier 1 the fallback store.
func Tier(cfg *config.Config, osName string, tier int, run RunFunc, log logrus.FieldLogger) *CommandSource {
	rules := make(map[string]config.CommandRule)
	for key, def := range cfg.Settings {
		if cmds := def.CommandsForOS(osName); len(cmds) > tier {
			rules[key] = cmds[tier]
		}
	}
	name := "primary"
	if tier > 0 {
		name = fmt.Sprintf("fallback-%d", tier)
	}
	return NewCommandSource(name, rules, run, log)
}

// Name identifies the store in logs.
func (s *CommandSource) Name() string { return s.name }

// Keys returns the configured setting keys in sorted order.
func (s *CommandSource) Keys() []string {
	keys := make([]string, 0, len(s.rules))
	for k := range s.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup runs the command configured for key and returns its stdout.
// A failing unprivileged command, including one that cannot be started, yields
// whatever it printed, usually nothing, so that a fallback store gets a chance. A failing privileged command is an error.
func (s *CommandSource) Lookup(ctx context.Context, key string) (string, error) {
	rule, ok := s.rules[key]
	if !ok {
		return "", fmt.Errorf("%w: %s store has no lookup for %s", audit.ErrLookup, s.name, key)
	}

	out := s.run(ctx, rule.Output)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s lookup of %s interrupted: %w", s.name, key, err)
	}

	if out.ExitCode == 0 {
		return out.Stdout, nil
	}

	if rule.Privileged {
		return "", fmt.Errorf("%w: %s exited %d: %s", audit.ErrPrivilege, rule.Output, out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	if out.ExitCode < 0 {
		s.log.Warnf("Lookup of %s could not run %s: %s", key, rule.Output, strings.TrimSpace(out.Stderr))
		return out.Stdout, nil
	}

	s.log.Warnf("Lookup of %s exited %d: %s", key, out.ExitCode, rule.Output)
	return out.Stdout, nil
}

// Fallback consults Secondary only when Primary returns nothing.
type Fallback struct {
	Primary   Source
	Secondary Source
	Log       logrus.FieldLogger
}

// Lookup implements Source. A result counts as empty when nothing but trailing
// whitespace was printed.
func (f Fallback) Lookup(ctx context.Context, key string) (string, error) {
	value, err := f.Primary.Lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if strings.TrimRight(value, whitespace) != "" {
		return value, nil
	}

	if f.Log != nil {
		f.Log.Infof("Primary store returned nothing for %s, trying fallback store", key)
	}
	return f.Secondary.Lookup(ctx, key)
}
