package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// DefaultCollectorAddr is the local log forwarder that accepts audit lines.
	DefaultCollectorAddr = "127.0.0.1:12004"
	// DefaultEnvFile is read when present; a missing file is not an error.
	DefaultEnvFile = "/etc/cyberaudit/cyberaudit.env"

	EnvCollector = "CYBERAUDIT_COLLECTOR"
	EnvDebug     = "CYBERAUDIT_DEBUG"
	EnvSources   = "CYBERAUDIT_SOURCES"
)

// Options holds the runtime options of the agent.
type Options struct {
	CollectorAddr string
	SourcesFile   string // empty means the embedded sources.yaml
	Debug         bool
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{CollectorAddr: DefaultCollectorAddr}
}

// LoadOptions layers the env file and then the process environment over the defaults.
// lookupEnv is usually os.LookupEnv.
func LoadOptions(envFile string, lookupEnv func(string) (string, bool)) (Options, error) {
	opts := DefaultOptions()

	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			if err := opts.apply(func(k string) (string, bool) {
				v, ok := values[k]
				return v, ok
			}); err != nil {
				return opts, fmt.Errorf("env file %s: %w", envFile, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return opts, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	}

	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if err := opts.apply(lookupEnv); err != nil {
		return opts, fmt.Errorf("environment: %w", err)
	}
	return opts, nil
}

func (o *Options) apply(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvCollector); ok && v != "" {
		o.CollectorAddr = v
	}
	if v, ok := lookup(EnvSources); ok && v != "" {
		o.SourcesFile = v
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDebug, v, err)
		}
		o.Debug = debug
	}
	return nil
}
