package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cyberaudit/internal/audit"
	"cyberaudit/internal/config"
)

// NotApplicable is what dmidecode prints for a serial number the vendor never set.
const NotApplicable = "Not Applicable"

const whitespace = " \t\r\n"

// Reader resolves the audit settings. Desktop settings go through Desktop,
// hardware identity through Hardware.
type Reader struct {
	Desktop  Source
	Hardware Source
	Log      logrus.FieldLogger
}

// NewReader wires the primary and fallback stores the way the agent uses them.
func NewReader(primary, fallback Source, log logrus.FieldLogger) *Reader {
	return &Reader{
		Desktop:  Fallback{Primary: primary, Secondary: fallback, Log: log},
		Hardware: primary,
		Log:      log,
	}
}

// Read implements audit.SettingsReader.
func (r *Reader) Read(ctx context.Context) (audit.Settings, error) {
	start := time.Now()
	var s audit.Settings
	var err error

	if s.IdleDelay, err = r.delay(ctx, config.KeyIdleDelay); err != nil {
		return s, err
	}
	if s.LockDelay, err = r.delay(ctx, config.KeyLockDelay); err != nil {
		return s, err
	}
	if s.LockEnabled, err = r.lockEnabled(ctx); err != nil {
		return s, err
	}
	if s.MachineID, err = r.machineID(ctx); err != nil {
		return s, err
	}

	r.logger().WithFields(logrus.Fields{
		"idle_delay":   s.IdleDelay,
		"lock_delay":   s.LockDelay,
		"lock_enabled": s.LockEnabled,
		"machine_id":   s.MachineID,
	}).Debugf("Settings read in %v", time.Since(start))
	return s, nil
}

func (r *Reader) delay(ctx context.Context, key string) (int, error) {
	raw, err := r.Desktop.Lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := ParseTypedInt(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func (r *Reader) lockEnabled(ctx context.Context) (bool, error) {
	raw, err := r.Desktop.Lookup(ctx, config.KeyLockEnabled)
	if err != nil {
		return false, err
	}
	return ParseBool(raw), nil
}

// machineID prefers the serial number. Some machines (System76 laptops, VMs)
// report the sentinel instead; those are identified by their system UUID.
func (r *Reader) machineID(ctx context.Context) (string, error) {
	raw, err := r.Hardware.Lookup(ctx, config.KeySerialNumber)
	if err != nil {
		return "", err
	}
	id := strings.TrimRight(raw, whitespace)
	if id != NotApplicable {
		return id, nil
	}

	r.logger().Infof("Serial number is %q, using system UUID", NotApplicable)
	raw, err = r.Hardware.Lookup(ctx, config.KeySystemUUID)
	if err != nil {
		return "", err
	}
	id = strings.TrimRight(raw, whitespace)
	if _, err := uuid.Parse(id); err != nil {
		r.logger().Warnf("System UUID %q is not a canonical UUID: %v", id, err)
	}
	return id, nil
}

func (r *Reader) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// ParseTypedInt parses GVariant text such as "uint32 300": a type tag, whitespace,
// then an integer. Anything else is a parse error.
func ParseTypedInt(raw string) (int, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return 0, fmt.Errorf("%w: expected \"<type> <number>\", got %q", audit.ErrParse, raw)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer: %w", audit.ErrParse, fields[1], err)
	}
	return n, nil
}

// ParseBool is true only for the exact text "true" once trailing whitespace is removed.
func ParseBool(raw string) bool {
	return strings.TrimRight(raw, whitespace) == "true"
}
