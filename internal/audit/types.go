// Package audit evaluates screen lock settings and builds the audit record sent to the collector.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// MessageTag prefixes every line sent to the collector.
const MessageTag = "cyberaudit"

// Settings holds the raw values read from the host.
type Settings struct {
	MachineID   string
	IdleDelay   int // seconds
	LockDelay   int // seconds
	LockEnabled bool
}

// SettingsReader reads the current settings from the host.
type SettingsReader interface {
	Read(ctx context.Context) (Settings, error)
}

// Record is the audit snapshot for one run. It cannot be modified after
// construction and its compliance verdict is always derived from its settings.
type Record struct {
	mdmVersion  string
	machineID   string
	idleDelay   int
	lockDelay   int
	lockEnabled bool
	compliant   bool
}

// NewRecord builds the record for the given tool version and settings.
func NewRecord(version string, s Settings) Record {
	return Record{
		mdmVersion:  version,
		machineID:   s.MachineID,
		idleDelay:   s.IdleDelay,
		lockDelay:   s.LockDelay,
		lockEnabled: s.LockEnabled,
		compliant:   IsCompliant(s),
	}
}

// MDMVersion returns the version of the tool that produced the record.
func (r Record) MDMVersion() string { return r.mdmVersion }

// MachineID returns the hardware serial number, or the system UUID when the serial is not applicable.
func (r Record) MachineID() string { return r.machineID }

// IdleDelay returns the idle delay in seconds.
func (r Record) IdleDelay() int { return r.idleDelay }

// LockDelay returns the lock delay in seconds.
func (r Record) LockDelay() int { return r.lockDelay }

// LockEnabled reports whether the screen lock is enabled.
func (r Record) LockEnabled() bool { return r.lockEnabled }

// Compliant reports whether the settings met the screen lock policy.
func (r Record) Compliant() bool { return r.compliant }

// Settings returns the settings the record was built from.
func (r Record) Settings() Settings {
	return Settings{
		MachineID:   r.machineID,
		IdleDelay:   r.idleDelay,
		LockDelay:   r.lockDelay,
		LockEnabled: r.lockEnabled,
	}
}

// wireRecord fixes the JSON layout. Fields are declared in alphabetical key order
// so the encoded object has sorted keys.
type wireRecord struct {
	Compliant   bool   `json:"compliant"`
	IdleDelay   int    `json:"idleDelay"`
	LockDelay   int    `json:"lockDelay"`
	LockEnabled bool   `json:"lockEnabled"`
	MachineID   string `json:"machineId"`
	MDMVersion  string `json:"mdmVersion"`
}

// MarshalJSON encodes the record as a compact object with sorted keys.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wireRecord{
		Compliant:   r.compliant,
		IdleDelay:   r.idleDelay,
		LockDelay:   r.lockDelay,
		LockEnabled: r.lockEnabled,
		MachineID:   r.machineID,
		MDMVersion:  r.mdmVersion,
	}); err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeMessage renders the record as a collector line: "cyberaudit {json}\n".
func EncodeMessage(r Record) ([]byte, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(MessageTag)+len(data)+2)
	msg = append(msg, MessageTag...)
	msg = append(msg, ' ')
	msg = append(msg, data...)
	msg = append(msg, '\n')
	return msg, nil
}

// Run reads the host settings and builds the record. Reader errors are returned unchanged.
func Run(ctx context.Context, reader SettingsReader, version string) (Record, error) {
	s, err := reader.Read(ctx)
	if err != nil {
		return Record{}, err
	}
	return NewRecord(version, s), nil
}
