package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cyberaudit/internal/audit"
	"cyberaudit/internal/config"
)

// mapSource is a fixed store; keys that are absent read as empty.
type mapSource map[string]string

func (m mapSource) Lookup(_ context.Context, key string) (string, error) {
	return m[key], nil
}

func TestParseTypedInt(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"uint32 300", 300, false},
		{"uint32 0\n", 0, false},
		{"  int32   -5  ", -5, false},
		{"uint32 300 extra", 300, false},
		{"", 0, true},
		{"300", 0, true},
		{"uint32", 0, true},
		{"uint32 abc", 0, true},
		{"uint32 3.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTypedInt(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, audit.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("true\n"))
	assert.True(t, ParseBool("true \t\r\n"))
	assert.False(t, ParseBool("True"))
	assert.False(t, ParseBool("TRUE"))
	assert.False(t, ParseBool(" true"))
	assert.False(t, ParseBool("false"))
	assert.False(t, ParseBool(""))
	assert.False(t, ParseBool("1"))
}

func TestReaderPrimaryValues(t *testing.T) {
	primary := mapSource{
		config.KeyIdleDelay:    "uint32 180\n",
		config.KeyLockDelay:    "uint32 0\n",
		config.KeyLockEnabled:  "true\n",
		config.KeySerialNumber: "ABC123\n",
	}
	r := NewReader(primary, mapSource{}, nullLogger())

	s, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, audit.Settings{IdleDelay: 180, LockDelay: 0, LockEnabled: true, MachineID: "ABC123"}, s)
}

func TestReaderUsesFallbackForEachEmptySetting(t *testing.T) {
	keys := []string{config.KeyIdleDelay, config.KeyLockDelay, config.KeyLockEnabled}
	for _, emptyKey := range keys {
		t.Run(emptyKey, func(t *testing.T) {
			primary := mapSource{
				config.KeyIdleDelay:    "uint32 120",
				config.KeyLockDelay:    "uint32 0",
				config.KeyLockEnabled:  "true",
				config.KeySerialNumber: "SN1",
			}
			primary[emptyKey] = ""
			fallback := mapSource{
				config.KeyIdleDelay:   "uint32 900",
				config.KeyLockDelay:   "uint32 60",
				config.KeyLockEnabled: "false",
			}

			s, err := NewReader(primary, fallback, nullLogger()).Read(context.Background())
			require.NoError(t, err)

			want := audit.Settings{IdleDelay: 120, LockDelay: 0, LockEnabled: true, MachineID: "SN1"}
			switch emptyKey {
			case config.KeyIdleDelay:
				want.IdleDelay = 900
			case config.KeyLockDelay:
				want.LockDelay = 60
			case config.KeyLockEnabled:
				want.LockEnabled = false
			}
			assert.Equal(t, want, s)
			assert.False(t, audit.IsCompliant(s))
		})
	}
}

func TestReaderLockEnabledFallbackFalse(t *testing.T) {
	primary := mapSource{
		config.KeyIdleDelay:    "uint32 60",
		config.KeyLockDelay:    "uint32 0",
		config.KeyLockEnabled:  "",
		config.KeySerialNumber: "SN1",
	}
	fallback := mapSource{config.KeyLockEnabled: "false\n"}

	s, err := NewReader(primary, fallback, nullLogger()).Read(context.Background())
	require.NoError(t, err)
	assert.False(t, s.LockEnabled)
	assert.False(t, audit.NewRecord("dev", s).Compliant())
}

func TestReaderEmptyAfterFallbackIsParseError(t *testing.T) {
	primary := mapSource{config.KeySerialNumber: "SN1"}
	_, err := NewReader(primary, mapSource{}, nullLogger()).Read(context.Background())
	assert.ErrorIs(t, err, audit.ErrParse)
	assert.Contains(t, err.Error(), config.KeyIdleDelay)
}

func TestReaderMachineID(t *testing.T) {
	base := func() mapSource {
		return mapSource{
			config.KeyIdleDelay:   "uint32 60",
			config.KeyLockDelay:   "uint32 0",
			config.KeyLockEnabled: "true",
		}
	}

	t.Run("serial number", func(t *testing.T) {
		p := base()
		p[config.KeySerialNumber] = "E3PDCG001T3K\n"
		p[config.KeySystemUUID] = "495BFA80-A959-0000-0000-000000000000\n"
		s, err := NewReader(p, mapSource{}, nullLogger()).Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "E3PDCG001T3K", s.MachineID)
	})

	t.Run("not applicable falls back to uuid", func(t *testing.T) {
		p := base()
		p[config.KeySerialNumber] = "Not Applicable\n"
		p[config.KeySystemUUID] = "495BFA80-A959-0000-0000-000000000000\n"
		s, err := NewReader(p, mapSource{}, nullLogger()).Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "495BFA80-A959-0000-0000-000000000000", s.MachineID)
	})

	t.Run("sentinel match is exact", func(t *testing.T) {
		p := base()
		p[config.KeySerialNumber] = "not applicable"
		p[config.KeySystemUUID] = "should-not-be-used"
		s, err := NewReader(p, mapSource{}, nullLogger()).Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "not applicable", s.MachineID)
	})

	t.Run("empty serial is reported as is", func(t *testing.T) {
		p := base()
		p[config.KeySerialNumber] = ""
		p[config.KeySystemUUID] = "should-not-be-used"
		s, err := NewReader(p, mapSource{}, nullLogger()).Read(context.Background())
		require.NoError(t, err)
		assert.Empty(t, s.MachineID)
	})
}

func TestReaderPrivilegeFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	desktop := NewMockSource(ctrl)
	hardware := NewMockSource(ctrl)

	desktop.EXPECT().Lookup(gomock.Any(), config.KeyIdleDelay).Return("uint32 60", nil)
	desktop.EXPECT().Lookup(gomock.Any(), config.KeyLockDelay).Return("uint32 0", nil)
	desktop.EXPECT().Lookup(gomock.Any(), config.KeyLockEnabled).Return("true", nil)
	hardware.EXPECT().Lookup(gomock.Any(), config.KeySerialNumber).Return("", audit.ErrPrivilege)

	r := &Reader{Desktop: desktop, Hardware: hardware, Log: nullLogger()}
	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, audit.ErrPrivilege)
}

func TestReaderUUIDLookupFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	desktop := NewMockSource(ctrl)
	hardware := NewMockSource(ctrl)

	desktop.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return("uint32 0", nil).Times(2)
	desktop.EXPECT().Lookup(gomock.Any(), config.KeyLockEnabled).Return("true", nil)
	hardware.EXPECT().Lookup(gomock.Any(), config.KeySerialNumber).Return("Not Applicable", nil)
	hardware.EXPECT().Lookup(gomock.Any(), config.KeySystemUUID).Return("", audit.ErrPrivilege)

	r := &Reader{Desktop: desktop, Hardware: hardware, Log: nullLogger()}
	_, err := r.Read(context.Background())
	assert.ErrorIs(t, err, audit.ErrPrivilege)
}

func TestReaderWithCommandStores(t *testing.T) {
	cfg, err := config.Load([]byte(`
settings:
  idle_delay:
    linux:
      - output: gsettings get org.gnome.desktop.session idle-delay
      - output: dconf read /org/gnome/desktop/session/idle-delay
  lock_delay:
    linux:
      - output: gsettings get org.gnome.desktop.screensaver lock-delay
      - output: dconf read /org/gnome/desktop/screensaver/lock-delay
  lock_enabled:
    linux:
      - output: gsettings get org.gnome.desktop.screensaver lock-enabled
      - output: dconf read /org/gnome/desktop/screensaver/lock-enabled
  serial_number:
    linux:
      - output: sudo -n dmidecode --string system-serial-number
        privileged: true
`))
	require.NoError(t, err)

	runner := &fakeRunner{outputs: map[string]Output{
		"gsettings get org.gnome.desktop.session idle-delay":       {Stdout: "uint32 180\n"},
		"gsettings get org.gnome.desktop.screensaver lock-delay":   {Stdout: "uint32 0\n"},
		"gsettings get org.gnome.desktop.screensaver lock-enabled": {Stdout: ""},
		"dconf read /org/gnome/desktop/screensaver/lock-enabled":   {Stdout: "true\n"},
		"sudo -n dmidecode --string system-serial-number":          {Stdout: "ABC123\n"},
	}}
	log := nullLogger()
	r := NewReader(Tier(cfg, "linux", 0, runner.run, log), Tier(cfg, "linux", 1, runner.run, log), log)

	s, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, audit.Settings{IdleDelay: 180, LockDelay: 0, LockEnabled: true, MachineID: "ABC123"}, s)
	assert.Equal(t, []string{
		"gsettings get org.gnome.desktop.session idle-delay",
		"gsettings get org.gnome.desktop.screensaver lock-delay",
		"gsettings get org.gnome.desktop.screensaver lock-enabled",
		"dconf read /org/gnome/desktop/screensaver/lock-enabled",
		"sudo -n dmidecode --string system-serial-number",
	}, runner.ran)
}

func TestReaderFallsBackWhenPrimaryCannotStart(t *testing.T) {
	cfg, err := config.Load([]byte(`
settings:
  idle_delay:
    linux: [gsettings get idle, dconf read /idle]
  lock_delay:
    linux: [gsettings get lock, dconf read /lock]
  lock_enabled:
    linux: [gsettings get enabled, dconf read /enabled]
  serial_number:
    linux: [serial]
`))
	require.NoError(t, err)

	runner := &fakeRunner{outputs: map[string]Output{
		"gsettings get idle":    {ExitCode: -1, Stderr: `exec: "bash": executable file not found`},
		"dconf read /idle":      {Stdout: "uint32 120\n"},
		"gsettings get lock":    {Stdout: "uint32 0\n"},
		"gsettings get enabled": {Stdout: "true\n"},
		"serial":                {Stdout: "ABC123\n"},
	}}
	log := nullLogger()
	r := NewReader(Tier(cfg, "linux", 0, runner.run, log), Tier(cfg, "linux", 1, runner.run, log), log)

	s, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, s.IdleDelay)
}
