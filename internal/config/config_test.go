package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/pentactl/internal/config"
)

func TestLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
[fan]
lv0 = 30.0
lv1 = 38.0
lv2 = 44.0
lv3 = 52.0
linear = true
temp_disks = true

[key]
click = "slider"
twice = "switch"
press = "poweroff"

[time]
twice = 0.5
press = 2.0

[slider]
auto = true
time = 5.0
refresh = 3.0

[oled]
rotate = true
f-temp = true

[disk]
space_usage_mnt_points = "/mnt/a|/mnt/b"
io_usage_mnt_points = "/mnt/a"
zfs = true
disks_temp = true

[network]
interfaces = "eth0|wlan0"

[telemetry]
enabled = true
database = "/tmp/pentactl-telemetry.db"
`)
	configPath := filepath.Join(tempDir, "pentactl.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("PENTACTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.InDelta(t, 30.0, cfg.Fan.Lv0, 0.001)
	assert.InDelta(t, 52.0, cfg.Fan.Lv3, 0.001)
	assert.True(t, cfg.Fan.Linear)
	assert.True(t, cfg.Fan.TempDisks)
	assert.Equal(t, "poweroff", cfg.Key.Press)
	assert.Equal(t, 500*time.Millisecond, cfg.Time.Twice)
	assert.Equal(t, 2*time.Second, cfg.Time.Press)
	assert.Equal(t, 5*time.Second, cfg.Slider.Time)
	assert.Equal(t, 3*time.Second, cfg.Slider.Refresh)
	assert.True(t, cfg.OLED.Rotate)
	assert.True(t, cfg.OLED.Fahrenheit)
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, cfg.Disk.SpaceUsageMntPoints)
	assert.Equal(t, []string{"/mnt/a"}, cfg.Disk.IOUsageMntPoints)
	assert.True(t, cfg.Disk.ZFS)
	assert.Equal(t, []string{"eth0", "wlan0"}, cfg.Network.Interfaces)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "/tmp/pentactl-telemetry.db", cfg.Telemetry.Database)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PENTACTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.InDelta(t, 35.0, cfg.Fan.Lv0, 0.001)
	assert.InDelta(t, 40.0, cfg.Fan.Lv1, 0.001)
	assert.InDelta(t, 45.0, cfg.Fan.Lv2, 0.001)
	assert.InDelta(t, 50.0, cfg.Fan.Lv3, 0.001)
	assert.False(t, cfg.Fan.Linear)
	assert.Equal(t, config.ActionSlider, cfg.Key.Click)
	assert.Equal(t, config.ActionSwitch, cfg.Key.Twice)
	assert.Equal(t, config.ActionNone, cfg.Key.Press)
	assert.Equal(t, 700*time.Millisecond, cfg.Time.Twice)
	assert.Equal(t, 1800*time.Millisecond, cfg.Time.Press)
	assert.True(t, cfg.Slider.Auto)
	assert.Equal(t, 10*time.Second, cfg.Slider.Time)
	assert.Equal(t, time.Duration(0), cfg.Slider.Refresh)
	assert.Nil(t, cfg.Disk.SpaceUsageMntPoints)
	assert.Nil(t, cfg.Network.Interfaces)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.FanEnabled(), "fan defaults to enabled")
}

func TestLoadInvalidFileFallsBackToDefaults(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "pentactl.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("PENTACTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err, "Broken config must not be fatal")
	assert.InDelta(t, 35.0, cfg.Fan.Lv0, 0.001, "Defaults apply on parse failure")
	assert.Equal(t, 10*time.Second, cfg.Slider.Time)
}

func TestToggleFan(t *testing.T) {
	t.Setenv("PENTACTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err)

	require.True(t, cfg.FanEnabled())
	assert.False(t, cfg.ToggleFan())
	assert.False(t, cfg.FanEnabled())
	assert.True(t, cfg.ToggleFan())
	assert.True(t, cfg.FanEnabled())
}

func TestDiskTempPollDelay(t *testing.T) {
	t.Setenv("PENTACTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.DiskTempPollDelay())

	cfg.Disk.DisksTemp = true
	assert.Equal(t, 160*time.Second, cfg.DiskTempPollDelay(), "16 slider periods when disk temps enabled")
}

func TestActionMapping(t *testing.T) {
	t.Setenv("PENTACTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ActionSlider, cfg.Action("click"))
	assert.Equal(t, config.ActionSwitch, cfg.Action("twice"))
	assert.Equal(t, config.ActionNone, cfg.Action("press"))
	assert.Equal(t, config.ActionNone, cfg.Action("bogus"))
}
