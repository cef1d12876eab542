package config

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/pentactl/internal/errors"
)

const (
	configName = "pentactl.conf"
	configType = "toml"
	configDir  = "/etc"

	// Disk temperature polling is slow (smartctl per drive), so the
	// poll delay is stretched to many slider periods when enabled.
	diskTempPollFactor = 16

	defaultDiskTempPollDelay = 10 * time.Second
)

// Action names a gesture can be mapped to.
const (
	ActionSlider   = "slider"
	ActionSwitch   = "switch"
	ActionReboot   = "reboot"
	ActionPoweroff = "poweroff"
	ActionNone     = "none"
)

type FanConfig struct {
	Lv0       float64
	Lv1       float64
	Lv2       float64
	Lv3       float64
	Linear    bool
	TempDisks bool
}

type KeyConfig struct {
	Click string
	Twice string
	Press string
}

type TimeConfig struct {
	Twice time.Duration
	Press time.Duration
}

type SliderConfig struct {
	Auto    bool
	Time    time.Duration
	Refresh time.Duration
}

type OLEDConfig struct {
	Rotate     bool
	Fahrenheit bool
}

type DiskConfig struct {
	SpaceUsageMntPoints []string
	IOUsageMntPoints    []string
	ZFS                 bool
	DisksTemp           bool
}

type NetworkConfig struct {
	Interfaces []string
}

type TelemetryConfig struct {
	Enabled  bool
	Database string
}

// Config holds all daemon settings. It is immutable after Load except
// for the fan-enabled flag, which gesture dispatch toggles at runtime.
type Config struct {
	Fan       FanConfig
	Key       KeyConfig
	Time      TimeConfig
	Slider    SliderConfig
	OLED      OLEDConfig
	Disk      DiskConfig
	Network   NetworkConfig
	Telemetry TelemetryConfig
	Debug     bool
	Verbose   bool

	fanEnabled atomic.Bool
}

// Load reads /etc/pentactl.conf (or the file named by PENTACTL_CONFIG),
// applies command-line flag overrides and falls back to defaults on any
// read or parse failure. It never fails fatally.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("pentactl", pflag.ContinueOnError)
	configFlag := fs.String("config", "", "Path to configuration file")
	debugFlag := fs.Bool("debug", false, "Enable debugging mode")
	verboseFlag := fs.Bool("verbose", false, "Enable verbose logging")
	// Unknown flags (e.g. test binary flags) are not our concern.
	fs.ParseErrorsWhitelist.UnknownFlags = true
	if err := fs.Parse(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("PENTACTL_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			// A broken config file must not keep the hardware
			// uncontrolled. Fall back to defaults.
			v = viper.New()
			setDefaults(v)
		}
	}

	cfg := fromViper(v)
	cfg.Debug = *debugFlag || v.GetBool("debug")
	cfg.Verbose = *verboseFlag || v.GetBool("verbose")
	cfg.fanEnabled.Store(true)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fan.lv0", 35.0)
	v.SetDefault("fan.lv1", 40.0)
	v.SetDefault("fan.lv2", 45.0)
	v.SetDefault("fan.lv3", 50.0)
	v.SetDefault("fan.linear", false)
	v.SetDefault("fan.temp_disks", false)
	v.SetDefault("key.click", ActionSlider)
	v.SetDefault("key.twice", ActionSwitch)
	v.SetDefault("key.press", ActionNone)
	v.SetDefault("time.twice", 0.7)
	v.SetDefault("time.press", 1.8)
	v.SetDefault("slider.auto", true)
	v.SetDefault("slider.time", 10.0)
	v.SetDefault("slider.refresh", 0.0)
	v.SetDefault("oled.rotate", false)
	v.SetDefault("oled.f-temp", false)
	v.SetDefault("disk.space_usage_mnt_points", "")
	v.SetDefault("disk.io_usage_mnt_points", "")
	v.SetDefault("disk.zfs", false)
	v.SetDefault("disk.disks_temp", false)
	v.SetDefault("network.interfaces", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.database", "/var/lib/pentactl/telemetry.db")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Fan: FanConfig{
			Lv0:       v.GetFloat64("fan.lv0"),
			Lv1:       v.GetFloat64("fan.lv1"),
			Lv2:       v.GetFloat64("fan.lv2"),
			Lv3:       v.GetFloat64("fan.lv3"),
			Linear:    v.GetBool("fan.linear"),
			TempDisks: v.GetBool("fan.temp_disks"),
		},
		Key: KeyConfig{
			Click: v.GetString("key.click"),
			Twice: v.GetString("key.twice"),
			Press: v.GetString("key.press"),
		},
		Time: TimeConfig{
			Twice: secondsToDuration(v.GetFloat64("time.twice")),
			Press: secondsToDuration(v.GetFloat64("time.press")),
		},
		Slider: SliderConfig{
			Auto:    v.GetBool("slider.auto"),
			Time:    secondsToDuration(v.GetFloat64("slider.time")),
			Refresh: secondsToDuration(v.GetFloat64("slider.refresh")),
		},
		OLED: OLEDConfig{
			Rotate:     v.GetBool("oled.rotate"),
			Fahrenheit: v.GetBool("oled.f-temp"),
		},
		Disk: DiskConfig{
			SpaceUsageMntPoints: splitList(v.GetString("disk.space_usage_mnt_points")),
			IOUsageMntPoints:    splitList(v.GetString("disk.io_usage_mnt_points")),
			ZFS:                 v.GetBool("disk.zfs"),
			DisksTemp:           v.GetBool("disk.disks_temp"),
		},
		Network: NetworkConfig{
			Interfaces: splitList(v.GetString("network.interfaces")),
		},
		Telemetry: TelemetryConfig{
			Enabled:  v.GetBool("telemetry.enabled"),
			Database: v.GetString("telemetry.database"),
		},
	}
}

// FanEnabled reports whether the fan should be running.
func (c *Config) FanEnabled() bool {
	return c.fanEnabled.Load()
}

// ToggleFan flips the fan-enabled flag and returns the new state.
func (c *Config) ToggleFan() bool {
	for {
		old := c.fanEnabled.Load()
		if c.fanEnabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Action returns the action mapped to the given gesture key
// (click, twice or press).
func (c *Config) Action(gesture string) string {
	switch gesture {
	case "click":
		return c.Key.Click
	case "twice":
		return c.Key.Twice
	case "press":
		return c.Key.Press
	default:
		return ActionNone
	}
}

// DiskTempPollDelay returns the minimum time between disk temperature
// polls. Polling all drives over SMART is slow, so when temperature
// pages are enabled the delay spans many slider periods.
func (c *Config) DiskTempPollDelay() time.Duration {
	if c.Disk.DisksTemp {
		return c.Slider.Time * diskTempPollFactor
	}

	return defaultDiskTempPollDelay
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
