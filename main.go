package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/pentactl/internal/button"
	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/display"
	"codeberg.org/mutker/pentactl/internal/fan"
	"codeberg.org/mutker/pentactl/internal/hwio"
	"codeberg.org/mutker/pentactl/internal/logger"
	"codeberg.org/mutker/pentactl/internal/metrics"
	"codeberg.org/mutker/pentactl/internal/pid"
	"codeberg.org/mutker/pentactl/internal/sysinfo"
	"codeberg.org/mutker/pentactl/internal/telemetry"
)

// I2C bus carrying the top-board OLED, by board family.
const (
	oledBusRock3   = 3
	oledBusDefault = 7
)

var cfg *config.Config

// systemCounters binds the rate sampler to the live system.
type systemCounters struct{}

func (systemCounters) InterfaceCounters(name string) (uint64, uint64, error) {
	return sysinfo.InterfaceCounters(name)
}

func (systemCounters) DiskCounters(disk string) (uint64, uint64, error) {
	return sysinfo.DiskCounters(disk)
}

func (systemCounters) SectorSize(disk string) (int, error) {
	return sysinfo.SectorSize(disk)
}

func (systemCounters) PoolCounters(pool string, interval time.Duration, block bool) (uint64, uint64, error) {
	return sysinfo.PoolCounters(pool, interval, block)
}

func (systemCounters) UptimeSeconds() (float64, error) {
	return sysinfo.UptimeSeconds()
}

// sataTemps binds the temperature poller to the SATA drives.
type sataTemps struct{}

func (sataTemps) SataDisks() ([]string, error) {
	return sysinfo.SataDisks()
}

func (sataTemps) DiskTemperature(disk string) (float64, error) {
	return sysinfo.DiskTemperature(disk)
}

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Warn().Err(err).Msg("failed to remove PID file")
		}
	}()

	if err := hwio.Init(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize host drivers")
	}

	fanPin, err := hwio.NewFanPin(hwio.FanPinName())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open fan pin")
	}

	collector, err := telemetry.NewService(telemetryConfig(), logger.Default())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer collector.Close()

	temps := metrics.NewTempPoller(sataTemps{}, cfg.DiskTempPollDelay(), cfg.OLED.Fahrenheit)

	controller, err := fan.New(cfg, fanPin, sysinfo.CPUTemp, temps, collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize fan controller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	go controller.Run(ctx)

	// The top board is optional. Without it the daemon still runs the
	// fan loop; the button and display loops are simply skipped.
	scheduler := startDisplay(ctx, controller, temps)

	gestures := make(chan button.Gesture, 4)
	startButton(ctx, gestures)

	logger.Info().Msg("pentactl started")

	for {
		select {
		case <-ctx.Done():
			shutdown(scheduler)

			return
		case gesture := <-gestures:
			dispatch(gesture, scheduler)
		}
	}
}

// startDisplay probes the OLED and starts the rotation loops. Returns
// nil on headless systems.
func startDisplay(ctx context.Context, controller *fan.Controller, temps *metrics.TempPoller) *display.Scheduler {
	bus := oledBusDefault
	if sysinfo.IsRock3() {
		bus = oledBusRock3
	}

	oled, err := hwio.NewOLED(bus, cfg.OLED.Rotate)
	if err != nil {
		logger.Warn().Err(err).Msg("OLED not found, running headless")

		return nil
	}

	sys := display.NewSystemSource(cfg)
	sampler := metrics.NewSampler(systemCounters{})
	if interfaces, err := sysinfo.InterfaceList(cfg.Network.Interfaces); err == nil {
		sampler.Prime(interfaces, sys.IODisks())
	}

	renderer := display.NewPageRenderer(cfg, sys, sampler, temps, controller.CurrentDuty)
	scheduler := display.NewScheduler(cfg, oled, renderer)

	scheduler.Welcome()
	go scheduler.RunConsumer(ctx)
	go scheduler.RunAutoSlider(ctx)
	go scheduler.RunRefresh(ctx)

	return scheduler
}

// startButton starts the gesture recognizer if the button pin exists.
func startButton(ctx context.Context, gestures chan<- button.Gesture) {
	btn, err := hwio.NewButton(hwio.ButtonPinName())
	if err != nil {
		logger.Warn().Err(err).Msg("button not found, gestures disabled")

		return
	}

	recognizer, err := button.New(btn, cfg.Time.Press, cfg.Time.Twice)
	if err != nil {
		logger.Error().Err(err).Msg("invalid button timing configuration")

		return
	}

	go recognizer.Run(ctx, gestures)
}

func dispatch(gesture button.Gesture, scheduler *display.Scheduler) {
	action := cfg.Action(string(gesture))
	logger.Debug().Str("gesture", string(gesture)).Str("action", action).Msg("Gesture recognized")

	switch action {
	case config.ActionSlider:
		if scheduler != nil {
			scheduler.EnqueueAdvance()
		}
	case config.ActionSwitch:
		enabled := cfg.ToggleFan()
		logger.Info().Bool("fan_enabled", enabled).Msg("Fan toggled")
	case config.ActionReboot:
		if scheduler != nil {
			scheduler.Goodbye()
		}
		runSystemCommand("reboot")
	case config.ActionPoweroff:
		if scheduler != nil {
			scheduler.Goodbye()
		}
		runSystemCommand("poweroff")
	case config.ActionNone:
	}
}

func runSystemCommand(name string) {
	if err := exec.Command(name).Run(); err != nil {
		logger.Error().Err(err).Str("command", name).Msg("system command failed")
	}
}

func shutdown(scheduler *display.Scheduler) {
	if scheduler != nil {
		scheduler.Goodbye()
	}
	logger.Info().Msg("Exiting...")
}

func telemetryConfig() telemetry.Config {
	tcfg := telemetry.DefaultConfig()
	tcfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.Database != "" {
		tcfg.DBPath = cfg.Telemetry.Database
	}

	return tcfg
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
