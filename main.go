package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"doppler/cmd"
	"doppler/internal/audio"
	"doppler/internal/config"
	"doppler/internal/lcd"
	applog "doppler/internal/log"
	"doppler/internal/radar"
	"doppler/internal/tui"
	"doppler/pkg/build"

	"golang.org/x/sync/errgroup"
)

// tuiLogFile receives the log while the terminal panel owns the screen.
const tuiLogFile = "doppler.log"

// main is the entry point for the radar application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse the configuration and command line
//   - Execute one-off commands if requested
//   - Open the board, display and transports
//
// 2. Concurrent Phase (Hot Path):
//   - Capture interrupts and timer ticks feed the estimators
//   - The foreground loop polls the keypad, measures and publishes
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop both estimators and close the recording
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Binaries built without ldflags fall back to the embedded module data.
	if err := build.Initialize(); err != nil {
		build.InitializeFromBinary()
	}

	// One thread for the simulated or sound card hardware, one for the
	// foreground loop and I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	// Help or version only.
	if cfg == nil {
		return
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}
	applog.Debugf("Main: %s", build.GetBuildFlags())

	// Handle one-off commands (e.g., device listing) that don't need the
	// radar to be running
	if cfg.Command != "" {
		if err := executeCommand(cfg.Command); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Display.Kind == "tui" {
		logFile, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer logFile.Close()
		applog.SetJSONOutput(logFile)
		defer applog.SetOutput(os.Stderr)
	}

	// PortAudio is only needed behind the sound card source.
	if cfg.Source.Kind == "audio" {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	board, err := radar.OpenBoard(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := board.Close(); err != nil {
			applog.Errorf("Main: Error closing board: %v", err)
		}
	}()

	display, closeDisplay, err := radar.OpenDisplay(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeDisplay()

	var (
		buttons lcd.ButtonReader = lcd.IdleButtons{}
		panel   *tui.Panel
	)
	if screen, ok := display.(*lcd.Screen); ok && cfg.Display.Kind == "tui" {
		panel = tui.NewPanel(screen, stop)
		buttons = panel
	}

	tr, err := radar.OpenTransport(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			applog.Errorf("Main: Error closing transports: %v", err)
		}
	}()

	engine, err := radar.NewEngine(cfg, board, display, buttons, tr)
	if err != nil {
		return err
	}

	// Start recording if enabled in configuration
	if cfg.Recording.Enabled {
		name := cfg.Recording.OutputFile
		if name == "" {
			name = audio.DefaultFileName(time.Now())
		}
		recorder, err := audio.NewRecorder(name, cfg.Spectral.SampleRate)
		if err != nil {
			return err
		}
		engine.SetBlockObserver(recorder.Observe)
		defer func() {
			if err := recorder.Close(); err != nil {
				applog.Errorf("Main: Error stopping recording: %v", err)
				return
			}
			fmt.Printf("\nRecording saved to: %s (%d blocks)\n", recorder.Filename(), recorder.Blocks())
		}()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if panel == nil {
		return engine.Run(ctx)
	}

	// The panel owns the terminal; quitting it cancels the engine too.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error {
		defer stop()
		return panel.Run(gctx)
	})

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	return g.Wait()
}

// executeCommand handles one-off commands that don't require the radar to be
// running, such as listing available audio devices.
func executeCommand(command string) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	switch command {
	case "list":
		return audio.ListDevices(os.Stdout)
	case "pick":
		devices, err := audio.HostDevices()
		if err != nil {
			return err
		}
		device, err := tui.PickDevice(devices)
		if err != nil || device == nil {
			return err
		}
		fmt.Printf("Selected device %d: %s\n", device.ID, device.Name)
		fmt.Printf("Run with --device %d to capture from it.\n", device.ID)
		return nil
	default:
		return fmt.Errorf("unknown command '%s'", command)
	}
}
