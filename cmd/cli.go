package cmd

import (
	"fmt"
	"io"
	"os"

	"doppler/internal/config"
	"doppler/pkg/build"

	"github.com/spf13/cobra"
)

// flags holds the raw command line values. Only flags the user actually set
// override the loaded configuration.
type flags struct {
	configFile string
	source     string
	wavFile    string
	display    string
	serialPort string
	mode       string
	units      string
	deviceID   int
	record     bool
	outputFile string
	verbose    bool
	udpTarget  string
	wsAddress  string
	pick       bool
}

// ParseArgs builds the configuration from the config file, the environment
// and the command line. It returns nil without error when only help or the
// version was requested.
func ParseArgs() (*config.Config, error) {
	return parseArgs(os.Args[1:], os.Stdout)
}

func parseArgs(args []string, out io.Writer) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		f   flags
		cfg *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(f.configFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &f, loaded)
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Command = "list"
			if f.pick {
				cfg.Command = "pick"
			}
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&f.pick, "pick", "p", false,
		"Choose a device interactively and print its ID")
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "",
		"Path to a YAML config file. Default is doppler.yaml or config.yaml if present")

	// Signal source
	pf.StringVarP(&f.source, "source", "s", config.DefaultSource,
		"Signal source: sim, wav or audio")
	pf.StringVarP(&f.wavFile, "wav", "w", "",
		"Replay a WAV recording (implies --source wav)")
	pf.IntVarP(&f.deviceID, "device", "d", config.MinDeviceID,
		"Input device ID (implies --source audio). Use 'list' command to see available devices.")

	// Acquisition
	pf.StringVarP(&f.mode, "mode", "m", config.DefaultInitialMode,
		"Initial estimator: edge or spectral")
	pf.StringVarP(&f.units, "units", "u", config.DefaultInitialUnits,
		"Initial speed units: metric or imperial")

	// Display
	pf.StringVar(&f.display, "display", config.DefaultDisplay,
		"Display: console, serial, tui or none")
	pf.StringVar(&f.serialPort, "serial-port", "",
		"Serial port of the LCD backpack (implies --display serial)")

	// Recording Configuration
	pf.BoolVarP(&f.record, "record", "r", false,
		"Record every spectral block to a WAV file")
	pf.StringVarP(&f.outputFile, "output", "o", "",
		"Output file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	// Transports
	pf.StringVar(&f.udpTarget, "udp", "",
		"Send binary frames to this UDP address (e.g., 127.0.0.1:9090)")
	pf.StringVar(&f.wsAddress, "websocket", "",
		"Serve frames to WebSocket clients on this address (e.g., :8080)")

	// Debug Configuration
	pf.BoolVarP(&f.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetOut(out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("wav") {
		cfg.Source.Kind = "wav"
		cfg.Source.WAVFile = f.wavFile
	}
	if changed("device") {
		cfg.Source.Kind = "audio"
		cfg.Source.AudioDevice = f.deviceID
	}
	if changed("source") {
		cfg.Source.Kind = f.source
	}

	if changed("mode") {
		cfg.Acquisition.InitialMode = f.mode
	}
	if changed("units") {
		cfg.Acquisition.InitialUnits = f.units
	}

	if changed("serial-port") {
		cfg.Display.Kind = "serial"
		cfg.Display.SerialPort = f.serialPort
	}
	if changed("display") {
		cfg.Display.Kind = f.display
	}

	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.Enabled = true
		cfg.Recording.OutputFile = f.outputFile
	}

	if changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = f.udpTarget
	}
	if changed("websocket") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = f.wsAddress
	}

	if changed("verbose") && f.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}
