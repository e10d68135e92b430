package main

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	serial "github.com/luhtfiimanal/serialbridge"
	"github.com/luhtfiimanal/serialbridge/internal/config"
	"github.com/luhtfiimanal/serialbridge/internal/session"
)

const keyHelp = `
To quit type Ctrl-C x
To send Ctrl-C type Ctrl-C Ctrl-C
To send the canned command type Ctrl-C l
`

// runSession is replaced in tests.
var runSession = session.Run

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "serialbridge <device> <baudrate>",
		Short: "Interactive terminal for a serial device",
		Long: `Bridge this terminal to a serial device: every key typed is sent to the
device and everything the device sends is printed.
` + keyHelp,
		Example:       "  serialbridge /dev/ttyUSB0 115200",
		Args:          validateArgs,
		SilenceErrors: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			if noClear, _ := cmd.Flags().GetBool("no-clear"); noClear {
				viper.Set("clear_screen", false)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg.Log.ConfigureZerolog()

			baud, _ := parseBaud(args[1])
			log.Debug().
				Str("device", args[0]).
				Int("baud", baud).
				Str("log_level", cfg.Log.Level).
				Msg("starting session")

			return runSession(session.Options{
				Device:        args[0],
				BaudRate:      baud,
				CannedCommand: cfg.CannedCommand,
				ClearScreen:   cfg.ClearScreen,
			})
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialbridge/config.yaml)")
	cmd.Flags().String("canned", "", "command sent for Ctrl-C l")
	cmd.Flags().Bool("no-clear", false, "do not clear the screen when the session starts")
	cmd.Flags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().Bool("debug", false, "enable debug logging")

	cmd.SetUsageTemplate(cmd.UsageTemplate() + keyHelp)

	viper.BindPFlag("canned_command", cmd.Flags().Lookup("canned"))
	viper.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))
	viper.BindPFlag("log.debug", cmd.Flags().Lookup("debug"))

	return cmd
}

// validateArgs rejects the command line before the terminal is touched.
func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(2)(cmd, args); err != nil {
		return err
	}
	if _, err := parseBaud(args[1]); err != nil {
		return err
	}
	return nil
}

func parseBaud(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid baud rate %q", s)
	}
	if !serial.SupportedBaud(int(n)) {
		return 0, fmt.Errorf("unsupported baud rate %d", n)
	}
	return int(n), nil
}
