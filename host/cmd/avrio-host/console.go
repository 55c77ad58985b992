package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"avrio/host/console"
	"avrio/host/serial"
)

var (
	consoleOpts = struct {
		device string
		baud   int
	}{}

	consoleCmd = &cobra.Command{
		Use:   "console",
		Short: "Attach the console to a board over a serial port",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cfg := serial.DefaultConfig(consoleOpts.device)
			cfg.Baud = consoleOpts.baud

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connecting to %s at %d baud...\n", cfg.Device, cfg.Baud)
			client := console.NewClient()
			if err := client.Open(cfg); err != nil {
				return err
			}
			defer client.Close()

			return runConsole(ctx, client, nil, cmd.InOrStdin(), out)
		},
	}
)

func init() {
	consoleCmd.Flags().StringVarP(&consoleOpts.device, "device", "d", "/dev/ttyUSB0", "Serial device path")
	consoleCmd.Flags().IntVar(&consoleOpts.baud, "baud", serial.DefaultBaud, "Baud rate")
}
