package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"avrio/avr8/sim"
	"avrio/board"
	"avrio/host/console"
	"avrio/protocol"
)

var (
	simBoard string

	simCmd = &cobra.Command{
		Use:   "sim",
		Short: "Run a simulated board and attach the console to it",
		Long: "Run a simulated AVR8 board in-process. The device side runs the same " +
			"console and transport as the firmware, connected to the host over a pipe.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := board.Resolve(simBoard)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			hostEnd, deviceEnd := net.Pipe()
			link := sim.NewLink(b, deviceEnd, protocol.Version)

			served := make(chan error, 1)
			go func() {
				served <- link.Serve(ctx)
			}()

			client := console.NewClient()
			if err := client.Connect(hostEnd); err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Simulating %s (%s, %d Hz, compare %d)\n",
				b.Name, b.MCU, b.CPUFrequency, link.Chip.Ticks.Threshold())

			err = runConsole(ctx, client, link, cmd.InOrStdin(), out)
			stop()
			if serr := <-served; serr != nil && err == nil {
				err = serr
			}
			return err
		},
	}
)

func init() {
	simCmd.Flags().StringVarP(&simBoard, "board", "b", "atmega328p", "Built-in board name or YAML board file")
}
