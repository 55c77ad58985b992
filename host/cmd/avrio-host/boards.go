package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"avrio/avr8"
	"avrio/board"
)

var (
	boardsVerbose bool

	boardsCmd = &cobra.Command{
		Use:   "boards [name|file]",
		Short: "List the built-in boards or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names := board.Names()
			if len(args) == 1 {
				names = args[:1]
			}
			for _, name := range names {
				b, err := board.Resolve(name)
				if err != nil {
					return err
				}
				if boardsVerbose {
					spew.Fdump(out, b)
					continue
				}
				fmt.Fprintf(out, "%-12s %-18s %9d Hz  %2d ports  %3d pins  compare %d\n",
					b.MCU, b.Name, b.CPUFrequency, len(b.Ports), b.PinCount(), b.Threshold())
			}
			return nil
		},
	}

	thresholdOpts = struct {
		clock     uint32
		prescaler uint32
	}{}

	thresholdCmd = &cobra.Command{
		Use:   "threshold",
		Short: "Print the Timer1 compare value for a 1 ms tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			if thresholdOpts.clock == 0 || thresholdOpts.prescaler == 0 {
				return fmt.Errorf("clock and prescaler must be non-zero")
			}
			v := (thresholdOpts.clock / 1000) / thresholdOpts.prescaler
			if v == 0 || v > 0xFFFF {
				return fmt.Errorf("compare value %d does not fit the 16-bit OCR1A register", v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", avr8.CompareThreshold(thresholdOpts.clock, thresholdOpts.prescaler))
			return nil
		},
	}
)

func init() {
	boardsCmd.Flags().BoolVarP(&boardsVerbose, "verbose", "v", false, "Dump the full board descriptions")
	thresholdCmd.Flags().Uint32Var(&thresholdOpts.clock, "clock", 16000000, "CPU clock in Hz")
	thresholdCmd.Flags().Uint32Var(&thresholdOpts.prescaler, "prescaler", avr8.Prescaler, "Timer1 prescaler")
}
