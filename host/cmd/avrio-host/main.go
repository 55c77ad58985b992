package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "avrio-host",
		Short: "Host console for the avrio AVR8 IO firmware",
		Long: "Drive the IO of an AVR8 board running the avrio firmware, or of a simulated " +
			"board, over the framed serial protocol.",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.AddCommand(simCmd, consoleCmd, boardsCmd, thresholdCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
