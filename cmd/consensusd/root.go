package main

import (
	"os"

	"github.com/spf13/cobra"

	"consensuscore/logx"
)

var rootCmd = &cobra.Command{
	Use:   "consensusd",
	Short: "Consensus core node CLI",
	Long:  "Command line interface for running a proof-of-stake consensus core node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Errorf("CMD", "command execution failed: %v", err)
		os.Exit(1)
	}
}
