package main

import (
	"fmt"
	"os"

	"github.com/habitloop/habit-api/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "habit-configure",
		Short: "Administration tool for the habit reminder API",
		Long:  "CLI tool for inspecting scheduled jobs and testing reminder delivery",
	}

	rootCmd.AddCommand(commands.NewJobsCmd())
	rootCmd.AddCommand(commands.NewNotifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
