// shiftcheck validates a file of scheduled shifts against employee labor-time
// profiles and prints the diagnostics.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/shiftrules/internal/logger"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
	case errors.Is(err, errFindings):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "shiftcheck",
		Short: "Check shift schedules against labor-time rules",
		Long: `shiftcheck reads scheduled shifts (CSV or XLSX) and employee profiles
(YAML or JSON), runs the labor-time checks for every employee and prints the
outcomes grouped by employee.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.SetLevelName(logLevel)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level on stderr: TRACE, DEBUG, INFO, WARN, ERROR")
	root.AddCommand(newValidateCmd())
	return root
}
