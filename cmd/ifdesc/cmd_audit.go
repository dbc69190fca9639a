package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ifdesc/pkg/audit"
	"github.com/newtron-network/ifdesc/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the change audit log",
	Long: `View the audit log of description changes, kept in
{output-dir}/ifdesc-audit.log.

Every device that needed changes is logged with:
  - Timestamp and operator
  - Device
  - Check mode or apply, and the outcome
  - The changed interfaces

Examples:
  ifdesc audit list --device core1
  ifdesc audit list --last 24h --failures`,
}

var (
	auditDevice   string
	auditUser     string
	auditLast     string
	auditLimit    int
	auditFailures bool
	auditJSON     bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Device:      auditDevice,
			User:        auditUser,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}

		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		trail := audit.NewFileLogger(filepath.Join(outputDir, audit.DefaultFileName), audit.RotationConfig{})
		events, err := trail.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if trail.Skipped > 0 {
			logger.Warnf("Skipped %d malformed audit entries in %s", trail.Skipped, trail.Path())
		}

		w := cmd.OutOrStdout()
		if auditJSON {
			return json.NewEncoder(w).Encode(events)
		}
		if len(events) == 0 {
			fmt.Fprintln(w, "No audit events found")
			return nil
		}

		t := cli.NewTable(w, "TIMESTAMP", "USER", "DEVICE", "MODE", "CHANGES", "STATUS")
		for _, event := range events {
			status := cli.StatusOK
			if !event.Success {
				status = cli.StatusFailed
			}
			mode := "apply"
			if event.CheckMode {
				mode = "check"
			}
			t.Row(
				event.Timestamp.Format("2006-01-02 15:04:05"),
				event.User,
				event.Device,
				mode,
				strings.Join(event.Changes, "; "),
				cli.StatusLabel(status),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditDevice, "device", "", "Filter by device")
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "Output JSON")

	auditCmd.AddCommand(auditListCmd)
}
