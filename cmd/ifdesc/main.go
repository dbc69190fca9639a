// ifdesc - bulk interface description updates for Cisco IOS and NX-OS
//
// Reads a device inventory and a description plan, then visits every device
// in turn (directly or through an SSH jump box), compares the interface
// descriptions it finds with the plan and either writes the needed commands
// to a file (check mode) or applies and saves them.
//
// Devices that cannot be reached or that reject a command are recorded in a
// per-run failure log and the batch moves on to the next device.
//
// Examples:
//
//	ifdesc run -i devices.csv -p plan.yaml -o ./out
//	ifdesc run -i devices.yaml -u admin -k        # ask once for a shared password
//	ifdesc audit list --last 24h
//	ifdesc settings set inventory /etc/ifdesc/devices.csv
//	ifdesc version
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/newtron-network/ifdesc/pkg/settings"
	"github.com/newtron-network/ifdesc/pkg/util"
	"github.com/newtron-network/ifdesc/pkg/version"
)

var (
	// Global option flags
	inventoryPath string
	planPath      string
	outputDir     string
	verbose       bool
	logJSON       bool

	// Global state
	userSettings *settings.Settings
	logger       *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "ifdesc",
	Short:             "Bulk interface description updates for Cisco devices",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `ifdesc updates interface descriptions across a fleet of Cisco IOS and
NX-OS devices, one device at a time, over SSH or Telnet and optionally
through an SSH jump box.

  ifdesc run -i <inventory> -p <plan> [-o <output-dir>]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load settings: %v\n", err)
			userSettings = &settings.Settings{}
		}

		// Flags win over settings
		if inventoryPath == "" {
			inventoryPath = userSettings.Inventory
		}
		if planPath == "" {
			planPath = userSettings.Plan
		}
		if outputDir == "" {
			outputDir = userSettings.GetOutputDir()
		}

		level := userSettings.GetLogLevel()
		if verbose {
			level = "debug"
		}
		logger, err = util.NewLogger(os.Stderr, level, logJSON)
		if err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "i", "", "Device inventory (.csv, .yaml)")
	rootCmd.PersistentFlags().StringVarP(&planPath, "plan", "p", "", "Description plan (.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for check mode files, backups and the failure log")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("ifdesc dev build (set pkg/version via -ldflags for version info)")
		} else {
			fmt.Printf("ifdesc %s\n", version.Info())
		}
	},
}

// isSettingsOrHelp reports whether cmd needs no settings or logger.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version":
			return true
		}
	}
	return false
}
