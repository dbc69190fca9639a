package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ifdesc/pkg/audit"
	"github.com/newtron-network/ifdesc/pkg/batch"
	"github.com/newtron-network/ifdesc/pkg/cli"
	"github.com/newtron-network/ifdesc/pkg/descriptions"
	"github.com/newtron-network/ifdesc/pkg/inventory"
	"github.com/newtron-network/ifdesc/pkg/prompt"
	"github.com/newtron-network/ifdesc/pkg/terminal"
)

var (
	username    string
	askPassword bool
	legacySSH   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Update interface descriptions on every device in the inventory",
	Long: `Update interface descriptions on every device in the inventory.

You are asked whether to run in check mode (commands are only written to
{output-dir}/{host}-interface-desc-{timestamp}.txt) and whether devices are
reached through a jump box. Devices that fail are listed in
{output-dir}/m_update_interface_desc-LOG-{timestamp}.txt.

Inventory columns: hostname, protocol (ssh|telnet), username, password,
enable. Blank credentials fall back to -u and the password asked for by -k.

Examples:
  ifdesc run -i devices.csv -p plan.yaml
  ifdesc run -i devices.csv -p plan.yaml -u netops -k -o /var/tmp/ifdesc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inventoryPath == "" {
			return fmt.Errorf("inventory required: use -i <file> or 'ifdesc settings set inventory <file>'")
		}
		if planPath == "" {
			return fmt.Errorf("plan required: use -p <file> or 'ifdesc settings set plan <file>'")
		}

		plan, err := descriptions.LoadPlan(planPath)
		if err != nil {
			return err
		}

		console := prompt.NewConsole()
		// The password is asked for only once the inventory has been read
		// and turns out to need it.
		inv := inventory.File{
			Path:     inventoryPath,
			Defaults: inventory.Defaults{Username: username},
		}
		if askPassword {
			inv.AskPassword = func() (string, bool) {
				return console.Input(fmt.Sprintf("Enter the PASSWORD for %s", username), true)
			}
		}

		// The first interrupt stops the batch after cleanup; a second one
		// gets the default behaviour.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			stop()
		}()

		term := terminal.New(terminal.Options{
			ConnectTimeout:   userSettings.GetConnectTimeout(),
			CommandTimeout:   userSettings.GetCommandTimeout(),
			KnownHostsFile:   userSettings.KnownHosts,
			LegacyAlgorithms: legacySSH,
		}, logger)

		trail := audit.NewFileLogger(filepath.Join(outputDir, audit.DefaultFileName), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		defer trail.Close()

		runner := &batch.Runner{
			Transport: term,
			Configurator: &descriptions.Updater{
				Plan:         plan,
				OutputDir:    outputDir,
				TakeBackups:  userSettings.TakeBackups,
				RollbackFile: userSettings.RollbackFile,
				Prompter:     console,
				Audit:        trail,
				Operator:     operatorName(),
				Log:          logger,
			},
			Prompter:  console,
			Inventory: inv,
			OutputDir: outputDir,
			Log:       logger,
		}

		report, err := runner.Execute(ctx)
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVarP(&username, "username", "u", "", "Username for devices with none in the inventory")
	runCmd.Flags().BoolVarP(&askPassword, "ask-password", "k", false, "Ask for a password for devices with none in the inventory")
	runCmd.Flags().BoolVar(&legacySSH, "legacy-ssh", false, "Offer SHA-1 key exchange and CBC ciphers for old IOS images")
}

func operatorName() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

const summaryWidth = 14

// printReport writes the outcome of a run for the operator.
func printReport(w io.Writer, r *batch.Report) {
	switch r.Outcome {
	case batch.OutcomeNoDevices:
		fmt.Fprintln(w, "No devices in inventory.")
		return
	case batch.OutcomeCancelled:
		fmt.Fprintln(w, "Cancelled.")
		return
	}

	mode := "push"
	if r.CheckMode {
		mode = "check"
	}
	fmt.Fprintln(w, cli.DotPad("Mode", summaryWidth), mode)
	if r.JumpHost != "" {
		fmt.Fprintln(w, cli.DotPad("Jump box", summaryWidth), r.JumpHost)
	}
	fmt.Fprintln(w)

	failed := make(map[string]bool, len(r.Failed))
	for _, h := range r.Failed {
		failed[h] = true
	}
	succeeded := make(map[string]bool, len(r.Succeeded))
	for _, h := range r.Succeeded {
		succeeded[h] = true
	}

	t := cli.NewTable(w, "DEVICE", "STATUS")
	for _, h := range r.Attempted {
		status := cli.StatusAborted
		switch {
		case succeeded[h]:
			status = cli.StatusOK
		case failed[h]:
			status = cli.StatusFailed
		}
		t.Row(h, cli.StatusLabel(status))
	}
	t.Flush()

	fmt.Fprintf(w, "\n%s configured, %s failed\n",
		cli.Bold(fmt.Sprint(len(r.Succeeded))), cli.Bold(fmt.Sprint(len(r.Failed))))
	if r.FailureLog != "" {
		fmt.Fprintln(w, cli.DotPad("Failure log", summaryWidth), r.FailureLog)
	}
}
