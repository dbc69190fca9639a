package descriptions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/ifdesc/pkg/audit"
	"github.com/newtron-network/ifdesc/pkg/prompt"
	"github.com/newtron-network/ifdesc/pkg/terminal"
	"github.com/newtron-network/ifdesc/pkg/util"
)

// Options controls one UpdateInterfaceDescriptions call.
type Options struct {
	// PromptCheckMode asks the operator for check/push mode instead of
	// using CheckMode.
	PromptCheckMode bool
	CheckMode       bool
	EnablePassword  string
}

// Configurator applies interface descriptions on a connected session.
type Configurator interface {
	UpdateInterfaceDescriptions(ctx context.Context, sess terminal.Session, opts Options) error
}

// Updater is the Configurator driven by a Plan.
type Updater struct {
	Plan         *Plan
	OutputDir    string
	TakeBackups  bool
	RollbackFile bool

	// Prompter is consulted only when Options.PromptCheckMode is set.
	Prompter prompt.Prompter

	// Audit, when set, receives one event per device with changes.
	// Operator is the user recorded in those events.
	Audit    audit.Logger
	Operator string

	Log logrus.FieldLogger
	Now func() time.Time
}

var _ Configurator = (*Updater)(nil)

// UpdateInterfaceDescriptions brings the device's descriptions in line
// with the plan. In check mode the commands are written to a file in
// OutputDir and nothing is sent to the device.
func (u *Updater) UpdateInterfaceDescriptions(ctx context.Context, sess terminal.Session, opts Options) error {
	host := sess.Hostname()
	log := util.WithDevice(u.logger(), host)

	checkMode := opts.CheckMode
	if opts.PromptCheckMode && u.Prompter == nil {
		log.Warnf("No prompter to ask for check mode, using check mode %t", checkMode)
	} else if opts.PromptCheckMode {
		switch u.Prompter.YesNoCancel("Check Mode?", "Run in check mode (only write the commands to a file)?") {
		case prompt.Yes:
			checkMode = true
		case prompt.No:
			checkMode = false
		default:
			log.Info("Cancelled by operator")
			return nil
		}
	}

	planned, ok := u.Plan.For(host)
	if !ok || len(planned) == 0 {
		log.Info("No descriptions planned for device")
		return nil
	}

	if err := Enable(ctx, sess, opts.EnablePassword); err != nil {
		return err
	}

	ts := u.now().Format(util.Timestamp)
	if u.TakeBackups {
		if err := u.backup(ctx, sess, "before", ts); err != nil {
			return err
		}
	}

	raw, err := sess.Send(ctx, "show interfaces description")
	if err != nil {
		return err
	}
	if line := rejection(raw); line != "" {
		// NX-OS spells it "show interface description".
		if raw, err = sess.Send(ctx, "show interface description"); err != nil {
			return err
		}
	}
	current := ParseDescriptions(raw)
	if current == nil {
		log.Warn("Could not parse current descriptions, applying every planned description")
	}

	changes, missing := Diff(planned, current)
	for _, intf := range missing {
		log.WithField("interface", intf).Warn("Interface not present on device, skipped")
	}
	if len(changes) == 0 {
		log.Info("Descriptions already up to date")
		return nil
	}
	for _, c := range changes {
		log.Debug(c.String())
	}

	cmds := Commands(changes)
	start := time.Now()
	if checkMode {
		path, err := u.writeOutput(host, "interface-desc", ts, joinLines(cmds))
		if err != nil {
			return err
		}
		u.record(log, audit.NewEvent(u.Operator, host, audit.OperationCheck).WithOutput(path), changes, true, start, nil)
		log.Infof("Check mode: wrote %d change(s) to %s", len(changes), path)
		return nil
	}

	err = applyConfig(ctx, sess, cmds)
	if err == nil {
		err = saveConfig(ctx, sess)
	}
	u.record(log, audit.NewEvent(u.Operator, host, audit.OperationApply), changes, false, start, err)
	if err != nil {
		return err
	}
	log.Infof("Applied %d description change(s)", len(changes))

	if u.RollbackFile {
		path, err := u.writeOutput(host, "interface-desc-rollback", ts, joinLines(RollbackCommands(changes)))
		if err != nil {
			return err
		}
		log.Infof("Rollback commands written to %s", path)
	}
	if u.TakeBackups {
		return u.backup(ctx, sess, "after", ts)
	}
	return nil
}

// Enable enters privileged EXEC mode unless the session is already there.
func Enable(ctx context.Context, sess terminal.Session, password string) error {
	host := sess.Hostname()
	if strings.HasSuffix(sess.Prompt(), "#") {
		return nil
	}

	out, idx, err := sess.Expect(ctx, "enable", "assword:")
	if err != nil {
		return err
	}
	if idx == 0 {
		if password == "" {
			return util.NewInteractionError(host, "enable", errors.New("enable password required"))
		}
		out, idx, err = sess.Expect(ctx, password, "assword:")
		if err != nil {
			if util.KindOf(err) == util.KindInteraction {
				// Never report the password as the failing command.
				return util.NewInteractionError(host, "enable", errors.New("no prompt after enable password"))
			}
			return err
		}
		if idx == 0 {
			return util.NewInteractionError(host, "enable", errors.New("enable password rejected"))
		}
	}
	if line := rejection(out); line != "" {
		return util.NewInteractionError(host, "enable", errors.New(line))
	}
	if !strings.HasSuffix(sess.Prompt(), "#") {
		return util.NewInteractionError(host, "enable", fmt.Errorf("still unprivileged at prompt %q", sess.Prompt()))
	}
	return nil
}

// applyConfig enters configuration mode, sends cmds and leaves again.
// The first rejected line aborts the rest.
func applyConfig(ctx context.Context, sess terminal.Session, cmds []string) error {
	host := sess.Hostname()
	out, err := sess.Send(ctx, "configure terminal")
	if err != nil {
		return err
	}
	if line := rejection(out); line != "" {
		return util.NewInteractionError(host, "configure terminal", errors.New(line))
	}

	for _, cmd := range cmds {
		out, err := sess.Send(ctx, cmd)
		if err != nil {
			return err
		}
		if line := rejection(out); line != "" {
			// Leave config mode before reporting; the device stays usable.
			_, _ = sess.Send(ctx, "end")
			return util.NewInteractionError(host, strings.TrimSpace(cmd), errors.New(line))
		}
	}

	_, err = sess.Send(ctx, "end")
	return err
}

// saveConfig copies running-config to startup-config, confirming the
// destination prompts IOS asks.
func saveConfig(ctx context.Context, sess terminal.Session) error {
	const cmd = "copy running-config startup-config"
	questions := []string{"[startup-config]?", "[confirm]"}

	out, idx, err := sess.Expect(ctx, cmd, questions...)
	for answered := 0; err == nil && idx >= 0; answered++ {
		if answered == len(questions) {
			return util.NewInteractionError(sess.Hostname(), cmd, errors.New("unexpected repeated confirmation"))
		}
		out, idx, err = sess.Expect(ctx, "", questions...)
	}
	if err != nil {
		return err
	}
	if line := rejection(out); line != "" {
		return util.NewInteractionError(sess.Hostname(), cmd, errors.New(line))
	}
	return nil
}

// record writes ev to the audit log. Audit failures never fail the device.
func (u *Updater) record(log logrus.FieldLogger, ev *audit.Event, changes []Change, checkMode bool, start time.Time, err error) {
	if u.Audit == nil {
		return
	}
	summary := make([]string, len(changes))
	for i, c := range changes {
		summary[i] = c.String()
	}
	ev.WithChanges(summary).WithCheckMode(checkMode).WithDuration(time.Since(start))
	if err != nil {
		ev.WithError(err)
	} else {
		ev.WithSuccess()
	}
	if aerr := u.Audit.Log(ev); aerr != nil {
		log.WithError(aerr).Warn("Could not write audit event")
	}
}

func (u *Updater) backup(ctx context.Context, sess terminal.Session, label, ts string) error {
	out, err := sess.Send(ctx, "show running-config")
	if err != nil {
		return err
	}
	path, err := u.writeOutput(sess.Hostname(), "running-config-"+label, ts, out)
	if err != nil {
		return err
	}
	util.WithDevice(u.logger(), sess.Hostname()).Debugf("Saved running-config to %s", path)
	return nil
}

// writeOutput writes {OutputDir}/{host}-{desc}-{ts}.txt.
func (u *Updater) writeOutput(host, desc, ts, content string) (string, error) {
	dir := u.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.txt", util.SanitizeName(host), desc, ts))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func (u *Updater) logger() logrus.FieldLogger {
	if u.Log == nil {
		return util.DiscardLogger()
	}
	return u.Log
}

func (u *Updater) now() time.Time {
	if u.Now == nil {
		return time.Now()
	}
	return u.Now()
}

// rejection returns the first line of out that IOS or NX-OS uses to
// reject a command, or "".
func rejection(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "%") {
			return line
		}
	}
	return ""
}
