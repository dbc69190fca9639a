// Package batch runs the interface description update across a device
// inventory, one device at a time.
package batch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/ifdesc/pkg/descriptions"
	"github.com/newtron-network/ifdesc/pkg/inventory"
	"github.com/newtron-network/ifdesc/pkg/terminal"
	"github.com/newtron-network/ifdesc/pkg/util"
)

// Transport opens sessions to devices, directly or through a jump host.
// *terminal.Terminal implements it.
type Transport interface {
	IsConnected() bool
	Connect(ctx context.Context, host, user, pass string, protocol inventory.Protocol) (terminal.Session, error)
	ConnectSSH(ctx context.Context, host, user, pass string, promptEndings []string) error
	SSHViaJump(ctx context.Context, host, user, pass string) (terminal.Session, error)
	TelnetViaJump(ctx context.Context, host, user, pass string) (terminal.Session, error)
	Disconnect() error
	DisconnectViaJump() error
}

var _ Transport = (*terminal.Terminal)(nil)

// FailureSink receives one entry per failed device.
type FailureSink interface {
	Record(hostname, reason string) error
}

// Report summarises a run. Hostnames are in inventory order.
type Report struct {
	Outcome    Outcome
	CheckMode  bool
	JumpHost   string
	Attempted  []string
	Succeeded  []string
	Failed     []string
	FailureLog string // empty when nothing failed
}

// Outcome says how far a run got.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeNoDevices
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoDevices:
		return "no devices"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "completed"
	}
}

// Orchestrator runs the configurator against each device in turn.
type Orchestrator struct {
	Transport    Transport
	Configurator descriptions.Configurator
	Failures     FailureSink
	Log          logrus.FieldLogger
}

// Run visits every device exactly once, in order. Connect and interaction
// failures are recorded and the loop moves on; any other error stops the
// batch and is returned along with the partial report.
func (o *Orchestrator) Run(ctx context.Context, devices []inventory.Device, cfg RunConfig) (*Report, error) {
	if o.Transport.IsConnected() {
		return nil, errNotDisconnected()
	}

	report := &Report{Outcome: OutcomeCompleted, CheckMode: cfg.CheckMode}
	if cfg.JumpBox != nil {
		report.JumpHost = cfg.JumpBox.Host
	}

	for _, dev := range devices {
		log := util.WithDevice(o.logger(), dev.Hostname)
		report.Attempted = append(report.Attempted, dev.Hostname)
		log.Info("Configuring")

		err := o.runDevice(ctx, log, dev, cfg)
		if err == nil {
			report.Succeeded = append(report.Succeeded, dev.Hostname)
			log.Info("Completed")
			continue
		}

		switch util.KindOf(err) {
		case util.KindConnect, util.KindInteraction:
			log.WithError(err).Warn("Failed")
			report.Failed = append(report.Failed, dev.Hostname)
			if rerr := o.Failures.Record(dev.Hostname, err.Error()); rerr != nil {
				return report, fmt.Errorf("recording failure for %s: %w", dev.Hostname, rerr)
			}
		case util.KindOther:
			log.WithError(err).Error("Aborting batch")
			return report, fmt.Errorf("%s: %w", dev.Hostname, err)
		}
	}
	return report, nil
}

type strategy int

const (
	strategyDirect strategy = iota
	strategyJumpedSSH
	strategyJumpedTelnet
)

func selectStrategy(cfg RunConfig, protocol inventory.Protocol) strategy {
	if cfg.JumpBox == nil {
		return strategyDirect
	}
	if protocol == inventory.ProtocolTelnet {
		return strategyJumpedTelnet
	}
	return strategyJumpedSSH
}

// runDevice opens the session for dev, runs the configurator and closes
// everything it opened, whatever the outcome.
func (o *Orchestrator) runDevice(ctx context.Context, log logrus.FieldLogger, dev inventory.Device, cfg RunConfig) error {
	opts := descriptions.Options{
		PromptCheckMode: false,
		CheckMode:       cfg.CheckMode,
		EnablePassword:  dev.EnablePassword,
	}

	s := selectStrategy(cfg, dev.Protocol)
	if s == strategyDirect {
		defer o.cleanup(log, "session", o.Transport.Disconnect)
		sess, err := o.Transport.Connect(ctx, dev.Hostname, dev.Username, dev.Password, dev.Protocol)
		if err != nil {
			return err
		}
		return o.Configurator.UpdateInterfaceDescriptions(ctx, sess, opts)
	}

	jb := cfg.JumpBox
	defer o.cleanup(log, "jump host", o.Transport.Disconnect)
	if err := o.Transport.ConnectSSH(ctx, jb.Host, jb.Username, jb.Password, jb.PromptEndings()); err != nil {
		return fmt.Errorf("jump host %s: %w", jb.Host, err)
	}

	defer o.cleanup(log, "session", o.Transport.DisconnectViaJump)
	var (
		sess terminal.Session
		err  error
	)
	if s == strategyJumpedTelnet {
		sess, err = o.Transport.TelnetViaJump(ctx, dev.Hostname, dev.Username, dev.Password)
	} else {
		sess, err = o.Transport.SSHViaJump(ctx, dev.Hostname, dev.Username, dev.Password)
	}
	if err != nil {
		return err
	}
	return o.Configurator.UpdateInterfaceDescriptions(ctx, sess, opts)
}

func (o *Orchestrator) cleanup(log logrus.FieldLogger, what string, disconnect func() error) {
	if err := disconnect(); err != nil {
		log.WithError(err).Warnf("Closing %s", what)
	}
}

func (o *Orchestrator) logger() logrus.FieldLogger {
	if o.Log == nil {
		return util.DiscardLogger()
	}
	return o.Log
}

func errNotDisconnected() error {
	return util.NewPreconditionError("update interface descriptions", "terminal",
		"must launch from a disconnected session", "")
}
