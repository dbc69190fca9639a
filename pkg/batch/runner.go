package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/ifdesc/pkg/descriptions"
	"github.com/newtron-network/ifdesc/pkg/inventory"
	"github.com/newtron-network/ifdesc/pkg/prompt"
	"github.com/newtron-network/ifdesc/pkg/util"
)

// InventorySource supplies the devices for a run. *inventory.File
// implements it.
type InventorySource interface {
	Devices() ([]inventory.Device, error)
}

var _ InventorySource = inventory.File{}

// Runner is the entry point of a batch run: it checks the terminal,
// loads the inventory, asks for the run configuration and hands over to
// an Orchestrator.
type Runner struct {
	Transport    Transport
	Configurator descriptions.Configurator
	Prompter     prompt.Prompter
	Inventory    InventorySource
	OutputDir    string
	LogPrefix    string // default FailureLogPrefix
	Log          logrus.FieldLogger
	Now          func() time.Time
}

// Execute performs one run. A cancelled or empty run returns a report
// with the matching Outcome and creates nothing on disk.
func (r *Runner) Execute(ctx context.Context) (*Report, error) {
	if r.Transport.IsConnected() {
		return nil, errNotDisconnected()
	}

	devices, err := r.Inventory.Devices()
	if errors.Is(err, inventory.ErrCancelled) {
		return &Report{Outcome: OutcomeCancelled}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	if len(devices) == 0 {
		r.logger().Warn("Inventory contains no devices")
		return &Report{Outcome: OutcomeNoDevices}, nil
	}

	cfg, ok := ResolveRunConfig(r.Prompter)
	if !ok {
		return &Report{Outcome: OutcomeCancelled}, nil
	}

	failures := NewFailureLog(FailureLogPath(r.outputDir(), r.logPrefix(), r.now()))
	orch := &Orchestrator{
		Transport:    r.Transport,
		Configurator: r.Configurator,
		Failures:     failures,
		Log:          r.Log,
	}

	r.logger().WithFields(logrus.Fields{
		"devices":    len(devices),
		"check_mode": cfg.CheckMode,
		"jump_box":   cfg.JumpBox != nil,
	}).Info("Starting batch")

	report, err := orch.Run(ctx, devices, cfg)
	if report != nil && failures.Written() {
		report.FailureLog = failures.Path()
	}
	return report, err
}

func (r *Runner) outputDir() string {
	if r.OutputDir == "" {
		return "."
	}
	return r.OutputDir
}

func (r *Runner) logPrefix() string {
	if r.LogPrefix == "" {
		return FailureLogPrefix
	}
	return r.LogPrefix
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return util.DiscardLogger()
	}
	return r.Log
}
