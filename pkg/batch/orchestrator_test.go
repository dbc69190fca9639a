package batch

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/newtron-network/ifdesc/pkg/inventory"
	"github.com/newtron-network/ifdesc/pkg/util"
)

func newOrchestrator(tr *fakeTransport, cfgr *fakeConfigurator, sink *memorySink) *Orchestrator {
	return &Orchestrator{Transport: tr, Configurator: cfgr, Failures: sink}
}

func TestOrchestrator_Direct(t *testing.T) {
	tr := &fakeTransport{openErr: map[string]error{
		"hostB": util.NewConnectError("hostB", errors.New("dial tcp 10.0.0.2:22: connection refused")),
	}}
	cfgr := &fakeConfigurator{}
	sink := &memorySink{}
	devices := []inventory.Device{
		device("hostA", inventory.ProtocolSSH),
		device("hostB", inventory.ProtocolSSH),
		device("hostC", inventory.ProtocolTelnet),
	}

	report, err := newOrchestrator(tr, cfgr, sink).Run(context.Background(), devices, RunConfig{CheckMode: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantEvents := []string{
		"connect-ssh hostA", "disconnect",
		"connect-ssh hostB", "disconnect",
		"connect-telnet hostC", "disconnect",
	}
	if !reflect.DeepEqual(tr.events, wantEvents) {
		t.Errorf("events = %q, want %q", tr.events, wantEvents)
	}
	if !reflect.DeepEqual(cfgr.calls, []string{"hostA", "hostC"}) {
		t.Errorf("configured = %q", cfgr.calls)
	}
	for _, opts := range cfgr.opts {
		if opts.PromptCheckMode || !opts.CheckMode || opts.EnablePassword != "en" {
			t.Errorf("opts = %+v", opts)
		}
	}
	if !reflect.DeepEqual(sink.lines, []string{"Connect to hostB failed: dial tcp 10.0.0.2:22: connection refused"}) {
		t.Errorf("failure log = %q", sink.lines)
	}
	if !reflect.DeepEqual(report.Attempted, []string{"hostA", "hostB", "hostC"}) ||
		!reflect.DeepEqual(report.Succeeded, []string{"hostA", "hostC"}) ||
		!reflect.DeepEqual(report.Failed, []string{"hostB"}) {
		t.Errorf("report = %+v", report)
	}
}

func TestOrchestrator_JumpLegPerDevice(t *testing.T) {
	tr := &fakeTransport{openErr: map[string]error{
		"hostA": util.NewConnectError("hostA", errors.New("authentication failed")),
	}}
	cfgr := &fakeConfigurator{errs: map[string]error{
		"hostB": util.NewInteractionError("hostB", "show interfaces description", errors.New("timed out")),
	}}
	sink := &memorySink{}
	cfg := RunConfig{JumpBox: &JumpBoxConfig{Host: "jump1", Username: "ops", Password: "jumppw", PromptEnding: "$"}}
	devices := []inventory.Device{
		device("hostA", inventory.ProtocolSSH),
		device("hostB", inventory.ProtocolTelnet),
		device("hostC", inventory.ProtocolSSH),
	}

	report, err := newOrchestrator(tr, cfgr, sink).Run(context.Background(), devices, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantEvents := []string{
		"jump ops@jump1 [$]", "ssh-via-jump hostA", "disconnect-via-jump", "disconnect",
		"jump ops@jump1 [$]", "telnet-via-jump hostB", "disconnect-via-jump", "disconnect",
		"jump ops@jump1 [$]", "ssh-via-jump hostC", "disconnect-via-jump", "disconnect",
	}
	if !reflect.DeepEqual(tr.events, wantEvents) {
		t.Errorf("events =\n%q\nwant\n%q", tr.events, wantEvents)
	}
	if len(sink.lines) != 2 {
		t.Errorf("failure log = %q", sink.lines)
	}
	if !reflect.DeepEqual(report.Succeeded, []string{"hostC"}) || report.JumpHost != "jump1" {
		t.Errorf("report = %+v", report)
	}
}

func TestOrchestrator_JumpHostFailure(t *testing.T) {
	tr := &fakeTransport{jumpErr: util.NewConnectError("jump1", errors.New("no prompt ending in [$]"))}
	cfgr := &fakeConfigurator{}
	sink := &memorySink{}
	cfg := RunConfig{JumpBox: &JumpBoxConfig{Host: "jump1", Username: "ops", Password: "x", PromptEnding: "$"}}
	devices := []inventory.Device{device("hostA", inventory.ProtocolSSH), device("hostB", inventory.ProtocolSSH)}

	if _, err := newOrchestrator(tr, cfgr, sink).Run(context.Background(), devices, cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := tr.count("jump ops@jump1 [$]"); got != 2 {
		t.Errorf("jump leg opened %d times, want 2", got)
	}
	if got := tr.count("disconnect"); got != 2 {
		t.Errorf("jump leg closed %d times, want 2", got)
	}
	if tr.count("disconnect-via-jump") != 0 {
		t.Error("no target leg was opened, nothing to close")
	}
	if len(cfgr.calls) != 0 {
		t.Errorf("configurator called for %q", cfgr.calls)
	}
	want := "Connect to hostA failed: jump host jump1: no prompt ending in [$]"
	if len(sink.lines) != 2 || sink.lines[0] != want {
		t.Errorf("failure log = %q, want first %q", sink.lines, want)
	}
}

func TestOrchestrator_OtherErrorAborts(t *testing.T) {
	tr := &fakeTransport{}
	cfgr := &fakeConfigurator{errs: map[string]error{"hostB": errors.New("writing check file: disk full")}}
	sink := &memorySink{}
	devices := []inventory.Device{
		device("hostA", inventory.ProtocolSSH),
		device("hostB", inventory.ProtocolSSH),
		device("hostC", inventory.ProtocolSSH),
	}

	report, err := newOrchestrator(tr, cfgr, sink).Run(context.Background(), devices, RunConfig{})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Run() error = %v, want disk full", err)
	}
	if util.KindOf(err) != util.KindOther {
		t.Errorf("kind = %v", util.KindOf(err))
	}
	if !reflect.DeepEqual(cfgr.calls, []string{"hostA", "hostB"}) {
		t.Errorf("hostC must not be attempted, configured %q", cfgr.calls)
	}
	if tr.count("disconnect") != 2 {
		t.Errorf("cleanup should run for the failing device, events %q", tr.events)
	}
	if len(sink.lines) != 0 {
		t.Errorf("fatal errors are not logged as device failures: %q", sink.lines)
	}
	if !reflect.DeepEqual(report.Attempted, []string{"hostA", "hostB"}) {
		t.Errorf("partial report = %+v", report)
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &fakeTransport{}
	_, err := newOrchestrator(tr, &fakeConfigurator{}, &memorySink{}).Run(ctx,
		[]inventory.Device{device("hostA", inventory.ProtocolSSH), device("hostB", inventory.ProtocolSSH)}, RunConfig{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if !reflect.DeepEqual(tr.events, []string{"disconnect"}) {
		t.Errorf("events = %q", tr.events)
	}
}

func TestOrchestrator_SinkErrorIsFatal(t *testing.T) {
	tr := &fakeTransport{openErr: map[string]error{"hostA": util.NewConnectError("hostA", nil)}}
	sink := &memorySink{err: errors.New("read-only file system")}

	_, err := newOrchestrator(tr, &fakeConfigurator{}, sink).Run(context.Background(),
		[]inventory.Device{device("hostA", inventory.ProtocolSSH), device("hostB", inventory.ProtocolSSH)}, RunConfig{})
	if err == nil || !strings.Contains(err.Error(), "read-only file system") {
		t.Fatalf("Run() error = %v", err)
	}
	if tr.count("connect-ssh hostB") != 0 {
		t.Error("batch should stop when the failure log cannot be written")
	}
}

func TestOrchestrator_Precondition(t *testing.T) {
	tr := &fakeTransport{connected: true}
	cfgr := &fakeConfigurator{}

	_, err := newOrchestrator(tr, cfgr, &memorySink{}).Run(context.Background(),
		[]inventory.Device{device("hostA", inventory.ProtocolSSH)}, RunConfig{})
	if !errors.Is(err, util.ErrPreconditionFailed) {
		t.Fatalf("Run() error = %v, want precondition failure", err)
	}
	if len(tr.events) != 0 || len(cfgr.calls) != 0 {
		t.Errorf("no device operation expected, events %q", tr.events)
	}
}

func TestSelectStrategy(t *testing.T) {
	jump := RunConfig{JumpBox: &JumpBoxConfig{Host: "j", Username: "u", Password: "p", PromptEnding: "$"}}
	tests := []struct {
		cfg      RunConfig
		protocol inventory.Protocol
		want     strategy
	}{
		{RunConfig{}, inventory.ProtocolSSH, strategyDirect},
		{RunConfig{}, inventory.ProtocolTelnet, strategyDirect},
		{jump, inventory.ProtocolSSH, strategyJumpedSSH},
		{jump, inventory.ProtocolTelnet, strategyJumpedTelnet},
	}
	for _, tt := range tests {
		if got := selectStrategy(tt.cfg, tt.protocol); got != tt.want {
			t.Errorf("selectStrategy(jump=%v, %s) = %v, want %v", tt.cfg.JumpBox != nil, tt.protocol, got, tt.want)
		}
	}
}
