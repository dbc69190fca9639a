package terminal

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestIsDevicePrompt(t *testing.T) {
	tests := []struct {
		out  string
		want bool
	}{
		{"core1#", true},
		{"\r\ncore1>", true},
		{"show run\r\ncore1(config-if)#", true},
		{"core1# ", true},
		{"Password:", false},
		{"####", false},
		{"line one\r\ninterface Gi0/1 # note", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isDevicePrompt(tt.out); got != tt.want {
			t.Errorf("isDevicePrompt(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func TestPromptBase(t *testing.T) {
	tests := map[string]string{
		"core1#":             "core1",
		"core1>":             "core1",
		"core1(config-if)#":  "core1",
		"sw-01.lab(config)#": "sw-01.lab",
	}
	for in, want := range tests {
		if got := promptBase(in); got != want {
			t.Errorf("promptBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEndsWithAny(t *testing.T) {
	if !endsWithAny("Last login\r\nops@jump:~$ ", []string{"$"}) {
		t.Error("expected $ prompt to match")
	}
	if endsWithAny("ops@jump:~$ \r\nmotd", []string{"$"}) {
		t.Error("only the last line should be considered")
	}
	if endsWithAny("anything", []string{""}) {
		t.Error("empty endings must never match")
	}
}

func TestCleanOutput(t *testing.T) {
	raw := "show clock\r\n*09:00:00.000 UTC Mon Oct 12 2026\r\ncore1#"
	if got := cleanOutput(raw, "show clock"); got != "*09:00:00.000 UTC Mon Oct 12 2026" {
		t.Errorf("cleanOutput() = %q", got)
	}

	if got := cleanOutput("terminal length 0\r\ncore1#", "terminal length 0"); got != "" {
		t.Errorf("cleanOutput() of empty response = %q, want empty", got)
	}
}

func TestExpecter_ReadUntilAcrossChunks(t *testing.T) {
	r, w := io.Pipe()
	e := newExpecter(r)
	defer e.close()

	go func() {
		w.Write([]byte("show ver\r\nCisco IOS"))
		w.Write([]byte(" Software\r\ncore"))
		w.Write([]byte("1#"))
	}()

	out, err := e.readUntil(context.Background(), time.Second, isDevicePrompt)
	if err != nil {
		t.Fatalf("readUntil() error: %v", err)
	}
	if out != "show ver\r\nCisco IOS Software\r\ncore1#" {
		t.Errorf("readUntil() = %q", out)
	}
}

func TestExpecter_Timeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	e := newExpecter(r)
	defer e.close()

	_, err := e.readUntil(context.Background(), 50*time.Millisecond, isDevicePrompt)
	if !errors.Is(err, errTimeout) {
		t.Errorf("readUntil() error = %v, want timeout", err)
	}
}

func TestExpecter_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	e := newExpecter(r)
	defer e.close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.readUntil(ctx, time.Second, isDevicePrompt)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("readUntil() error = %v, want context.Canceled", err)
	}
}

func TestExpecter_EOF(t *testing.T) {
	r, w := io.Pipe()
	e := newExpecter(r)
	defer e.close()

	go func() {
		w.Write([]byte("Connection closed by foreign host."))
		w.Close()
	}()

	out, err := e.readUntil(context.Background(), time.Second, isDevicePrompt)
	if !errors.Is(err, io.EOF) {
		t.Errorf("readUntil() error = %v, want EOF", err)
	}
	if out != "Connection closed by foreign host." {
		t.Errorf("readUntil() should return partial output, got %q", out)
	}
}
