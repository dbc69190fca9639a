package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newtron-network/ifdesc/pkg/util"
)

// FailureLogPrefix names the per-run failure log.
const FailureLogPrefix = "m_update_interface_desc-LOG"

// FailureLogPath returns {dir}/{prefix}-{timestamp}.txt.
func FailureLogPath(dir, prefix string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.txt", prefix, t.Format(util.Timestamp)))
}

// FailureLogEntry is one line of the failure log.
type FailureLogEntry struct {
	Hostname string
	Reason   string
}

func (e FailureLogEntry) String() string {
	// Keep one line per failure even when the device sent a multi-line error.
	reason := strings.Join(strings.Fields(e.Reason), " ")
	return fmt.Sprintf("Connect to %s failed: %s", e.Hostname, reason)
}

// FailureLog appends failure entries to a plain-text file. The file is
// opened, appended to and closed for each entry, so a crash loses nothing
// already recorded. Nothing is created until the first entry.
type FailureLog struct {
	path    string
	written bool
}

// NewFailureLog returns a log that will write to path.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Record appends one entry for hostname.
func (l *FailureLog) Record(hostname, reason string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating failure log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening failure log: %w", err)
	}
	_, werr := fmt.Fprintln(f, FailureLogEntry{Hostname: hostname, Reason: reason})
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("writing failure log: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("closing failure log: %w", cerr)
	}
	l.written = true
	return nil
}

// Path is the file entries go to.
func (l *FailureLog) Path() string { return l.path }

// Written reports whether at least one entry was recorded.
func (l *FailureLog) Written() bool { return l.written }
