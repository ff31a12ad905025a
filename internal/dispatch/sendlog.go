package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimestampLayout is the local-time format of the Timestamp line.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 40)
)

// Entry is one delivered message as recorded in the send log.
type Entry struct {
	Time    time.Time
	List    string
	To      string
	Subject string
	Body    string
}

// Format renders e as a log block.
func (e Entry) Format() string {
	var b strings.Builder
	b.WriteString(heavyRule + "\n")
	b.WriteString("Timestamp: " + e.Time.Format(TimestampLayout) + "\n")
	if e.List != "" {
		b.WriteString("List: " + e.List + "\n")
	}
	b.WriteString("To: " + e.To + "\n")
	b.WriteString("Subject: " + e.Subject + "\n")
	b.WriteString(lightRule + "\n")
	b.WriteString(e.Body)
	b.WriteString("\n" + heavyRule + "\n\n")
	return b.String()
}

// SendLog is an append-only, human-readable record of delivered messages.
// The file is opened per entry, so it can be rotated or inspected while a
// run is in progress.
type SendLog struct {
	path string
	mu   sync.Mutex
}

// NewSendLog returns a log writing to path.
func NewSendLog(path string) *SendLog {
	return &SendLog{path: path}
}

// Path returns the log file location.
func (l *SendLog) Path() string {
	return l.path
}

// Append writes e to the end of the log, creating the file if needed.
func (l *SendLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create send log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open send log: %w", err)
	}

	if _, err := f.WriteString(e.Format()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write send log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close send log: %w", err)
	}
	return nil
}
