// Package notify is the user-visible notification surface.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Slot keys. A notification replaces any earlier one with the same key.
const (
	KeyStatus = "status"
	KeyNearby = "nearby"
)

// Notification is a single user-visible message.
type Notification struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier posts notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Permission reports whether the user currently allows notifications.
// It is queried before every post.
type Permission func() bool

// Allowed always grants permission.
func Allowed() bool { return true }

// Denied never grants permission.
func Denied() bool { return false }

// NearbyNotification builds the grouped message for notes in range.
func NearbyNotification(titles []string) Notification {
	noun := "notes"
	if len(titles) == 1 {
		noun = "note"
	}
	return Notification{
		Key:   KeyNearby,
		Title: fmt.Sprintf("You have %d nearby %s", len(titles), noun),
		Body:  strings.Join(titles, ", "),
	}
}

// StatusNotification is the persistent indicator shown while monitoring runs.
func StatusNotification() Notification {
	return Notification{
		Key:   KeyStatus,
		Title: "Locus",
		Body:  "Locus is monitoring nearby notes",
	}
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "key", n.Key, "title", n.Title, "body", n.Body)
	return nil
}

// CommandNotifier runs an external program per notification, for example
// notify-send. Arguments may contain {title}, {body} and {key} placeholders.
type CommandNotifier struct {
	Argv   []string
	Logger *slog.Logger
}

// NewCommandNotifier splits a command line on whitespace into argv.
func NewCommandNotifier(command string, logger *slog.Logger) (*CommandNotifier, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty notifier command")
	}
	return &CommandNotifier{Argv: argv, Logger: logger}, nil
}

// Notify implements Notifier.
func (c *CommandNotifier) Notify(ctx context.Context, n Notification) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("empty notifier command")
	}
	r := strings.NewReplacer("{title}", n.Title, "{body}", n.Body, "{key}", n.Key)
	args := make([]string, len(c.Argv)-1)
	for i, a := range c.Argv[1:] {
		args[i] = r.Replace(a)
	}

	if c.Logger != nil {
		c.Logger.Debug("executing notifier", "cmd", c.Argv[0], "args", args)
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("notifier %s failed: %w\nOutput: %s", c.Argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Recorder keeps every notification in memory.
type Recorder struct {
	ch chan Notification
}

// NewRecorder creates a Recorder buffering up to size notifications.
func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Notification, size)}
}

// Notify implements Notifier. It drops notifications once the buffer is full.
func (r *Recorder) Notify(_ context.Context, n Notification) error {
	select {
	case r.ch <- n:
	default:
	}
	return nil
}

// C returns the recorded notifications in posting order.
func (r *Recorder) C() <-chan Notification {
	return r.ch
}
