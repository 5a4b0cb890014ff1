// Package notify surfaces task failures to the user without interrupting
// the build: a terminal message plus an optional desktop notification.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/conneroisu/assetforge/internal/config"
	"github.com/conneroisu/assetforge/internal/logging"
)

// Notifier reports an error to the user. Implementations must not panic and
// must not return the error to the caller.
type Notifier interface {
	Notify(ctx context.Context, err error)
}

// ConsoleNotifier prints errors to a terminal stream.
type ConsoleNotifier struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsoleNotifier creates a notifier writing to out, or stderr when nil.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Notify(ctx context.Context, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\033[31m%s\033[0m\n", err.Error())
}

type alertFunc func(title, message string, icon any) error

func beeepAlert(title, message string, _ any) error {
	return beeep.Notify(title, message, "")
}

// DesktopNotifier raises an OS notification through beeep.
type DesktopNotifier struct {
	title   string
	message string
	alert   alertFunc
	logger  logging.Logger
}

// NewDesktopNotifier creates a desktop notifier using the configured title and message.
func NewDesktopNotifier(cfg config.NotifyConfig, logger logging.Logger) *DesktopNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DesktopNotifier{
		title:   cfg.Title,
		message: cfg.Message,
		alert:   beeepAlert,
		logger:  logger.WithComponent("notify"),
	}
}

func (d *DesktopNotifier) Notify(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if alertErr := d.alert(d.title, d.message, ""); alertErr != nil {
		// Headless machines have no notification daemon.
		d.logger.Debug(ctx, "desktop notification unavailable", "error", alertErr.Error())
	}
}

// Multi fans an error out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, err error) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, err)
		}
	}
}

// FromConfig builds the notifier chain for cfg: terminal always, desktop when enabled.
func FromConfig(cfg *config.Config, out io.Writer, logger logging.Logger) Notifier {
	notifiers := Multi{NewConsoleNotifier(out)}
	if cfg.Notify.Desktop {
		notifiers = append(notifiers, NewDesktopNotifier(cfg.Notify, logger))
	}
	return notifiers
}

// Recorder keeps every notified error. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	errors []error
}

func (r *Recorder) Notify(ctx context.Context, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errors = append(r.errors, err)
	r.mu.Unlock()
}

// Errors returns a snapshot of recorded errors.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}
