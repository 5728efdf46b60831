// Package notify delivers user-visible session notices and audio cues.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/config"
)

// Notifier is the session-facing notification contract.
type Notifier interface {
	Notify(context.Context, Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(context.Context, Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Dispatcher routes notices to the configured backend and plays cues.
type Dispatcher struct {
	cfg      config.NotifyConfig
	out      io.Writer
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// New creates a dispatcher. out receives console notices.
func New(cfg config.NotifyConfig, out io.Writer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		out:      out,
		logger:   logger,
		messages: messagesFromEnv(),
	}
}

// Text renders n without delivering it.
func (d *Dispatcher) Text(n Notice) string {
	text, _ := d.messages.render(n)
	return text
}

// Notify shows n and emits its cue.
func (d *Dispatcher) Notify(ctx context.Context, n Notice) {
	text, level := d.messages.render(n)
	d.playCue(cueFor(n.Kind))

	if d.logger != nil {
		d.logger.Debug("notice", "kind", string(n.Kind), "level", string(level), "text", text)
	}

	switch strings.ToLower(strings.TrimSpace(d.cfg.Backend)) {
	case config.NotifyNone:
		return
	case config.NotifyDesktop:
		timeout := d.cfg.TimeoutMS
		if level == LevelError || level == LevelWarn {
			timeout = d.cfg.ErrorTimeoutMS
		}
		d.run(ctx, func(ctx context.Context) error {
			return d.notifyDesktop(ctx, timeout, text)
		})
	default:
		d.printConsole(level, text)
	}
}

// Dismiss removes the current desktop notification when present.
func (d *Dispatcher) Dismiss(ctx context.Context) {
	if !strings.EqualFold(strings.TrimSpace(d.cfg.Backend), config.NotifyDesktop) {
		return
	}
	d.run(ctx, d.dismissDesktop)
}

func (d *Dispatcher) printConsole(level Level, text string) {
	if d.out == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = fmt.Fprintf(d.out, "[%s] %s\n", level, text)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (d *Dispatcher) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	d.mu.Lock()
	replaceID := d.desktopNotificationID
	d.mu.Unlock()

	appName := strings.TrimSpace(d.cfg.DesktopAppName)
	if appName == "" {
		appName = "interviewroom"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.desktopNotificationID = id
	d.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (d *Dispatcher) dismissDesktop(ctx context.Context) error {
	d.mu.Lock()
	id := d.desktopNotificationID
	d.desktopNotificationID = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes a notification operation with a bounded timeout.
func (d *Dispatcher) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.log("notification dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (d *Dispatcher) playCue(kind cueKind) {
	if !d.cfg.SoundEnable || kind == cueNone {
		return
	}
	go func() {
		d.soundMu.Lock()
		defer d.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind, d.cfg); err != nil {
			d.log("notification audio cue failed", err)
		}
	}()
}

// log emits debug-only notification failures to the runtime logger.
func (d *Dispatcher) log(message string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(message, "error", err.Error())
}
