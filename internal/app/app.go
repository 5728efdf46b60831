// Package app wires parsed commands to the session loop, control socket, and diagnostics.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/audio"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/backend"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/cli"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/completion"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/config"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/doctor"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/feedback"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/ipc"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/logging"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/notify"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/session"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/version"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/voice"
	"golang.org/x/sync/errgroup"
)

const binaryName = "interviewroom"

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute runs args and returns the process exit code: 2 for usage errors,
// 1 for runtime failures.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart:
		return r.forwardOrFail(ctx, ipc.CommandStart)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, parsed, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Elapsed != "" {
		state = state + " " + resp.Elapsed
	}
	fmt.Fprintln(r.Stdout, state)
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running interview screen\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun owns the control socket and the session loop until the first
// completion handoff or until ctx is cancelled.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	nav, err := loadNavigation(parsed.NavPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	client, err := backend.New(cfg.Backend.URL, backend.Options{
		Timeout:   cfg.Backend.Timeout(),
		AuthToken: cfg.Backend.AuthToken,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	navigator, closeNavigator := r.buildNavigator(ctx, cfg, logger)
	defer closeNavigator()

	notifier := notify.New(cfg.Notify, r.Stderr, logger)
	controller := session.NewController(session.Deps{
		Logger:          logger,
		Voice:           voiceFactory(cfg.Voice, logger),
		Microphone:      audio.NewProber(cfg.Audio.Input, cfg.Audio.ProbeTimeout(), logger),
		Provisioner:     interview.NewResolver(client, logger),
		Submitter:       feedback.NewSubmitter(client, cfg.Backend.FeedbackTimeout(), logger),
		Navigator:       navigator,
		Notifier:        notifier,
		Providers:       providersFromConfig(cfg.Assistant),
		DefaultUserName: parsed.UserName,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(groupCtx)
	defer cancelRun()

	group.Go(func() error {
		return ipc.Serve(runCtx, listener, controller)
	})
	group.Go(func() error {
		return controller.Run(runCtx)
	})

	var result *session.Result
	group.Go(func() error {
		defer cancelRun()
		if err := controller.Activate(runCtx, parsed.InterviewID, nav, parsed.AutoStart); err != nil {
			return fmt.Errorf("activate interview %q: %w", parsed.InterviewID, err)
		}
		select {
		case res := <-controller.Results():
			result = &res
		case <-runCtx.Done():
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	notifier.Dismiss(context.WithoutCancel(ctx))

	if result == nil {
		logger.Info("interview screen dismissed", "interview_id", parsed.InterviewID)
		fmt.Fprintln(r.Stderr, "dismissed")
		return 0
	}

	logSessionResult(logger, *result)
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	return 0
}

// buildNavigator assembles the completion targets. A database that cannot be
// reached is skipped with a warning.
func (r Runner) buildNavigator(ctx context.Context, cfg config.Config, logger *slog.Logger) (completion.Navigator, func()) {
	var chain completion.Chain
	closeFn := func() {}

	if cfg.Results.Stdout {
		chain = append(chain, completion.NewWriterNavigator(r.Stdout))
	}

	if dir, err := config.ResultsDir(cfg); err == nil {
		chain = append(chain, completion.FileArchive{Dir: dir})
	} else {
		logger.Warn("results dir unavailable", "error", err.Error())
	}

	if databaseURL := strings.TrimSpace(cfg.Results.DatabaseURL); databaseURL != "" {
		archive, err := completion.ConnectPostgres(ctx, databaseURL)
		if err != nil {
			fmt.Fprintf(r.Stderr, "warning: result archive disabled: %v\n", err)
			logger.Warn("postgres archive unavailable", "error", err.Error())
		} else {
			chain = append(chain, archive)
			closeFn = archive.Close
		}
	}

	return chain, closeFn
}

func voiceFactory(cfg config.VoiceConfig, logger *slog.Logger) session.VoiceFactory {
	var dialer voice.Dialer
	switch cfg.Transport {
	case config.TransportWebSocket:
		dialer = voice.WebSocketDialer{
			URL:              cfg.Endpoint,
			Credential:       cfg.APIKey,
			HandshakeTimeout: cfg.DialTimeout(),
		}
	default:
		dialer = voice.GRPCDialer{
			Endpoint:    cfg.Endpoint,
			Credential:  cfg.APIKey,
			DialTimeout: cfg.DialTimeout(),
		}
	}

	return func() session.Voice {
		return voice.NewSession(dialer, logger)
	}
}

func providersFromConfig(cfg config.AssistantConfig) voice.Providers {
	return voice.Providers{
		TranscriberProvider: cfg.TranscriberProvider,
		TranscriberModel:    cfg.TranscriberModel,
		Language:            cfg.Language,
		VoiceProvider:       cfg.VoiceProvider,
		VoiceID:             cfg.VoiceID,
		ModelProvider:       cfg.ModelProvider,
		Model:               cfg.Model,
	}
}

func loadNavigation(path string) (interview.NavigationState, error) {
	if strings.TrimSpace(path) == "" {
		return interview.NavigationState{}, nil
	}
	data, err := os.ReadFile(config.ExpandUserPath(path))
	if err != nil {
		return interview.NavigationState{}, fmt.Errorf("read navigation state: %w", err)
	}
	return interview.ParseNavigation(data)
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	record := result.Record
	fields := []any{
		"activation", result.Activation,
		"interview_id", record.ID,
		"outcome", result.Outcome,
		"duration", record.Duration,
		"has_feedback", record.HasFeedback(),
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"screen_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.SubmitErr != nil {
		fields = append(fields, "submit_error", result.SubmitErr.Error())
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
