// Package session orchestrates one interview screen: provisioning, call
// lifecycle, clock, transcript, feedback generation, and the completion handoff.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/audio"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/clock"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/completion"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/feedback"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/fsm"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/notify"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/transcript"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/voice"
	"github.com/google/uuid"
)

// Speaker is who currently holds the floor. Presentation only.
type Speaker string

const (
	SpeakerAssistant Speaker = "assistant"
	SpeakerCandidate Speaker = "candidate"
)

// Result is the outcome of one activation that reached the completion view.
type Result struct {
	Activation string
	Record     interview.ResultRecord
	Outcome    feedback.Outcome
	Handoff    completion.Handoff
	// SubmitErr is the recovered feedback failure, if any.
	SubmitErr error
	// Err is a navigation failure.
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status is a read-only snapshot for other goroutines.
type Status struct {
	Activation  string
	InterviewID string
	JobTitle    string
	UserName    string
	Questions   int
	Provisioned bool
	State       fsm.State
	Elapsed     string
	Speaker     Speaker
	// LastErr is the most recent start failure of this activation. It wraps
	// ErrNoQuestionsAvailable, ErrMicrophonePermissionDenied, or a
	// *voice.ServiceError, and is cleared by the next start.
	LastErr error
}

// Deps wires the controller to its collaborators. Nil collaborators fall
// back to inert defaults.
type Deps struct {
	Logger      *slog.Logger
	Voice       VoiceFactory
	Microphone  Microphone
	Provisioner Provisioner
	Submitter   Submitter
	Navigator   completion.Navigator
	Notifier    notify.Notifier
	Providers   voice.Providers
	// DefaultUserName is used when the navigation state names no candidate.
	DefaultUserName string
	TickInterval    time.Duration
	// StopGrace bounds how long a stopped call may wait for the gateway to
	// confirm the end before the stream is closed locally.
	StopGrace time.Duration
	Now       func() time.Time
}

// DefaultStopGrace is used when Deps.StopGrace is zero.
const DefaultStopGrace = 5 * time.Second

// Controller owns session state. All mutation happens on the Run goroutine.
type Controller struct {
	logger      *slog.Logger
	newVoice    VoiceFactory
	microphone  Microphone
	provisioner Provisioner
	submitter   Submitter
	navigator   completion.Navigator
	notifier    notify.Notifier
	providers   voice.Providers
	defaultName string
	tick        time.Duration
	stopGrace   time.Duration
	now         func() time.Time

	commands chan command
	async    chan message
	results  chan Result
	done     chan struct{}
	running  sync.Once

	mu       sync.RWMutex
	snapshot Status

	// act is owned by the Run goroutine.
	act *activation
}

// activation is one screen mount.
type activation struct {
	id          string
	interviewID string
	nav         interview.NavigationState
	autoStart   bool
	mountedAt   time.Time

	info        interview.Context
	provisioned bool

	voice  Voice
	events <-chan voice.Event

	state     fsm.State
	speaker   Speaker
	clock     *clock.Clock
	buffer    transcript.Buffer
	duration  string
	finalized bool
	delivered bool
	lastErr   error

	// stopDeadline is when an unconfirmed stop is forced to end.
	stopDeadline time.Time
}

// NewController constructs a controller with safe default fallbacks.
func NewController(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	microphone := deps.Microphone
	if microphone == nil {
		microphone = MicrophoneFunc(func(context.Context) (audio.Device, error) {
			return audio.Device{ID: "none", Available: true}, nil
		})
	}
	provisioner := deps.Provisioner
	if provisioner == nil {
		provisioner = interview.NewResolver(nil, logger)
	}
	submitter := deps.Submitter
	if submitter == nil {
		submitter = feedback.NewSubmitter(nil, 0, logger)
	}
	navigator := deps.Navigator
	if navigator == nil {
		navigator = discardNavigator
	}
	var notifier notify.Notifier = noopNotifier{}
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	tick := deps.TickInterval
	if tick <= 0 {
		tick = clock.TickInterval
	}
	stopGrace := deps.StopGrace
	if stopGrace <= 0 {
		stopGrace = DefaultStopGrace
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	providers := deps.Providers
	if providers == (voice.Providers{}) {
		providers = voice.DefaultProviders()
	}

	return &Controller{
		logger:      logger,
		newVoice:    deps.Voice,
		microphone:  microphone,
		provisioner: provisioner,
		submitter:   submitter,
		navigator:   navigator,
		notifier:    notifier,
		providers:   providers,
		defaultName: deps.DefaultUserName,
		tick:        tick,
		stopGrace:   stopGrace,
		now:         now,
		commands:    make(chan command),
		async:       make(chan message, 8),
		results:     make(chan Result, 4),
		done:        make(chan struct{}),
		snapshot:    Status{State: fsm.StateIdle, Elapsed: clock.Zero, Speaker: SpeakerCandidate},
	}
}

// Results delivers one Result per activation that reached the completion view.
func (c *Controller) Results() <-chan Result {
	return c.results
}

// State returns the current call state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.State
}

// Status returns the current screen snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Activate mounts a fresh screen for interviewID. It is accepted from Idle
// or Ended and discards everything the previous activation held. When
// autoStart is set the call starts as soon as provisioning finishes.
func (c *Controller) Activate(ctx context.Context, interviewID string, nav interview.NavigationState, autoStart bool) error {
	return c.send(ctx, command{kind: commandActivate, interviewID: interviewID, nav: nav, autoStart: autoStart})
}

// Start requests Idle -> Starting. It returns once the request is accepted;
// call progress is reported through notifications and Status.
func (c *Controller) Start(ctx context.Context) error {
	return c.send(ctx, command{kind: commandStart})
}

// Stop requests Active -> Ending. It is a no-op when there is no live call.
func (c *Controller) Stop(ctx context.Context) error {
	return c.send(ctx, command{kind: commandStop})
}

// Run executes the session loop until ctx is cancelled. It is the only
// goroutine that mutates session state.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.running.Do(func() { started = true })
	if !started {
		return errors.New("session loop already ran")
	}
	defer close(c.done)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer c.teardown()

	for {
		var events <-chan voice.Event
		if c.act != nil {
			events = c.act.events
		}

		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.commands:
			cmd.reply <- c.handleCommand(ctx, cmd)
		case ev, ok := <-events:
			if !ok {
				c.act.events = nil
				continue
			}
			c.handleVoiceEvent(ctx, ev)
		case msg := <-c.async:
			c.handleMessage(ctx, msg)
		case <-ticker.C:
			c.handleTick(ctx)
		}
	}
}

// teardown closes the voice handle when the screen is dismissed.
func (c *Controller) teardown() {
	if c.act == nil || c.act.voice == nil {
		return
	}
	if err := c.act.voice.Close(); err != nil {
		c.logger.Debug("voice close failed", "activation", c.act.id, "error", err.Error())
	}
}

func (c *Controller) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handleCommand(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case commandActivate:
		return c.activate(ctx, cmd)
	case commandStart:
		return c.start(ctx)
	case commandStop:
		return c.stop(ctx)
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
}

func (c *Controller) activate(ctx context.Context, cmd command) error {
	if c.act != nil && c.act.state != fsm.StateIdle && !fsm.Terminal(c.act.state) {
		return fmt.Errorf("cannot activate from state %s", c.act.state)
	}
	if c.act != nil && fsm.Terminal(c.act.state) && !c.act.delivered {
		return fmt.Errorf("interview %s: %w", c.act.interviewID, ErrCompletionPending)
	}
	if c.newVoice == nil {
		return errors.New("voice session is not configured")
	}

	if c.act != nil && c.act.voice != nil {
		if err := c.act.voice.Close(); err != nil {
			c.logger.Debug("previous voice close failed", "activation", c.act.id, "error", err.Error())
		}
	}

	handle := c.newVoice()
	previous := fsm.StateIdle
	if c.act != nil {
		previous = c.act.state
	}
	c.act = &activation{
		id:          uuid.NewString(),
		interviewID: cmd.interviewID,
		nav:         cmd.nav,
		autoStart:   cmd.autoStart,
		mountedAt:   c.now(),
		voice:       handle,
		events:      handle.Events(),
		state:       fsm.StateIdle,
		speaker:     SpeakerCandidate,
		clock:       clock.New(),
	}
	c.logger.Info("session activated",
		"activation", c.act.id,
		"interview_id", cmd.interviewID,
		"from", string(previous),
		"auto_start", cmd.autoStart,
	)
	c.publish()

	act := c.act
	go func() {
		info, source := c.provisioner.Resolve(ctx, act.interviewID, act.nav, c.defaultName)
		c.post(ctx, provisioned{activationID: act.id, info: info, source: source})
	}()
	return nil
}

func (c *Controller) start(ctx context.Context) error {
	act := c.act
	if act == nil {
		return ErrNotActivated
	}
	if act.voice.Active() {
		return nil
	}
	if act.state != fsm.StateIdle {
		return fmt.Errorf("cannot start from state %s", act.state)
	}
	act.lastErr = nil
	if len(act.info.Questions) == 0 {
		act.lastErr = ErrNoQuestionsAvailable
		c.publish()
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindNoQuestions})
		c.logger.Warn("start rejected", "activation", act.id, "error", ErrNoQuestionsAvailable.Error())
		return ErrNoQuestionsAvailable
	}

	if err := c.transition(fsm.EventStart); err != nil {
		return err
	}
	c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindStarting})

	go func() {
		device, err := c.microphone.Probe(ctx)
		c.post(ctx, probed{activationID: act.id, device: device, err: err})
	}()
	return nil
}

func (c *Controller) stop(ctx context.Context) error {
	act := c.act
	if act == nil {
		return nil
	}
	switch act.state {
	case fsm.StateStarting:
		return ErrStartInProgress
	case fsm.StateEnding:
		c.forceEnd(ctx, "stop repeated")
		return nil
	case fsm.StateActive:
	default:
		return nil
	}

	c.freezeDuration()
	if err := c.transition(fsm.EventStop); err != nil {
		return err
	}
	act.clock.Reset()
	act.stopDeadline = c.now().Add(c.stopGrace)
	c.publish()
	c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindEnded})

	go func() {
		err := act.voice.Stop(ctx)
		c.post(ctx, stopped{activationID: act.id, err: err})
	}()
	return nil
}

func (c *Controller) handleMessage(ctx context.Context, msg message) {
	act := c.act
	if act == nil || act.id != msg.activation() {
		c.logger.Debug("discarding result from superseded activation", "activation", msg.activation())
		return
	}

	switch m := msg.(type) {
	case provisioned:
		act.info = m.info
		act.provisioned = true
		c.logger.Info("interview provisioned",
			"activation", act.id,
			"interview_id", m.info.ID,
			"source", string(m.source),
			"questions", len(m.info.Questions),
		)
		c.publish()
		if act.autoStart && act.state == fsm.StateIdle {
			if err := c.start(ctx); err != nil {
				c.logger.Warn("auto start failed", "activation", act.id, "error", err.Error())
			}
		}

	case probed:
		if act.state != fsm.StateStarting {
			return
		}
		if m.err != nil {
			err := fmt.Errorf("%w: %w", ErrMicrophonePermissionDenied, m.err)
			c.logger.Error("microphone probe failed", "activation", act.id, "error", err.Error())
			act.lastErr = err
			_ = c.transition(fsm.EventStartFailed)
			c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindMicrophoneDenied, Detail: m.err.Error()})
			return
		}
		c.logger.Info("microphone confirmed", "activation", act.id, "device", m.device.ID)
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindMicrophoneConfirmed})

		assistant := voice.BuildAssistant(c.providers, act.info.UserName, act.info.JobTitle, act.info.Questions)
		go func() {
			err := act.voice.Start(ctx, assistant)
			c.post(ctx, callRequested{activationID: act.id, err: err})
		}()

	case callRequested:
		if m.err == nil || act.state != fsm.StateStarting {
			return
		}
		c.startFailed(ctx, m.err)

	case stopped:
		if m.err != nil {
			c.logger.Warn("voice stop failed", "activation", act.id, "error", m.err.Error())
		}

	case submitted:
		c.logger.Info("feedback generation finished",
			"activation", act.id,
			"outcome", string(m.outcome),
			"has_feedback", m.record.HasFeedback(),
		)
		switch m.outcome {
		case feedback.OutcomeSubmitted:
			c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindFeedbackSubmitted})
		case feedback.OutcomeSkipped:
			c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindNoConversation})
		default:
			c.logger.Error("feedback submission failed", "activation", act.id, "error", errorText(m.err))
			c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindFeedbackFailed})
		}

		handoff := completion.NewHandoff(m.record, act.id, c.now())
		go func() {
			err := c.navigator.Navigate(ctx, handoff)
			c.post(ctx, navigated{activationID: act.id, handoff: handoff, outcome: m.outcome, submitErr: m.err, err: err})
		}()

	case navigated:
		if m.err != nil {
			c.logger.Error("completion handoff failed", "activation", act.id, "error", m.err.Error())
		} else {
			c.logger.Info("completion handoff delivered", "activation", act.id, "route", m.handoff.Route)
		}
		result := Result{
			Activation: act.id,
			Record:     m.handoff.State.InterviewData,
			Outcome:    m.outcome,
			Handoff:    m.handoff,
			SubmitErr:  m.submitErr,
			Err:        m.err,
			StartedAt:  act.mountedAt,
			FinishedAt: c.now(),
		}
		act.delivered = true
		select {
		case c.results <- result:
		default:
			c.logger.Warn("result dropped; no reader", "activation", act.id)
		}
	}
}

func (c *Controller) handleVoiceEvent(ctx context.Context, ev voice.Event) {
	act := c.act
	switch ev.Kind {
	case voice.EventCallStarted:
		if act.state != fsm.StateStarting {
			c.logger.Debug("call start ignored", "activation", act.id, "state", string(act.state))
			return
		}
		if err := c.transition(fsm.EventCallStarted); err != nil {
			return
		}
		act.clock.Start(c.now())
		act.speaker = SpeakerCandidate
		c.publish()
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindConnected})

	case voice.EventCallFailed:
		if act.state != fsm.StateStarting {
			return
		}
		c.startFailed(ctx, ev.Err)

	case voice.EventSpeechStarted:
		act.speaker = SpeakerAssistant
		c.publish()
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindAssistantSpeaking})

	case voice.EventSpeechEnded:
		act.speaker = SpeakerCandidate
		c.publish()
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindCandidateTurn})

	case voice.EventTranscript:
		act.buffer.Replace(ev.Turns)
		c.logger.Debug("transcript updated", "activation", act.id, "turns", act.buffer.Len())

	case voice.EventError:
		category := voice.Classify(ev.Err)
		c.logger.Warn("voice service error",
			"activation", act.id,
			"category", string(category),
			"error", errorText(ev.Err),
		)
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindVoiceError, Category: category, Detail: serviceDetail(ev.Err)})

	case voice.EventCallEnded:
		c.callEnded(ctx, ev)
	}
}

// callEnded moves to Ended and runs feedback generation exactly once.
func (c *Controller) callEnded(ctx context.Context, ev voice.Event) {
	act := c.act
	if act.finalized {
		c.logger.Debug("duplicate call end ignored", "activation", act.id)
		return
	}
	switch act.state {
	case fsm.StateStarting, fsm.StateActive, fsm.StateEnding:
	default:
		c.logger.Debug("call end ignored", "activation", act.id, "state", string(act.state))
		return
	}

	wasActive := act.state == fsm.StateActive
	c.freezeDuration()
	if err := c.transition(fsm.EventCallEnded); err != nil {
		return
	}
	act.finalized = true
	act.clock.Reset()
	act.speaker = SpeakerCandidate
	c.publish()
	if wasActive {
		c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindEnded})
	}

	// The transcript is read here, at call end, not captured earlier.
	turns := act.buffer.Snapshot()
	info := act.info
	duration := act.duration
	c.logger.Info("call ended",
		"activation", act.id,
		"duration", duration,
		"turns", len(turns),
		"synthetic", ev.Synthetic,
	)

	go func() {
		record, outcome, err := c.submitter.Submit(ctx, info, duration, turns)
		c.post(ctx, submitted{activationID: act.id, record: record, outcome: outcome, err: err})
	}()
}

func (c *Controller) startFailed(ctx context.Context, err error) {
	category := voice.Classify(err)
	c.act.lastErr = voice.Wrap(err)
	c.logger.Error("call start failed",
		"activation", c.act.id,
		"category", string(category),
		"error", errorText(err),
	)
	_ = c.transition(fsm.EventStartFailed)
	c.notifier.Notify(ctx, notify.Notice{Kind: notify.KindStartFailed, Category: category, Detail: serviceDetail(err)})
}

// freezeDuration records elapsed call time the first time the call leaves Active.
func (c *Controller) freezeDuration() {
	act := c.act
	if act.duration != "" {
		return
	}
	act.duration = clock.Format(act.clock.Elapsed(c.now()))
}

func (c *Controller) handleTick(ctx context.Context) {
	act := c.act
	if act == nil {
		return
	}
	if act.state == fsm.StateEnding && !act.stopDeadline.IsZero() && !c.now().Before(act.stopDeadline) {
		c.forceEnd(ctx, "stop not confirmed")
		return
	}
	act.clock.Tick(c.now(), act.state == fsm.StateActive)
	c.publish()
}

// forceEnd finishes a stopped call the gateway never confirmed: the call is
// ended locally and the voice stream is closed.
func (c *Controller) forceEnd(ctx context.Context, reason string) {
	act := c.act
	c.logger.Warn("call end not confirmed; closing voice stream",
		"activation", act.id,
		"reason", reason,
	)
	c.callEnded(ctx, voice.Event{Kind: voice.EventCallEnded, Synthetic: true})

	handle := act.voice
	go func() {
		if err := handle.Close(); err != nil {
			c.logger.Debug("voice close failed", "activation", act.id, "error", err.Error())
		}
	}()
}

// transition applies one FSM event and logs it.
func (c *Controller) transition(event fsm.Event) error {
	act := c.act
	from := act.state
	next, err := fsm.Transition(from, event)
	if err != nil {
		c.logger.Warn("session transition rejected",
			"activation", act.id,
			"state", string(from),
			"event", string(event),
			"error", err.Error(),
		)
		return err
	}
	act.state = next
	c.logger.Info("session transition",
		"activation", act.id,
		"from", string(from),
		"to", string(next),
		"event", string(event),
	)
	c.publish()
	return nil
}

// publish copies loop state into the snapshot read by other goroutines.
func (c *Controller) publish() {
	act := c.act
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = Status{
		Activation:  act.id,
		InterviewID: act.interviewID,
		JobTitle:    act.info.JobTitle,
		UserName:    act.info.UserName,
		Questions:   len(act.info.Questions),
		Provisioned: act.provisioned,
		State:       act.state,
		Elapsed:     act.clock.Display(),
		Speaker:     act.speaker,
		LastErr:     act.lastErr,
	}
}

// post hands an async result back to the loop unless the loop is gone.
func (c *Controller) post(ctx context.Context, msg message) {
	select {
	case c.async <- msg:
	case <-ctx.Done():
	case <-c.done:
	}
}

func serviceDetail(err error) string {
	if err == nil {
		return ""
	}
	var svc *voice.ServiceError
	if errors.As(err, &svc) && svc.Message != "" {
		return svc.Message
	}
	return err.Error()
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
