package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/audio"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/clock"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/completion"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/feedback"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/fsm"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/ipc"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/notify"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/transcript"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/voice"
	"github.com/stretchr/testify/require"
)

type fakeVoice struct {
	events    chan voice.Event
	startErr  error
	closeOnce sync.Once

	mu     sync.Mutex
	starts []voice.AssistantConfig
	active bool

	stops  atomic.Int32
	closed atomic.Bool
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{events: make(chan voice.Event, 16)}
}

func (f *fakeVoice) Start(_ context.Context, cfg voice.AssistantConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, cfg)
	return f.startErr
}

func (f *fakeVoice) Stop(context.Context) error {
	f.stops.Add(1)
	return nil
}

func (f *fakeVoice) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeVoice) Events() <-chan voice.Event { return f.events }

func (f *fakeVoice) Close() error {
	f.closed.Store(true)
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

func (f *fakeVoice) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (f *fakeNotifier) Notify(_ context.Context, n notify.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

func (f *fakeNotifier) kinds() []notify.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.Kind, 0, len(f.notices))
	for _, n := range f.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (f *fakeNotifier) last() notify.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notices) == 0 {
		return notify.Notice{}
	}
	return f.notices[len(f.notices)-1]
}

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    int
	turns    []transcript.Turn
	duration string
}

func (f *fakeSubmitter) Submit(_ context.Context, info interview.Context, duration string, turns []transcript.Turn) (interview.ResultRecord, feedback.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.turns = turns
	f.duration = duration
	return interview.ResultRecord{
		ID:       info.ID,
		JobTitle: info.JobTitle,
		UserName: info.UserName,
		Duration: duration,
		Feedback: json.RawMessage(`{"rating":8}`),
	}, feedback.OutcomeSubmitted, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type provisionerFunc func(ctx context.Context, id string, nav interview.NavigationState, defaultName string) (interview.Context, interview.Source)

func (f provisionerFunc) Resolve(ctx context.Context, id string, nav interview.NavigationState, defaultName string) (interview.Context, interview.Source) {
	return f(ctx, id, nav, defaultName)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var questions = []string{"What is a goroutine?", "Explain channels."}

func staticProvisioner(qs []string) Provisioner {
	return provisionerFunc(func(_ context.Context, id string, _ interview.NavigationState, name string) (interview.Context, interview.Source) {
		return interview.Context{ID: id, JobTitle: "Go Developer", Duration: "15 Min", Questions: qs, UserName: name}, interview.SourceNavigation
	})
}

type harness struct {
	ctrl      *Controller
	voice     *fakeVoice
	notifier  *fakeNotifier
	submitter *fakeSubmitter
	clock     *fakeClock
	handoffs  chan completion.Handoff
	cancel    context.CancelFunc
	runDone   chan error
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()

	h := &harness{
		voice:     newFakeVoice(),
		notifier:  &fakeNotifier{},
		submitter: &fakeSubmitter{},
		clock:     &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
		handoffs:  make(chan completion.Handoff, 4),
		runDone:   make(chan error, 1),
	}
	deps := Deps{
		Voice:       func() Voice { return h.voice },
		Provisioner: staticProvisioner(questions),
		Submitter:   h.submitter,
		Notifier:    h.notifier,
		Navigator: completion.NavigatorFunc(func(_ context.Context, handoff completion.Handoff) error {
			h.handoffs <- handoff
			return nil
		}),
		DefaultUserName: "Ana",
		TickInterval:    10 * time.Millisecond,
		Now:             h.clock.Now,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.ctrl = NewController(deps)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runDone <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.runDone
	})
	return h
}

func (h *harness) activate(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Activate(context.Background(), "42", interview.NavigationState{}, false))
	waitFor(t, func() bool { return h.ctrl.Status().Provisioned })
}

func (h *harness) emit(ev voice.Event) {
	h.voice.events <- ev
}

func (h *harness) startCall(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	waitFor(t, func() bool { return h.voice.startCount() == 1 })
	h.emit(voice.Event{Kind: voice.EventCallStarted})
	waitForState(t, h.ctrl, fsm.StateActive)
}

func TestFullInterviewReachesCompletionWithFeedback(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)

	status := h.ctrl.Status()
	require.Equal(t, "42", status.InterviewID)
	require.Equal(t, "Ana", status.UserName)
	require.Equal(t, 2, status.Questions)

	h.startCall(t)

	h.voice.mu.Lock()
	assistant := h.voice.starts[0]
	h.voice.mu.Unlock()
	require.Equal(t, voice.AssistantName, assistant.Name)
	require.Equal(t, "Hi Ana, how are you? Ready for your interview on Go Developer?", assistant.FirstMessage)

	h.emit(voice.Event{Kind: voice.EventSpeechStarted})
	waitFor(t, func() bool { return h.ctrl.Status().Speaker == SpeakerAssistant })
	h.emit(voice.Event{Kind: voice.EventSpeechEnded})
	waitFor(t, func() bool { return h.ctrl.Status().Speaker == SpeakerCandidate })

	h.emit(voice.Event{Kind: voice.EventTranscript, Turns: []transcript.Turn{
		{Role: transcript.RoleAssistant, Content: "Hi Ana"},
	}})

	h.clock.Advance(65 * time.Second)
	waitFor(t, func() bool { return h.ctrl.Status().Elapsed == "00:01:05" })

	require.NoError(t, h.ctrl.Stop(context.Background()))
	require.Equal(t, fsm.StateEnding, h.ctrl.State())
	require.Equal(t, clock.Zero, h.ctrl.Status().Elapsed)
	waitFor(t, func() bool { return h.voice.stops.Load() == 1 })

	// A late transcript update still counts: the buffer is read at call end.
	final := []transcript.Turn{
		{Role: transcript.RoleAssistant, Content: "Hi Ana"},
		{Role: transcript.RoleUser, Content: "Hello!"},
	}
	h.emit(voice.Event{Kind: voice.EventTranscript, Turns: final})
	h.clock.Advance(10 * time.Second)
	h.emit(voice.Event{Kind: voice.EventCallEnded})

	handoff := receive[completion.Handoff](t, h.handoffs)
	require.Equal(t, completion.Route, handoff.Route)
	require.Equal(t, "00:01:05", handoff.State.InterviewData.Duration)
	require.True(t, handoff.State.InterviewData.HasFeedback())

	result := receive(t, h.ctrl.Results())
	require.Equal(t, feedback.OutcomeSubmitted, result.Outcome)
	require.NoError(t, result.Err)
	require.Equal(t, handoff.Activation, result.Activation)

	h.submitter.mu.Lock()
	require.Equal(t, final, h.submitter.turns)
	require.Equal(t, "00:01:05", h.submitter.duration)
	h.submitter.mu.Unlock()

	require.Equal(t, fsm.StateEnded, h.ctrl.State())
	require.Equal(t, []notify.Kind{
		notify.KindStarting,
		notify.KindMicrophoneConfirmed,
		notify.KindConnected,
		notify.KindAssistantSpeaking,
		notify.KindCandidateTurn,
		notify.KindEnded,
		notify.KindFeedbackSubmitted,
	}, h.notifier.kinds())
}

func TestStartWithoutQuestionsStaysIdle(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Provisioner = staticProvisioner(nil) })
	h.activate(t)

	err := h.ctrl.Start(context.Background())
	require.ErrorIs(t, err, ErrNoQuestionsAvailable)
	require.Equal(t, fsm.StateIdle, h.ctrl.State())
	require.Equal(t, []notify.Kind{notify.KindNoQuestions}, h.notifier.kinds())
	require.Zero(t, h.voice.startCount())
	require.ErrorIs(t, h.ctrl.Status().LastErr, ErrNoQuestionsAvailable)
}

func TestStartBeforeActivateFails(t *testing.T) {
	h := newHarness(t, nil)
	require.ErrorIs(t, h.ctrl.Start(context.Background()), ErrNotActivated)
	require.NoError(t, h.ctrl.Stop(context.Background()))
}

func TestMicrophoneDeniedReturnsToIdle(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Microphone = MicrophoneFunc(func(context.Context) (audio.Device, error) {
			return audio.Device{}, audio.ErrMicrophoneUnavailable
		})
	})
	h.activate(t)

	require.NoError(t, h.ctrl.Start(context.Background()))
	waitFor(t, func() bool { return h.notifier.last().Kind == notify.KindMicrophoneDenied })
	waitForState(t, h.ctrl, fsm.StateIdle)
	require.Zero(t, h.voice.startCount())
	require.ErrorIs(t, h.ctrl.Status().LastErr, ErrMicrophonePermissionDenied)
	require.ErrorIs(t, h.ctrl.Status().LastErr, audio.ErrMicrophoneUnavailable)
}

func TestRejectedStartIsClassified(t *testing.T) {
	h := newHarness(t, nil)
	h.voice.startErr = &voice.ServiceError{Category: voice.CategoryCredentialInvalid, Message: "Invalid Key provided"}
	h.activate(t)

	require.NoError(t, h.ctrl.Start(context.Background()))
	waitFor(t, func() bool { return h.notifier.last().Kind == notify.KindStartFailed })
	waitForState(t, h.ctrl, fsm.StateIdle)

	last := h.notifier.last()
	require.Equal(t, voice.CategoryCredentialInvalid, last.Category)
	require.Equal(t, "Invalid Key provided", last.Detail)

	lastErr := h.ctrl.Status().LastErr
	require.ErrorIs(t, lastErr, voice.ErrCredentialInvalid)
	var serviceErr *voice.ServiceError
	require.ErrorAs(t, lastErr, &serviceErr)
	require.Equal(t, "Invalid Key provided", serviceErr.Message)

	resp := h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Contains(t, resp.Message, "last start failed")
	require.Contains(t, resp.Message, "Invalid Key provided")
}

func TestCallFailedBeforeStartReturnsToIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)

	require.NoError(t, h.ctrl.Start(context.Background()))
	waitFor(t, func() bool { return h.voice.startCount() == 1 })
	h.emit(voice.Event{Kind: voice.EventCallFailed, Err: errors.New("401 Unauthorized")})

	waitFor(t, func() bool { return h.notifier.last().Kind == notify.KindStartFailed })
	waitForState(t, h.ctrl, fsm.StateIdle)
	require.Equal(t, voice.CategoryUnauthorized, h.notifier.last().Category)
	require.ErrorIs(t, h.ctrl.Status().LastErr, voice.ErrUnauthorized)

	// The user may retry; the retry clears the previous failure.
	require.NoError(t, h.ctrl.Start(context.Background()))
	waitFor(t, func() bool { return h.voice.startCount() == 2 })
	require.NoError(t, h.ctrl.Status().LastErr)
}

func TestStopGuards(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(d *Deps) {
		d.Microphone = MicrophoneFunc(func(ctx context.Context) (audio.Device, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return audio.Device{ID: "mic"}, nil
		})
	})
	h.activate(t)

	require.NoError(t, h.ctrl.Stop(context.Background()))
	require.Equal(t, fsm.StateIdle, h.ctrl.State())

	require.NoError(t, h.ctrl.Start(context.Background()))
	require.Equal(t, fsm.StateStarting, h.ctrl.State())
	require.ErrorIs(t, h.ctrl.Stop(context.Background()), ErrStartInProgress)

	err := h.ctrl.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot start from state starting")

	close(release)
	waitFor(t, func() bool { return h.voice.startCount() == 1 })
}

func TestAdapterDrivenEndRunsFeedbackOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)
	h.startCall(t)

	h.clock.Advance(3 * time.Second)
	h.emit(voice.Event{Kind: voice.EventCallEnded, Synthetic: true})
	h.emit(voice.Event{Kind: voice.EventCallEnded})

	handoff := receive[completion.Handoff](t, h.handoffs)
	require.Equal(t, "00:00:03", handoff.State.InterviewData.Duration)
	require.Equal(t, fsm.StateEnded, h.ctrl.State())

	require.Never(t, func() bool { return h.submitter.callCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, 1, h.submitter.callCount())

	// Stop after the end is a no-op.
	require.NoError(t, h.ctrl.Stop(context.Background()))
	require.Zero(t, h.voice.stops.Load())
}

func TestEmptyTranscriptSkipsSubmission(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Submitter = feedback.NewSubmitter(nil, 0, nil) })
	h.activate(t)
	h.startCall(t)

	require.NoError(t, h.ctrl.Stop(context.Background()))
	h.emit(voice.Event{Kind: voice.EventCallEnded})

	handoff := receive[completion.Handoff](t, h.handoffs)
	require.False(t, handoff.State.InterviewData.HasFeedback())
	require.Equal(t, "42", handoff.State.InterviewData.ID)

	result := receive(t, h.ctrl.Results())
	require.Equal(t, feedback.OutcomeSkipped, result.Outcome)
	require.ErrorIs(t, result.SubmitErr, feedback.ErrNoConversation)
	waitFor(t, func() bool { return h.notifier.last().Kind == notify.KindNoConversation })
}

func TestVoiceErrorDoesNotChangeState(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)
	h.startCall(t)

	h.emit(voice.Event{Kind: voice.EventError, Err: voice.Wrap(errors.New("socket hiccup"))})
	waitFor(t, func() bool { return h.notifier.last().Kind == notify.KindVoiceError })

	require.Equal(t, fsm.StateActive, h.ctrl.State())
	require.Equal(t, voice.CategoryOther, h.notifier.last().Category)
}

func TestActivateDiscardsSupersededProvisioning(t *testing.T) {
	firstRelease := make(chan struct{})
	voices := []*fakeVoice{newFakeVoice(), newFakeVoice()}
	var built atomic.Int32

	h := newHarness(t, func(d *Deps) {
		d.Voice = func() Voice { return voices[built.Add(1)-1] }
		d.Provisioner = provisionerFunc(func(ctx context.Context, id string, _ interview.NavigationState, name string) (interview.Context, interview.Source) {
			if id == "first" {
				select {
				case <-firstRelease:
				case <-ctx.Done():
				}
				return interview.Context{ID: id, JobTitle: "Stale", Questions: questions}, interview.SourceBackend
			}
			return interview.Context{ID: id, JobTitle: "Fresh", Questions: questions, UserName: name}, interview.SourceBackend
		})
	})

	require.NoError(t, h.ctrl.Activate(context.Background(), "first", interview.NavigationState{}, false))
	firstActivation := h.ctrl.Status().Activation
	require.NoError(t, h.ctrl.Activate(context.Background(), "second", interview.NavigationState{}, false))
	require.NotEqual(t, firstActivation, h.ctrl.Status().Activation)
	require.True(t, voices[0].closed.Load())

	waitFor(t, func() bool { return h.ctrl.Status().Provisioned })
	close(firstRelease)

	require.Never(t, func() bool { return h.ctrl.Status().JobTitle == "Stale" }, 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, "second", h.ctrl.Status().InterviewID)
}

func TestActivateRejectedDuringCall(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)
	h.startCall(t)

	err := h.ctrl.Activate(context.Background(), "43", interview.NavigationState{}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot activate from state active")
}

func TestActivateWaitsForPendingCompletion(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(d *Deps) {
		d.Navigator = completion.NavigatorFunc(func(ctx context.Context, handoff completion.Handoff) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		})
	})
	h.activate(t)
	h.startCall(t)
	h.emit(voice.Event{Kind: voice.EventCallEnded})
	waitForState(t, h.ctrl, fsm.StateEnded)

	err := h.ctrl.Activate(context.Background(), "43", interview.NavigationState{}, false)
	require.ErrorIs(t, err, ErrCompletionPending)
	require.Equal(t, "42", h.ctrl.Status().InterviewID)

	close(release)
	result := receive(t, h.ctrl.Results())
	require.Equal(t, "42", result.Record.ID)

	require.NoError(t, h.ctrl.Activate(context.Background(), "43", interview.NavigationState{}, false))
	waitFor(t, func() bool { return h.ctrl.Status().InterviewID == "43" })
}

func TestAutoStartBeginsAfterProvisioning(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.ctrl.Activate(context.Background(), "42", interview.NavigationState{}, true))

	waitFor(t, func() bool { return h.voice.startCount() == 1 })
	require.Equal(t, fsm.StateStarting, h.ctrl.State())
}

func TestHandleControlCommands(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Equal(t, "no interview activated", resp.Message)
	require.Equal(t, clock.Zero, resp.Elapsed)
	require.Equal(t, "candidate", resp.Speaker)

	h.activate(t)

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)
	require.Equal(t, "no active call", resp.Message)

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStart})
	require.True(t, resp.OK)
	require.Equal(t, "start requested", resp.Message)

	waitFor(t, func() bool { return h.voice.startCount() == 1 })
	h.emit(voice.Event{Kind: voice.EventCallStarted})
	waitForState(t, h.ctrl, fsm.StateActive)

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, "active", resp.State)
	require.Contains(t, resp.Message, "Go Developer")

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)
	require.Equal(t, "ending", resp.State)

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: "toggle"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}

func TestRunExitClosesVoiceAndRejectsCommands(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t)

	h.cancel()
	require.NoError(t, <-h.runDone)
	h.runDone <- nil // satisfy cleanup

	require.True(t, h.voice.closed.Load())
	require.ErrorIs(t, h.ctrl.Start(context.Background()), ErrNotRunning)
}

func waitForState(t *testing.T, ctrl *Controller, want fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", want, ctrl.State())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}
