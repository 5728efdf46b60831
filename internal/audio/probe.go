package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ErrMicrophoneUnavailable means no input source could be opened and read.
var ErrMicrophoneUnavailable = errors.New("microphone unavailable")

const (
	defaultProbeTimeout = 2 * time.Second
	probeFragmentBytes  = 640 // 20ms @ 16kHz mono s16
)

// openFunc starts recording from sourceID and calls onFrame for each buffer.
// The returned release func must stop and free the stream.
type openFunc func(ctx context.Context, sourceID string, onFrame func([]byte)) (release func(), err error)

// Prober checks that the microphone can be acquired, then releases it.
type Prober struct {
	preferred string
	timeout   time.Duration
	logger    *slog.Logger

	list func(context.Context) ([]Device, error)
	open openFunc
}

// NewProber builds a Pulse-backed probe for the preferred device.
func NewProber(preferred string, timeout time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{
		preferred: preferred,
		timeout:   timeout,
		logger:    logger,
		list:      ListDevices,
		open:      openPulseRecord,
	}
}

// Probe opens a short record stream, waits for the first audio frame, and
// always releases the stream before returning.
func (p *Prober) Probe(ctx context.Context) (Device, error) {
	devices, err := p.list(ctx)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	selection, err := selectDevice(devices, p.preferred)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	if selection.Warning != "" && p.logger != nil {
		p.logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	if err := probeWith(ctx, p.open, selection.Device.ID, p.timeout); err != nil {
		return selection.Device, err
	}
	return selection.Device, nil
}

func probeWith(ctx context.Context, open openFunc, sourceID string, timeout time.Duration) error {
	firstFrame := make(chan struct{})
	var once sync.Once
	onFrame := func(b []byte) {
		if len(b) == 0 {
			return
		}
		once.Do(func() { close(firstFrame) })
	}

	release, err := open(ctx, sourceID, onFrame)
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrMicrophoneUnavailable, sourceID, err)
	}
	defer release()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-firstFrame:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no audio from %q within %s", ErrMicrophoneUnavailable, sourceID, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func openPulseRecord(_ context.Context, sourceID string, onFrame func([]byte)) (func(), error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(sourceID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", sourceID, err)
	}

	writer := pulse.NewWriter(writerFunc(func(b []byte) (int, error) {
		onFrame(b)
		return len(b), nil
	}), pulseproto.FormatInt16LE)

	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(16000),
		pulse.RecordBufferFragmentSize(probeFragmentBytes),
		pulse.RecordMediaName("interviewroom microphone check"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	stream.Start()

	return func() {
		stream.Stop()
		stream.Close()
		client.Close()
	}, nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
