// Package audio discovers PulseAudio input sources and verifies that the
// microphone can actually be opened before an interview starts.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const applicationName = "interviewroom"

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the source can be recorded from right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the source the probe will open, with a warning when the
// preferred source had to be skipped.
type Selection struct {
	Device  Device
	Warning string
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default and availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil || isMonitorSource(source.SourceName) {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves the configured preference against live devices.
func SelectDevice(ctx context.Context, preferred string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDevice(devices, preferred)
}

// selectDevice picks the preferred source when usable, then the default
// source, then the first usable one.
func selectDevice(devices []Device, preferred string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	preferred = strings.TrimSpace(strings.ToLower(preferred))
	wantsDefault := preferred == "" || preferred == "default"

	var warning string
	if !wantsDefault {
		for _, dev := range devices {
			if !deviceMatches(dev, preferred) {
				continue
			}
			if dev.Usable() {
				return Selection{Device: dev}, nil
			}
			warning = fmt.Sprintf("audio device %q is %s", dev.ID, unusableReason(dev))
			break
		}
		if warning == "" {
			warning = fmt.Sprintf("audio device %q did not match any source", preferred)
		}
	}

	for _, dev := range devices {
		if dev.Default && dev.Usable() {
			return Selection{Device: dev, Warning: withFallback(warning, dev)}, nil
		}
	}
	for _, dev := range devices {
		if dev.Usable() {
			return Selection{Device: dev, Warning: withFallback(warning, dev)}, nil
		}
	}

	if warning != "" {
		return Selection{}, fmt.Errorf("%s and no other input is usable", warning)
	}
	return Selection{}, errors.New("no usable audio input: every source is muted or unavailable")
}

func withFallback(warning string, dev Device) string {
	if warning == "" {
		return ""
	}
	return fmt.Sprintf("%s; using %q", warning, dev.ID)
}

func unusableReason(dev Device) string {
	if dev.Muted {
		return "muted"
	}
	return "unavailable"
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// isMonitorSource filters loopback sources of output sinks.
func isMonitorSource(name string) bool {
	return strings.HasSuffix(name, ".monitor")
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
