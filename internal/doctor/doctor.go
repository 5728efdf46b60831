// Package doctor runs readiness diagnostics for config, backend, voice gateway, and audio.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/audio"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/backend"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/completion"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const checkTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "control socket directory available", "XDG_RUNTIME_DIR is empty; start/stop/status cannot reach a running screen"))

	checks = append(checks, checkCredential(cfg))
	checks = append(checks, checkBackend(ctx, cfg))
	checks = append(checks, checkVoiceGateway(ctx, cfg))
	checks = append(checks, checkAudioSelection(ctx, cfg))

	if cfg.Notify.Backend == config.NotifyDesktop {
		checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
	}
	if strings.TrimSpace(cfg.Results.DatabaseURL) != "" {
		checks = append(checks, checkDatabase(ctx, cfg.Results.DatabaseURL))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s with %d warning(s)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkCredential(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Voice.APIKey) == "" {
		return Check{Name: "voice.credential", Pass: false, Message: fmt.Sprintf("no voice API key; set %s or voice.api_key", config.EnvVoiceAPIKey)}
	}
	return Check{Name: "voice.credential", Pass: true, Message: "voice API key configured"}
}

// checkBackend calls the interview service health endpoint.
func checkBackend(ctx context.Context, cfg config.Config) Check {
	client, err := backend.New(cfg.Backend.URL, backend.Options{Timeout: checkTimeout, AuthToken: cfg.Backend.AuthToken})
	if err != nil {
		return Check{Name: "backend.health", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		return Check{Name: "backend.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "backend.health", Pass: true, Message: fmt.Sprintf("healthy at %s", client.BaseURL())}
}

// checkVoiceGateway asks a gRPC gateway for its health status, or makes a TCP
// connection to a WebSocket gateway.
func checkVoiceGateway(ctx context.Context, cfg config.Config) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if cfg.Voice.Transport == config.TransportWebSocket {
		return checkWebSocketGateway(ctx, cfg.Voice.Endpoint)
	}
	return checkGRPCGateway(ctx, cfg.Voice.Endpoint)
}

func checkGRPCGateway(ctx context.Context, endpoint string, opts ...grpc.DialOption) Check {
	const name = "voice.gateway"
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial %s: %v", endpoint, err)}
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		if status.Code(err) == codes.Unimplemented {
			return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s (no health service)", endpoint)}
		}
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("health check %s: %v", endpoint, err)}
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s reports %s", endpoint, resp.GetStatus())}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("serving at %s", endpoint)}
}

func checkWebSocketGateway(ctx context.Context, endpoint string) Check {
	const name = "voice.gateway"
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid endpoint %q", endpoint)}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		port := "80"
		if parsed.Scheme == "wss" {
			port = "443"
		}
		host = net.JoinHostPort(parsed.Hostname(), port)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("connect %s: %v", host, err)}
	}
	_ = conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", host)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkDatabase(ctx context.Context, databaseURL string) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	archive, err := completion.ConnectPostgres(ctx, databaseURL)
	if err != nil {
		return Check{Name: "results.database", Pass: false, Message: err.Error()}
	}
	defer archive.Close()
	return Check{Name: "results.database", Pass: true, Message: "interview_results table ready"}
}
