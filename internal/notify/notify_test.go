package notify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/config"
	"github.com/stretchr/testify/require"
)

func quietConfig(backend string) config.NotifyConfig {
	cfg := config.Default().Notify
	cfg.Backend = backend
	cfg.SoundEnable = false
	return cfg
}

func TestConsoleBackendPrintsLevelAndText(t *testing.T) {
	var out bytes.Buffer
	d := New(quietConfig(config.NotifyConsole), &out, nil)

	d.Notify(context.Background(), Notice{Kind: KindConnected})
	d.Notify(context.Background(), Notice{Kind: KindFeedbackSubmitted})
	d.Notify(context.Background(), Notice{Kind: KindStartFailed, Category: "other", Detail: "gateway unreachable"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"[info] Call Connected...",
		"[success] Feedback submitted!",
		"[error] Failed to start interview: gateway unreachable",
	}, lines)
}

func TestNoneBackendIsSilent(t *testing.T) {
	var out bytes.Buffer
	d := New(quietConfig(config.NotifyNone), &out, nil)

	d.Notify(context.Background(), Notice{Kind: KindEnded})
	d.Dismiss(context.Background())
	require.Empty(t, out.String())
}

func TestDesktopBackendReplacesAndDismissesNotification(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$6" == "Notify" ]]; then
  echo 'u 7'
fi
`)

	cfg := quietConfig(config.NotifyDesktop)
	cfg.TimeoutMS = 3000
	cfg.ErrorTimeoutMS = 9000
	d := New(cfg, nil, nil)

	d.Notify(context.Background(), Notice{Kind: KindStarting})
	d.Notify(context.Background(), Notice{Kind: KindNoQuestions})
	d.Dismiss(context.Background())
	d.Dismiss(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	prefix := "--user call org.freedesktop.Notifications /org/freedesktop/Notifications org.freedesktop.Notifications "
	require.Equal(t, prefix+"Notify susssasa{sv}i interviewroom 0  Starting interview... Connecting to voice service...  0 0 3000", lines[0])
	require.Equal(t, prefix+"Notify susssasa{sv}i interviewroom 7  No questions available.  0 0 9000", lines[1])
	require.Equal(t, prefix+"CloseNotification u 7", lines[2])
}

func TestDesktopBackendFailureIsSwallowed(t *testing.T) {
	installBusctlStub(t, `
echo 'no session bus' >&2
exit 1
`)

	d := New(quietConfig(config.NotifyDesktop), nil, nil)
	d.Notify(context.Background(), Notice{Kind: KindConnected})
	d.Dismiss(context.Background())
}

func TestDesktopNotifyRejectsMalformedResponse(t *testing.T) {
	installBusctlStub(t, `
echo 'garbage'
`)

	_, err := desktopNotify(context.Background(), "interviewroom", 0, "hello", 1000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid response")
}

func TestNotifierFuncAdapts(t *testing.T) {
	var got []Kind
	var n Notifier = NotifierFunc(func(_ context.Context, notice Notice) {
		got = append(got, notice.Kind)
	})
	n.Notify(context.Background(), Notice{Kind: KindCandidateTurn})
	require.Equal(t, []Kind{KindCandidateTurn}, got)
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
