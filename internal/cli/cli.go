// Package cli defines the interviewroom command tree and argument parsing.
package cli

import (
	"bytes"
	"strings"

	"github.com/spf13/cobra"
)

// Command identifies which runner action a parsed invocation selects.
type Command string

const (
	CommandRun     Command = "run"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// Parsed is the argument contract handed to the app runner.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// run only
	InterviewID string
	NavPath     string
	UserName    string
	AutoStart   bool
}

// Parse resolves args against the command tree without executing anything.
// Help output requested with -h/--help sets ShowHelp.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	root := newRootCmd(&parsed)
	root.SetArgs(args)
	var sink bytes.Buffer
	root.SetOut(&sink)
	root.SetErr(&sink)

	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders root usage for binaryName.
func HelpText(binaryName string) string {
	var parsed Parsed
	root := newRootCmd(&parsed)
	root.Use = binaryName

	var b bytes.Buffer
	root.SetOut(&b)
	_ = root.Help()
	return b.String()
}

func newRootCmd(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "interviewroom",
		Short: "Voice interview screen for a single candidate session",
		Long: "interviewroom provisions an interview, connects the candidate to a voice assistant, " +
			"and hands the generated feedback to the completion view.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				selectCommand(parsed, CommandVersion)
				return nil
			}
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/interviewroom/config.toml)")
	root.Flags().BoolVar(&showVersion, "version", false, "Show version")

	root.AddCommand(newRunCmd(parsed))
	root.AddCommand(
		leafCmd(parsed, CommandStart, "Start the call on the running interview screen"),
		leafCmd(parsed, CommandStop, "End the call on the running interview screen"),
		leafCmd(parsed, CommandStatus, "Print the running screen state"),
		leafCmd(parsed, CommandDevices, "List available input devices"),
		leafCmd(parsed, CommandDoctor, "Run configuration and environment checks"),
		leafCmd(parsed, CommandVersion, "Print version information"),
	)

	return root
}

func newRunCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <interview-id>",
		Short: "Open the interview screen for an interview id",
		Long: "Open the interview screen, provision questions, and serve start/stop/status on the control socket.\n" +
			"The process exits after the completion handoff is written.",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			selectCommand(parsed, CommandRun)
			parsed.InterviewID = strings.TrimSpace(args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&parsed.NavPath, "nav", "", "Navigation state JSON file (userName, interviewInfo)")
	cmd.Flags().StringVarP(&parsed.UserName, "name", "n", "", "Candidate name used when navigation state has none")
	cmd.Flags().BoolVar(&parsed.AutoStart, "auto-start", false, "Start the call once questions are provisioned")

	return cmd
}

func leafCmd(parsed *Parsed, command Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			selectCommand(parsed, command)
			return nil
		},
	}
}

func selectCommand(parsed *Parsed, command Command) {
	parsed.Command = command
	parsed.ShowHelp = false
}
