// Package app wires the command tree, resolves each subcommand into its
// action, and renders every failure exactly once.
package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethkit/ethkit/internal/config"
	clierr "github.com/ethkit/ethkit/internal/errors"
	"github.com/ethkit/ethkit/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer

	// sessionInput feeds the interactive session; tests replace it.
	sessionInput io.Reader
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout:       stdout,
		stderr:       stderr,
		sessionInput: os.Stdin,
	}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	root     *cobra.Command
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := normalizeRunError(root.Execute())
	if err == nil {
		return 0
	}
	state.renderError(err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     version.CLIName,
		Short:   "Ethereum hashing helpers and an interactive node sandbox",
		Version: version.CLIVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", "schema":
				// These never touch the network or cache; a broken
				// config file must not block them.
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			return nil
		},
		// With no subcommand named, drop into the interactive session.
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runSession(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "Ethereum JSON-RPC endpoint")
	cmd.PersistentFlags().BoolVar(&s.flags.Sandbox, "sandbox", false, "Use an ephemeral in-memory chain with funded accounts")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Node request timeout")
	cmd.PersistentFlags().BoolVar(&s.flags.NoCache, "no-cache", false, "Disable the endpoint cache")

	cmd.AddCommand(s.newKeccakCommand())
	cmd.AddCommand(s.newSha256Command())
	cmd.AddCommand(s.newNamehashCommand())
	cmd.AddCommand(s.newSighashCommand())
	cmd.AddCommand(s.newUtf8BytesCommand())
	cmd.AddCommand(s.newUtf8StringCommand())
	cmd.AddCommand(s.newSandboxCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

// renderError is the single rendering point for every failure. Message-only
// errors show the message and the command summary; anything else gets the
// full diagnostic chain.
func (s *runtimeState) renderError(err error) {
	w := s.runner.stderr
	_, _ = fmt.Fprintln(w)
	if clierr.MessageOnly(err) {
		_, _ = fmt.Fprintf(w, "Error: %s\n\n", err.Error())
		_, _ = fmt.Fprint(w, s.root.UsageString())
	} else {
		_, _ = fmt.Fprintf(w, "Error: %+v\n", err)
	}
	_, _ = fmt.Fprintln(w)
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
