// Package session runs the interactive shell: a line loop over stdin whose
// expressions evaluate against a connected EVM node, with pending results
// framed asynchronously.
package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethkit/ethkit/internal/chain"
	"github.com/ethkit/ethkit/internal/out"
)

type Options struct {
	Input  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Timeout bounds each node request made by an evaluation.
	Timeout time.Duration
	// EchoDelay overrides the pending-echo delay; tests shorten it.
	EchoDelay time.Duration
}

// Session is one interactive loop instance. At most one is active per
// process, and only one evaluation is ever in flight: the loop does not read
// the next line until the previous result settled.
type Session struct {
	provider  *chain.Provider
	env       *Env
	in        io.Reader
	stdout    io.Writer
	stderr    io.Writer
	echoDelay time.Duration
	buffer    []string
}

func New(provider *chain.Provider, accounts []chain.Account, opts Options) *Session {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.EchoDelay <= 0 {
		opts.EchoDelay = pendingEchoDelay
	}
	return &Session{
		provider:  provider,
		env:       NewEnv(provider, accounts, opts.Timeout),
		in:        opts.Input,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
		echoDelay: opts.EchoDelay,
	}
}

// Run drives the loop until the input is exhausted. End-of-input is the only
// termination path; it prints a trailing blank line and returns nil.
func (s *Session) Run() error {
	fmt.Fprintf(s.stdout, "network: %s (chain id %s)\n", s.provider.Label, out.Line(s.provider.ChainID))
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s.prompt()
	for scanner.Scan() {
		s.handleLine(scanner.Text())
		s.prompt()
	}
	fmt.Fprintln(s.stdout)
	return scanner.Err()
}

func (s *Session) prompt() {
	if len(s.buffer) > 0 {
		fmt.Fprint(s.stdout, "... ")
		return
	}
	fmt.Fprintf(s.stdout, "%s> ", s.provider.Label)
}

func (s *Session) handleLine(line string) {
	trimmed := strings.TrimSpace(line)
	if name, arg, ok := metaCommand(trimmed); ok {
		// Drop any buffered partial expression before touching the
		// filesystem, so the loop is ready for a fresh expression
		// immediately after the meta-command.
		s.buffer = s.buffer[:0]
		s.runMeta(name, arg)
		return
	}
	if trimmed == "" && len(s.buffer) == 0 {
		return
	}

	s.buffer = append(s.buffer, line)
	src := strings.Join(s.buffer, "\n")
	if !balanced(src) {
		return
	}
	s.buffer = s.buffer[:0]
	s.evalAndPrint(src)
}

func (s *Session) evalAndPrint(src string) {
	value, err := s.env.Eval(src)
	if err != nil {
		s.reportError(err)
		return
	}
	future, ok := value.(*Future)
	if !ok {
		s.env.setLast(value)
		_ = out.Render(s.stdout, value)
		return
	}
	s.displayFuture(future)
}

// displayFuture drives the awaiting-result state machine for one pending
// evaluation: an optional single courtesy echo after echoDelay, then the
// settled value with a Resolved/Rejected marker only when the echo already
// printed. The timer is cosmetic; it never changes the delivered value.
func (s *Session) displayFuture(f *Future) {
	s.env.setLast(f)

	timer := time.NewTimer(s.echoDelay)
	echoed := false
	select {
	case <-f.Done():
		timer.Stop()
	case <-timer.C:
		fmt.Fprintln(s.stdout, f.String())
		echoed = true
		<-f.Done()
	}

	value, err := f.Wait()
	if err != nil {
		if echoed {
			fmt.Fprintln(s.stdout, "Rejected:")
		}
		s.env.setLast(err)
		s.reportError(err)
		return
	}
	if echoed {
		fmt.Fprintln(s.stdout, "Resolved:")
	}
	s.env.setLast(value)
	_ = out.Render(s.stdout, value)
}

func (s *Session) reportError(err error) {
	fmt.Fprintf(s.stderr, "Error: %s\n", err)
}

// balanced reports whether src is a complete expression: every quote closed
// and no unclosed paren or bracket. Incomplete input keeps buffering.
func balanced(src string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, c := range src {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
	}
	return quote == 0 && depth <= 0
}
