// Package prompt answers preference questions on a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/Aman-CERP/rulesmith/internal/prefs"
)

// maxAttempts bounds re-prompts for unparseable input.
const maxAttempts = 3

// lineSource reads one line of input after showing prompt.
type lineSource interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// Asker implements prefs.Asker over a line-oriented terminal.
type Asker struct {
	out   io.Writer
	lines lineSource
}

var _ prefs.Asker = (*Asker)(nil)

// New returns an Asker reading plain lines from in. Used when stdin is not
// a terminal and in tests.
func New(in io.Reader, out io.Writer) *Asker {
	return &Asker{out: out, lines: &scannerSource{out: out, sc: bufio.NewScanner(in)}}
}

// NewTerminal returns an Asker backed by readline for line editing.
func NewTerminal() (*Asker, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Asker{out: rl.Stdout(), lines: &readlineSource{rl: rl}}, nil
}

// Close releases the terminal.
func (a *Asker) Close() error {
	return a.lines.Close()
}

// Ask shows q and reads an answer. "q", Ctrl-C and end of input cancel.
func (a *Asker) Ask(ctx context.Context, q prefs.Question) (prefs.Answer, error) {
	a.render(q)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return prefs.Answer{}, prefs.ErrCancelled
		}

		line, err := a.lines.ReadLine(promptFor(q))
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return prefs.Answer{}, prefs.ErrCancelled
			}
			return prefs.Answer{}, fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if isQuit(line) {
			return prefs.Answer{}, prefs.ErrCancelled
		}

		ans, perr := Parse(q, line)
		if perr == nil {
			return ans, nil
		}
		if attempt >= maxAttempts {
			return prefs.Answer{}, perr
		}
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(a.out, "%s %v\n", red("Invalid:"), perr)
	}
}

func (a *Asker) render(q prefs.Question) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, bold(q.Prompt))
	switch q.Kind {
	case prefs.KindConfirm:
		return
	case prefs.KindMulti:
		fmt.Fprintln(a.out, faint("  (comma-separated numbers or values, \"none\" for none)"))
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	for i, opt := range q.Options {
		marker := " "
		if opt.Value == q.Default || slices.Contains(q.Defaults, opt.Value) {
			marker = "*"
		}
		fmt.Fprintf(a.out, " %s%s %s\n", marker, cyan(fmt.Sprintf("[%d]", i+1)), opt.Label)
	}
}

func promptFor(q prefs.Question) string {
	switch q.Kind {
	case prefs.KindConfirm:
		if q.Default == "yes" {
			return "[Y/n] > "
		}
		return "[y/N] > "
	case prefs.KindMulti:
		if len(q.Defaults) > 0 {
			return fmt.Sprintf("[%s] > ", strings.Join(q.Defaults, ","))
		}
		return "[none] > "
	default:
		if q.Default != "" {
			return fmt.Sprintf("[%s] > ", q.Default)
		}
		return "> "
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// Parse converts one line of user input into an Answer for q. Options may
// be chosen by 1-based number or by value. An empty line leaves the answer
// empty so the collector applies the question default.
func Parse(q prefs.Question, line string) (prefs.Answer, error) {
	line = strings.TrimSpace(line)

	switch q.Kind {
	case prefs.KindConfirm:
		switch strings.ToLower(line) {
		case "":
			return prefs.Answer{Yes: q.Default == "yes"}, nil
		case "y", "yes":
			return prefs.Answer{Yes: true}, nil
		case "n", "no":
			return prefs.Answer{Yes: false}, nil
		}
		return prefs.Answer{}, fmt.Errorf("answer yes or no, got %q", line)

	case prefs.KindMulti:
		if line == "" {
			return prefs.Answer{}, nil
		}
		if strings.EqualFold(line, "none") {
			return prefs.Answer{Values: prefs.MultiSelect{None: true}}, nil
		}
		var values []string
		seen := make(map[string]bool)
		for _, tok := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
			v, err := resolveOption(q, tok)
			if err != nil {
				return prefs.Answer{}, err
			}
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		return prefs.Answer{Values: prefs.MultiSelect{Values: values}}, nil

	default:
		if line == "" {
			return prefs.Answer{}, nil
		}
		v, err := resolveOption(q, line)
		if err != nil {
			return prefs.Answer{}, err
		}
		return prefs.Answer{Value: v}, nil
	}
}

func resolveOption(q prefs.Question, tok string) (string, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 1 || n > len(q.Options) {
			return "", fmt.Errorf("choice %d out of range 1-%d", n, len(q.Options))
		}
		return q.Options[n-1].Value, nil
	}
	for _, opt := range q.Options {
		if strings.EqualFold(opt.Value, tok) {
			return opt.Value, nil
		}
	}
	return "", fmt.Errorf("unknown choice %q", tok)
}

type readlineSource struct {
	rl *readline.Instance
}

func (s *readlineSource) ReadLine(prompt string) (string, error) {
	s.rl.SetPrompt(prompt)
	return s.rl.Readline()
}

func (s *readlineSource) Close() error {
	return s.rl.Close()
}

type scannerSource struct {
	out io.Writer
	sc  *bufio.Scanner
}

func (s *scannerSource) ReadLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

func (s *scannerSource) Close() error { return nil }
