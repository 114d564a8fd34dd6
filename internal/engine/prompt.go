package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/portmatch/internal/ir"
)

// Answer is an operator's judgment of one transition.
type Answer struct {
	Verdict ir.Verdict
	Note    string
}

// Prompter asks the operator whether the observed interface matches the
// modeled expectation. Prompt blocks until the operator answers or ctx ends.
type Prompter interface {
	Prompt(ctx context.Context, t ir.Transition) (Answer, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, t ir.Transition) (Answer, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, t ir.Transition) (Answer, error) {
	return f(ctx, t)
}

// AskVerdict shows the pending transition to p and submits the answer.
//
// The lifecycle and write-once checks run before the operator is asked, so
// nobody is prompted for a transition that cannot take a verdict.
func (o *Oracle) AskVerdict(ctx context.Context, p Prompter) (Answer, error) {
	var seq int64
	if n := len(o.session.Transitions); n > 0 && o.state == StateActive {
		seq = o.session.Transitions[n-1].Seq
	}
	if _, ok := transitionFor(o.state, OpVerdict); !ok {
		return Answer{}, o.advance(OpVerdict, seq)
	}
	last, err := o.pending()
	if err != nil {
		return Answer{}, err
	}

	answer, err := p.Prompt(ctx, last.Clone())
	if err != nil {
		return Answer{}, fmt.Errorf("prompt for transition %d: %w", last.Seq, err)
	}
	if err := o.SubmitVerdict(answer.Verdict, answer.Note); err != nil {
		return Answer{}, err
	}
	return answer, nil
}

// LinePrompter asks on a line-oriented terminal: it prints the transition,
// reads a verdict line ("y"/"matches" or "n"/"mismatch") and, for a
// mismatch, a note line.
//
// Lines are read by a background goroutine so a prompt can be abandoned
// when its context ends. That goroutine exits when in reaches EOF or fails.
type LinePrompter struct {
	in    *bufio.Scanner
	out   io.Writer
	once  sync.Once
	lines chan scannedLine
}

type scannedLine struct {
	text string
	err  error
}

// NewLinePrompter creates a prompter reading from in and writing to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewScanner(in), out: out, lines: make(chan scannedLine)}
}

// Prompt implements Prompter. It re-asks until it gets a usable answer.
func (p *LinePrompter) Prompt(ctx context.Context, t ir.Transition) (Answer, error) {
	fmt.Fprintf(p.out, "\n[%d] %s  mode=%s\n", t.Seq, t.Trigger, t.AppState.Mode)
	for _, pair := range t.Match.Satisfied {
		fmt.Fprintf(p.out, "  satisfied    %s\n", pair)
	}
	for _, i := range t.Match.UnsatisfiedIntents {
		fmt.Fprintf(p.out, "  unsatisfied  %s\n", i)
	}
	for _, c := range t.Match.UnusedCapabilities {
		fmt.Fprintf(p.out, "  unused       %s\n", c)
	}

	for {
		if err := ctx.Err(); err != nil {
			return Answer{}, err
		}
		fmt.Fprint(p.out, "Does the interface match? [y/n] ")
		line, err := p.readLine(ctx)
		if err != nil {
			return Answer{}, err
		}

		verdict, ok := parseAnswer(line)
		if !ok {
			fmt.Fprintf(p.out, "unrecognized answer %q\n", line)
			continue
		}
		answer := Answer{Verdict: verdict}
		if verdict == ir.VerdictMismatch {
			fmt.Fprint(p.out, "What is wrong? ")
			if answer.Note, err = p.readLine(ctx); err != nil {
				return Answer{}, err
			}
		}
		return answer, nil
	}
}

func (p *LinePrompter) scan() {
	defer close(p.lines)
	for p.in.Scan() {
		p.lines <- scannedLine{text: p.in.Text()}
	}
	if err := p.in.Err(); err != nil {
		p.lines <- scannedLine{err: err}
	}
}

// readLine waits for the next input line or the end of ctx. A line that
// arrives together with the cancellation is left unanswered.
func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() { go p.scan() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

func parseAnswer(s string) (ir.Verdict, bool) {
	switch strings.ToLower(s) {
	case "y", "yes", "m", "match", "matches":
		return ir.VerdictMatches, true
	case "n", "no", "x", "mismatch":
		return ir.VerdictMismatch, true
	}
	return "", false
}
