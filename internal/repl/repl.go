// Package repl is the line-oriented front-end: one query per line, answer
// or error printed, loop continues until quit.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// Answerer answers one query.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// REPL reads queries from in and writes answers to out.
type REPL struct {
	answerer Answerer
	in       io.Reader
	out      io.Writer
}

// New creates a REPL over the given streams.
func New(answerer Answerer, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		answerer: answerer,
		in:       in,
		out:      out,
	}
}

// Run executes the read/answer loop until EOF, a quit command, or context
// cancellation. A failed query prints the error and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "%s╭──────────────────────────────────────╮%s\n", colorBlue, colorReset)
	fmt.Fprintf(r.out, "%s│          newshound agent             │%s\n", colorBlue, colorReset)
	fmt.Fprintf(r.out, "%s╰──────────────────────────────────────╯%s\n", colorBlue, colorReset)
	fmt.Fprintf(r.out, "%sType 'exit' or 'quit' to exit%s\n\n", colorGray, colorReset)

	scanner := bufio.NewScanner(r.in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprintf(r.out, "%syou%s > ", colorYellow, colorReset)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if isQuit(query) {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}

		answer, err := r.answerer.Answer(ctx, query)
		if err != nil {
			fmt.Fprintf(r.out, "%s✗ Error: %v%s\n\n", colorYellow, err, colorReset)
			continue
		}

		fmt.Fprintf(r.out, "%snewshound%s > %s\n\n", colorGreen, colorReset, answer)
	}
}

// isQuit reports whether line is a termination command, case-insensitive.
func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true
	}
	return false
}
