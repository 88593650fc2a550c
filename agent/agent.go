// Package agent implements an AI assistant that explains hypothetical
// portfolio valuations and explores variations of them.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent is the AI assistant that handles the chat session.
type Agent struct {
	w           io.Writer
	r           *bufio.Reader
	Facilitator *Expert
	Experts     []*Expert
	// Print writes an answer. It defaults to printing the raw markdown.
	Print func(w io.Writer, markdown string)
}

// New creates a new Agent.
//
// It takes an io.Writer for the agent's output (e.g., os.Stdout), an
// io.Reader for user input (e.g., os.Stdin) and the experts the facilitator
// can consult.
func New(w io.Writer, r io.Reader, experts ...*Expert) *Agent {
	return &Agent{
		w:           w,
		r:           bufio.NewReader(r),
		Experts:     experts,
		Facilitator: newFacilitator(experts...),
		Print:       func(w io.Writer, md string) { fmt.Fprintln(w, md) },
	}
}

// Start creates the chats of all experts.
func (a *Agent) Start(ctx context.Context, starter Starter) error {
	for _, e := range a.Experts {
		if err := e.Start(ctx, starter); err != nil {
			return err
		}
	}
	return a.Facilitator.Start(ctx, starter)
}

const prompt = "whatif> "

// Run starts the interactive REPL session for the agent. prompts are asked
// first, as if typed by the user.
func (a *Agent) Run(ctx context.Context, starter Starter, prompts ...string) error {
	if a.Facilitator.chat == nil {
		if err := a.Start(ctx, starter); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.w, "Welcome to whatif assist. Type 'bye' to exit.")

	for {
		fmt.Fprint(a.w, prompt)
		var input string

		// Flush prompts from the list and then ask for the user.
		if len(prompts) > 0 {
			input, prompts = prompts[0], prompts[1:]
			input = strings.TrimSpace(input)
			if input == "" {
				continue
			}
			fmt.Fprintln(a.w, input)
		} else {
			var err error
			input, err = a.r.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil // Clean exit on Ctrl+D
				}
				return err
			}
		}

		if strings.TrimSpace(input) == "bye" {
			return nil
		}

		content, err := a.Facilitator.Ask(ctx, &genai.Part{Text: input})
		if err != nil {
			return err
		}
		a.Print(a.w, content.Parts[0].Text)
	}
}
