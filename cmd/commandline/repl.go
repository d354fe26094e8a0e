package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethanbaker/tabletalk/pkg/sdk"
)

const helpText = `Commands:
  :load <file>        upload a CSV file and start asking about it
  :search [provider]  answer questions with web search instead
  :clear              reset the session
  :help               show this help
  :quit               exit`

// chatClient is the part of the SDK the REPL uses
type chatClient interface {
	CreateSession(ctx context.Context) (*sdk.Session, error)
	Upload(ctx context.Context, uuid, filename string, r io.Reader) (*sdk.IngestResponse, error)
	BindSearch(ctx context.Context, uuid string, req *sdk.BindSearchRequest) (*sdk.IngestResponse, error)
	SendMessage(ctx context.Context, uuid string, msg *sdk.PostMessageRequest) (*sdk.PostMessageResponse, error)
	ClearSession(ctx context.Context, uuid string) (*sdk.Session, error)
}

// repl keeps the client-held transcript and sends it with every question
type repl struct {
	client     chatClient
	out        io.Writer
	sessionID  string
	transcript []sdk.Entry
	prompt     string
}

func newREPL(client chatClient, out io.Writer) *repl {
	return &repl{client: client, out: out}
}

// start creates the server session
func (r *repl) start(ctx context.Context) error {
	sess, err := r.client.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.sessionID = sess.ID
	r.transcript = sess.Transcript
	r.prompt = sess.Placeholder

	fmt.Fprintf(r.out, "Session created: %s\n%s\n", sess.ID, helpText)
	return nil
}

// run reads lines until EOF, :quit or cancellation
func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for {
		if r.prompt != "" {
			fmt.Fprintf(r.out, "\n(%s)", r.prompt)
		}
		fmt.Fprint(r.out, "\n> ")

		if !scanner.Scan() {
			break
		}

		quit, err := r.handle(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// handle processes one input line and reports whether to quit
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if !strings.HasPrefix(line, ":") {
		return false, r.ask(ctx, line)
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case ":quit", ":exit", ":q":
		return true, nil

	case ":help":
		fmt.Fprintln(r.out, helpText)

	case ":load":
		if arg == "" {
			return false, fmt.Errorf("usage: :load <file>")
		}
		return false, r.load(ctx, arg)

	case ":search":
		result, err := r.client.BindSearch(ctx, r.sessionID, &sdk.BindSearchRequest{Provider: arg})
		if err != nil {
			return false, err
		}
		r.reset(result)

	case ":clear":
		sess, err := r.client.ClearSession(ctx, r.sessionID)
		if err != nil {
			return false, err
		}
		r.transcript = sess.Transcript
		r.prompt = sess.Placeholder
		fmt.Fprintln(r.out, "Session cleared.")

	default:
		return false, fmt.Errorf("unknown command %q, try :help", command)
	}

	return false, nil
}

func (r *repl) load(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := r.client.Upload(ctx, r.sessionID, path, file)
	if err != nil {
		return err
	}

	// A rejected file leaves the previous conversation in place
	if !result.InputEnabled {
		r.print(result.Transcript)
		return nil
	}

	r.reset(result)
	return nil
}

func (r *repl) reset(result *sdk.IngestResponse) {
	r.transcript = result.Transcript
	r.prompt = result.Placeholder
	r.print(result.Transcript)
}

func (r *repl) ask(ctx context.Context, question string) error {
	history := r.transcript
	if history == nil {
		history = []sdk.Entry{}
	}

	resp, err := r.client.SendMessage(ctx, r.sessionID, &sdk.PostMessageRequest{
		Content: question,
		History: history,
	})
	if err != nil {
		return err
	}

	// Only the entries after the user's question are new to the terminal
	added := resp.Transcript
	if len(added) >= len(history)+1 {
		added = added[len(history)+1:]
	}
	r.transcript = resp.Transcript
	r.print(added)
	return nil
}

func (r *repl) print(entries []sdk.Entry) {
	for _, e := range entries {
		if e.Role == "assistant" {
			fmt.Fprintf(r.out, "Assistant: %s\n", e.Content)
		}
	}
}
