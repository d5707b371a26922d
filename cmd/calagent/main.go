// Command calagent is a calendar assistant: it sends the message to the chat model
// and executes the calendar tool calls the model requests.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/callbacks"
	"github.com/effective-security/calagent/dispatcher"
	"github.com/effective-security/calagent/pkg/factory"
	"github.com/effective-security/xlog"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/calagent/cmd", "calagent")

type options struct {
	config  string
	env     string
	message string
	output  string
	history string
	verbose bool
	trace   bool
	noColor bool
}

func parseFlags(args []string, errOut io.Writer) (*options, error) {
	o := new(options)

	fs := flag.NewFlagSet("calagent", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.config, "config", "", "path to the config file (YAML or JSON)")
	fs.StringVar(&o.env, "env", ".env", "path to the .env file, ignored if missing")
	fs.StringVar(&o.message, "m", "", "message to send, starts the interactive session if empty")
	fs.StringVar(&o.output, "o", FormatText, "output format: text, json or yaml")
	fs.StringVar(&o.history, "history", defaultHistoryFile(), "path to the history file of the interactive session")
	fs.BoolVar(&o.verbose, "v", false, "verbose output with debug logs")
	fs.BoolVar(&o.trace, "trace", false, "print the trace and the stats of every turn")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colored output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Newf("unexpected arguments: %v", fs.Args())
	}
	if !validFormat(o.output) {
		return nil, errors.Newf("unsupported output format: %s", o.output)
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, o, os.Stdout)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options, out io.Writer) error {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if o.verbose {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}
	if o.noColor {
		color.NoColor = true
	}

	if o.env != "" {
		if err := godotenv.Load(o.env); err != nil && !os.IsNotExist(err) {
			return errors.WithMessagef(err, "failed to load %s", o.env)
		}
	}

	mode := callbacks.ModeDefault
	if o.verbose {
		mode = callbacks.ModeVerbose
	}
	pad := callbacks.NewScratchpad(mode)
	cb := callbacks.NewFanout(pad, callbacks.NewPackageLogger(logger))
	if o.verbose && o.output == FormatText {
		cb.Add(callbacks.NewPrinter(os.Stderr, mode))
	}

	d, err := factory.Load(o.config, cb)
	if err != nil {
		return err
	}

	s := &session{
		dispatcher: d,
		scratchpad: pad,
		format:     o.output,
		trace:      o.trace,
	}

	if o.message != "" {
		return s.turn(ctx, out, o.message)
	}
	return s.interactive(ctx, o.history)
}

type session struct {
	dispatcher *dispatcher.Dispatcher
	scratchpad *callbacks.Scratchpad
	format     string
	trace      bool
}

func (s *session) turn(ctx context.Context, out io.Writer, message string) error {
	turnID := uuid.NewString()
	s.scratchpad.StartTurn(turnID)
	res, err := s.dispatcher.HandleUserMessage(ctx, message)
	stats, trace := s.scratchpad.EndTurn()

	if s.trace && trace != nil {
		_, _ = os.Stderr.Write(trace)
	}
	if stats != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "turn_ended",
			"turn_id", turnID,
			"duration", stats.Duration.String(),
			"tool_calls", stats.ToolCallsRequested,
			"tool_calls_failed", stats.ToolCallsFailed,
		)
	}
	if err != nil {
		return err
	}
	return printResult(out, res, s.format)
}

func (s *session) interactive(ctx context.Context, historyFile string) error {
	p, err := newPrompt(historyFile)
	if err != nil {
		return err
	}
	defer p.Close()

	out := p.Stdout()
	fmt.Fprintln(out, "Ask about your calendar, Ctrl+D to exit.")

	for ctx.Err() == nil {
		message, err := p.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, errInterrupted) {
				return nil
			}
			return err
		}

		if err := s.turn(ctx, out, message); err != nil {
			color.New(color.FgRed).Fprintf(out, "ERROR: %s\n", err.Error())
		}
		fmt.Fprintln(out)
	}
	return nil
}
