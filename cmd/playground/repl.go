package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/oteto/gonkey-playground/evaluator"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/spf13/cobra"
)

// Prompt is printed before each line when the REPL is interactive.
const Prompt = ">> "

func (a *app) replCmd() *cobra.Command {
	var (
		mode string
		wait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Run one operation on every line read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := platform.ParseOperation(mode)
			if err != nil {
				return err
			}
			launcher, err := newLauncher(a.cfg.Runtime, a.handler)
			if err != nil {
				return err
			}
			slot, err := waitForRuntime(cmd.Context(), launcher, wait)
			if err != nil {
				return err
			}
			defer func() { _ = closeRuntime(context.WithoutCancel(cmd.Context()), slot) }()

			r := &repl{
				component:   evaluator.New(a.handler, slot),
				op:          op,
				in:          a.stdin,
				out:         a.stdout,
				interactive: isTerminal(a.stdin) && isTerminal(a.stdout),
			}
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(platform.Eval), "operation to run: tokenize, parse or eval")
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for the runtime to load")
	return cmd
}

type repl struct {
	component   *evaluator.Component
	op          platform.Operation
	in          io.Reader
	out         io.Writer
	interactive bool
}

func (r *repl) run(ctx context.Context) error {
	failure := color.New(color.FgRed)
	if r.interactive {
		r.greet()
	} else {
		failure.DisableColor()
	}

	in := bufio.NewReader(r.in)
	for {
		if r.interactive {
			fmt.Fprint(r.out, Prompt)
		}
		line, err := in.ReadString('\n')
		if errors.Is(err, io.EOF) && line == "" {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		r.component.OnSourceEdited(strings.TrimRight(line, "\r\n"))
		out := r.component.Trigger(ctx, r.op)
		if !out.Succeeded() {
			failure.Fprintln(r.out, out.Diagnostic())
			continue
		}
		if err := printResult(r.out, out.Text); err != nil {
			return err
		}
	}
}

func (r *repl) greet() {
	name := "there"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	fmt.Fprintf(r.out, "Hello %s! This is the Gonkey programming language!\n", name)
	fmt.Fprintf(r.out, "Feel free to type in commands (%s mode)\n", color.CyanString(r.op.String()))
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
