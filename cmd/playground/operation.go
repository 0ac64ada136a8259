package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oteto/gonkey-playground/evaluator"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/spf13/cobra"
)

const defaultWait = 30 * time.Second

var operationDescriptions = map[platform.Operation]string{
	platform.Tokenize: "Print the token stream of a program",
	platform.Parse:    "Print the syntax tree of a program",
	platform.Eval:     "Execute a program and print its output",
}

func (a *app) operationCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(platform.Operations()))
	for _, op := range platform.Operations() {
		cmds = append(cmds, a.operationCmd(op))
	}
	return cmds
}

func (a *app) operationCmd(op platform.Operation) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   op.String() + " [file]",
		Short: operationDescriptions[op],
		Long:  operationDescriptions[op] + ". The program is read from file, or from stdin when file is omitted or -.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd.Context(), op, args, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for the runtime to load")
	return cmd
}

func (a *app) runOperation(ctx context.Context, op platform.Operation, args []string, wait time.Duration) error {
	source, err := readSource(a.stdin, args)
	if err != nil {
		return err
	}

	launcher, err := newLauncher(a.cfg.Runtime, a.handler)
	if err != nil {
		return err
	}
	slot, err := waitForRuntime(ctx, launcher, wait)
	if err != nil {
		return err
	}
	defer func() { _ = closeRuntime(context.WithoutCancel(ctx), slot) }()

	component := evaluator.New(a.handler, slot)
	component.OnSourceEdited(source)
	out := component.Trigger(ctx, op)
	if !out.Succeeded() {
		return fmt.Errorf("%s failed: %w", op, out.Err)
	}
	return printResult(a.stdout, out.Text)
}

// printResult writes text followed by a newline unless it already ends with one.
func printResult(w io.Writer, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
