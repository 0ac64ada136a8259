// Command playground serves the interpreter playground page and offers the
// same three operations from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/oteto/gonkey-playground/internal/config"
	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

// app carries what every subcommand shares: configuration, logging and stdio.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	handler    slog.Handler

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "playground",
		Short:         "Interpreter playground: tokenize, parse and execute source text",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	flags.String("engine", "", "runtime engine: extism, risor or starlark")
	flags.String("module", "", "interpreter module path or URL")
	flags.String("glue", "", "glue manifest path or URL")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	a.bind("runtime.engine", flags.Lookup("engine"))
	a.bind("runtime.module", flags.Lookup("module"))
	a.bind("runtime.glue", flags.Lookup("glue"))
	a.bind("log.level", flags.Lookup("log-level"))

	root.AddCommand(a.serveCmd())
	root.AddCommand(a.operationCmds()...)
	root.AddCommand(a.replCmd())
	return root
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	handler, err := helpers.NewHandler(a.stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.handler = handler
	return nil
}
