package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/client"
	"github.com/GriffinCanCode/PortableShelf/internal/domain/app"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/config"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
)

// Version is set at build time.
var Version = "0.1.0-dev"

// CLI holds the state shared by every shelf command.
type CLI struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	remote     string
	jsonOut    bool
	debug      bool

	service app.Service
	logger  *logging.Logger
}

// Option customizes a CLI.
type Option func(*CLI)

// WithService makes commands use svc instead of building one from config.
func WithService(svc app.Service) Option {
	return func(c *CLI) { c.service = svc }
}

// WithIO redirects standard streams.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(c *CLI) {
		c.in = in
		c.out = out
		c.errOut = errOut
	}
}

// New creates a CLI bound to the process streams.
func New(opts ...Option) *CLI {
	c := &CLI{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// commandError marks failures reported by the app service, as opposed to
// usage mistakes caught by cobra.
type commandError struct {
	err error
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func failed(err error) error {
	if err == nil {
		return nil
	}
	return &commandError{err: err}
}

// Execute runs the command line and returns the process exit code.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	root := c.Command()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	if err == nil {
		return 0
	}

	st := newStyles(c.errOut)
	var ce *commandError
	if errors.As(err, &ce) {
		fmt.Fprintf(c.errOut, "%s %s\n", st.Error.Render("Error ["+app.ErrorKind(ce.err)+"]:"), ce.err)
	} else {
		fmt.Fprintf(c.errOut, "%s %s\n", st.Error.Render("Error:"), err)
		fmt.Fprintln(c.errOut, st.Muted.Render("Run 'shelf --help' for usage."))
	}
	return 1
}

// Command builds the cobra command tree.
func (c *CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelf",
		Short: "Manage and launch portable applications",
		Long: `Shelf keeps a registry of portable executables in its managed apps
directory, remembers favorites and launch history, and starts apps on demand.

By default every invocation scans the apps directory and works on the shared
record file directly. With --remote (or SHELF_REMOTE) commands go through a
running shelfd instead, which serializes access from several front-ends.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML or TOML config file")
	pf.StringVar(&c.remote, "remote", "", "shelfd address, e.g. http://127.0.0.1:7420")
	pf.BoolVar(&c.jsonOut, "json", false, "Print machine-readable JSON")
	pf.BoolVar(&c.debug, "debug", false, "Enable debug logging on stderr")

	root.AddCommand(
		c.listCmd(),
		c.launchCmd(),
		c.searchCmd(),
		c.favoritesCmd(),
		c.recentCmd(),
		c.addCmd(),
		c.removeCmd(),
		c.infoCmd(),
		c.renameCmd(),
		c.favoriteCmd(),
		c.scanCmd(),
		c.statsCmd(),
	)
	return root
}

// setup loads configuration and builds the service unless one was injected.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	level := ""
	if c.debug {
		level = "debug"
	}
	logger, err := logging.New(logging.CLIConfig(level))
	if err != nil {
		return err
	}
	c.logger = logger

	if c.service != nil {
		return nil
	}

	cfg, err := config.LoadWithFile(c.configPath)
	if err != nil {
		return err
	}
	if c.remote != "" {
		cfg.Remote.Addr = c.remote
	}

	if cfg.Remote.Addr != "" {
		opts := client.OneShotOptions()
		opts.Timeout = time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
		opts.Retries = cfg.Remote.Retries
		remote, err := client.NewRemote(cfg.Remote.Addr, opts, logger)
		if err != nil {
			return err
		}
		logger.Debug("Using shelfd", zap.String("addr", cfg.Remote.Addr))
		c.service = remote
		return nil
	}

	local, err := app.NewLocal(cfg, nil, logger, nil)
	if err != nil {
		return err
	}
	if err := local.Open(cmd.Context()); err != nil {
		return failed(err)
	}
	c.service = local
	return nil
}
