package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/taskmcp/internal/config"
	"github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/notify"
	"github.com/mrz1836/taskmcp/internal/service"
	"github.com/mrz1836/taskmcp/internal/tui"
	"github.com/mrz1836/taskmcp/internal/workspace"
)

// cliContext carries what PersistentPreRunE resolved to the subcommands.
type cliContext struct {
	flags  *GlobalFlags
	cfg    *config.Config
	home   string
	logger zerolog.Logger
}

// load reads configuration with --home applied and resolves the home dir.
func (cc *cliContext) load(ctx context.Context) error {
	cfg, err := config.LoadWithOverrides(ctx, &config.Config{
		Storage: config.StorageConfig{Home: cc.flags.Home},
	})
	if err != nil {
		return err
	}
	home, err := config.ResolveHome(cfg)
	if err != nil {
		return err
	}
	cfg.Storage.Home = home

	cc.cfg = cfg
	cc.home = home
	return nil
}

// openRegistry opens the workspace registry under the resolved home.
func (cc *cliContext) openRegistry() (*workspace.Registry, error) {
	return workspace.NewRegistry(cc.home, workspace.Options{
		LockTimeout: cc.cfg.Storage.LockTimeout,
		BusyTimeout: cc.cfg.Storage.BusyTimeout,
		Logger:      cc.logger,
	})
}

// openService opens a service whose change events are forwarded to a
// running server, so its observers see edits made from the command line.
// The returned close func releases every dataset.
func (cc *cliContext) openService() (*service.Service, func(), error) {
	reg, err := cc.openRegistry()
	if err != nil {
		return nil, nil, err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cc.cfg.Notify.Enabled {
		notifier = notify.NewRemote(cc.cfg.Notify.URL, cc.cfg.Notify.Timeout, cc.logger)
	}

	svc := service.New(reg, notifier, service.Options{
		SearchParallelism: cc.cfg.Search.MaxParallel,
		Logger:            cc.logger,
	})
	return svc, func() { _ = reg.Close() }, nil
}

// output returns the writer for the selected --output format.
func (cc *cliContext) output(w io.Writer) tui.Output {
	return tui.NewOutput(w, cc.flags.Output)
}

func (cc *cliContext) jsonOutput() bool {
	return cc.flags.Output == OutputJSON
}

// run wraps a RunE body: in JSON mode failures are written as a JSON error
// document and cobra's own error print is silenced.
func (cc *cliContext) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		if cc.jsonOutput() && !stderrors.Is(err, errors.ErrJSONErrorOutput) {
			cc.output(cmd.OutOrStdout()).Error(err)
			cmd.SilenceErrors = true
			return fmt.Errorf("%w: %w", errors.ErrJSONErrorOutput, err)
		}
		return err
	}
}

// parseID parses a task id argument.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("'%s' is not a task id: %w", raw, errors.ErrInvalidArgument)
	}
	return id, nil
}

// parseParent parses a parent argument; "" and "root" mean no parent.
func parseParent(raw string) (*int64, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "root":
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
