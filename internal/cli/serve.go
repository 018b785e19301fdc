package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskmcp/internal/api"
	"github.com/mrz1836/taskmcp/internal/notify"
	"github.com/mrz1836/taskmcp/internal/service"
	"github.com/mrz1836/taskmcp/internal/signal"
)

// AddServeCommand adds the serve command to the root command.
func AddServeCommand(parent *cobra.Command, cc *cliContext) {
	parent.AddCommand(newServeCmd(cc))
}

func newServeCmd(cc *cliContext) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with live change notifications",
		Long: `Run the HTTP API. Viewers connect to /ws (WebSocket) or /events
(server-sent events) and receive one message per change kind after every
successful edit, including edits made by other taskmcp processes that
report to /api/notify.

Stop with Ctrl+C; open streams are closed and in-flight requests finish.`,
		Args: cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			cfg := cc.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			reg, err := cc.openRegistry()
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			hub := notify.NewHub(cc.logger)
			svc := service.New(reg, hub, service.Options{
				SearchParallelism: cc.cfg.Search.MaxParallel,
				Logger:            cc.logger,
			})
			srv := api.New(svc, hub, api.Options{
				Keepalive:         cc.cfg.Notify.Keepalive,
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				ShutdownTimeout:   cfg.ShutdownTimeout,
				Logger:            cc.logger,
			})

			h := signal.NewHandler(cmd.Context())
			defer h.Stop()

			addr := cfg.ListenAddr()
			if !cc.flags.Quiet && !cc.jsonOutput() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "taskmcp serving on http://%s (home %s)\n", addr, cc.home)
			}
			if err := srv.Run(h.Context(), addr); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			if sig := h.Signal(); sig != nil {
				cc.logger.Info().Str("signal", sig.String()).Msg("shutdown requested")
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
