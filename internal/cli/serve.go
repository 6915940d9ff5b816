package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lamf-engine/internal/server"
)

// addServeCommand adds the HTTP server command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operational HTTP server",
		Long: `Starts the HTTP server exposing batch job triggers and per-loan
operations for schedulers and operators.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEngine(app); err != nil {
				return err
			}

			addr, _ := cmd.Flags().GetString("addr")
			serverCfg := app.Config.Server
			if addr != "" {
				serverCfg.Addr = addr
			}

			srv := server.New(app.Engine, serverCfg, app.Logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Run()
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case s := <-sig:
				app.Logger.Info().Str("signal", s.String()).Msg("Shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(cmd)
}
