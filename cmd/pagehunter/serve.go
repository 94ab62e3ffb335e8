package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pagehunter/internal/web"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a keyword search page over HTTP",
		Long: `Serve starts a small web front end over the stored pages.

Routes:
  GET /              search form
  GET /q?search=...  result page
  GET /api/search    JSON results (parameters: q, limit)
  GET /healthz       liveness check

Examples:
  pagehunter serve
  pagehunter serve --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", "",
		"Listen address (default \":4000\")")
	cmd.Flags().IntP("limit", "l", web.DefaultResultLimit,
		"Maximum number of results per page")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.ServeAddr, err = stringFlag(cmd, "addr", cfg.ServeAddr); err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := web.NewServer(db,
		web.WithLogger(logger),
		web.WithResultLimit(limit),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving search on %s (press Ctrl+C to stop)\n", cfg.ServeAddr)
	return srv.ListenAndServe(ctx, cfg.ServeAddr)
}
