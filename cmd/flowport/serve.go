package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowport/flowport/internal/httpapi"
	flowmcp "github.com/flowport/flowport/pkg/mcp"
)

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the migration HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			pipeline, err := newPipeline(logger)
			if err != nil {
				return err
			}

			opts := []httpapi.Option{httpapi.WithLogger(logger)}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			if s != nil {
				defer s.Close()
				opts = append(opts, httpapi.WithStore(s))
			}

			srv := &http.Server{
				Addr:              listen,
				Handler:           httpapi.NewServer(pipeline, opts...).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http api listening", "addr", listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":4200", "TCP listen address")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the migration tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			pipeline, err := newPipeline(logger)
			if err != nil {
				return err
			}

			deps := flowmcp.FlowportServerDeps{Pipeline: pipeline, Logger: logger}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			if s != nil {
				defer s.Close()
				deps.Store = s
			}

			server := flowmcp.NewFlowportServer(deps)
			fmt.Fprintln(cmd.ErrOrStderr(), "flowport mcp server listening on stdio")
			return server.Serve(cmd.Context())
		},
	}
}
