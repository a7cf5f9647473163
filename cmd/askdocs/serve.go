package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xhad/askdocs/pkg/config"
	"github.com/xhad/askdocs/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer questions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath, (*config.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(server.Config{
				Addr:           a.cfg.Server.Addr,
				RequestTimeout: a.cfg.Server.RequestTimeout,
				Streaming:      a.cfg.Server.Streaming,
			}, a.answerer(), a.log)

			return srv.Run(ctx)
		},
	}
}
