package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"aegis/internal/server"
)

func newServeCmd() *cobra.Command {
	var keyFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP sealing service",
		Long: `Serve exposes POST /seal, POST /verify, GET /health, GET /metrics and a
redirect on /. Without a configured key the service still starts and answers
seal requests with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}

			key, err := loadKey(env.cfg.Key, keyFile)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(env.cfg, key, env.log, registry).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "file holding the P-256 private key as hex or PEM")

	return cmd
}
