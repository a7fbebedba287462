package cmd

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"motoroute/config"
	"motoroute/web"
)

func serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `This command starts the web server for the application.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dev") {
				cfg.Server.IsDev, _ = cmd.Flags().GetBool("dev")
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetString("port")
			}
			if cmd.Flags().Changed("mq") {
				cfg.Queue.Mode, _ = cmd.Flags().GetString("mq")
			}
			if cmd.Flags().Changed("store") {
				cfg.Store.Mode, _ = cmd.Flags().GetString("store")
			}
			if cmd.Flags().Changed("router") {
				cfg.Routing.Provider, _ = cmd.Flags().GetString("router")
			}
			log.Printf("Starting with %s", cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := web.OpenStore(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer closeStore()

			queue, err := web.OpenQueue(ctx, cfg.Queue)
			if err != nil {
				return fmt.Errorf("failed to open message queue: %w", err)
			}
			defer func() {
				if err := queue.Close(); err != nil {
					log.Printf("Error closing message queue: %v", err)
				}
			}()

			router, err := web.NewRouter(cfg.Routing)
			if err != nil {
				return err
			}

			srv := web.NewServer(web.ServiceConfig{
				IsDev:          cfg.Server.IsDev,
				Port:           cfg.Server.Port,
				ShareBaseURL:   cfg.Server.ShareBaseURL,
				JWTSecret:      cfg.Auth.JWTSecret,
				TokenTTL:       cfg.Auth.TokenTTL,
				GoogleClientID: cfg.Auth.GoogleClientID,
			}, web.Deps{Store: store, Queue: queue, Router: router})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().Bool("dev", true, "Run in development mode")
	cmd.Flags().String("port", "8080", "Port to run the web server on")
	cmd.Flags().String("mq", "go_chan", "Message queue mode (go_chan, rabbitmq, gcp_pub_sub)")
	cmd.Flags().String("store", "mem", "Trip store (mem, pg, sqlite)")
	cmd.Flags().String("router", "offline", "Routing provider (offline, osrm, gmaps)")

	return cmd
}
