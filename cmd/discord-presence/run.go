package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ffx64/discord-presence-go/client"
)

func runCmd() *cobra.Command {
	var (
		configPath  string
		appID       string
		pipe        int
		logLevel    string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and publish the configured presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			// Flags override the file.
			if appID != "" {
				cfg.ApplicationID = appID
			}
			if cmd.Flags().Changed("pipe") {
				cfg.Pipe = pipe
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if cfg.ApplicationID == "" {
				return fmt.Errorf("an application id is required (--app-id or application_id in the config)")
			}

			log := newLogger(cfg.LogLevel)

			cli, err := client.New(cfg.ApplicationID,
				client.WithPipe(cfg.Pipe),
				client.WithLogger(log),
				client.WithURIScheme(cfg.URIScheme),
				client.WithShutdownOnly(true),
			)
			if err != nil {
				return err
			}

			cli.OnReady(func(m *client.ReadyMessage) {
				log.Info().Str("user", m.User.Username).Msg("connected")
			})
			cli.OnConnectionFailed(func(m *client.ConnectionFailedMessage) {
				log.Warn().Int("pipe", m.Pipe).Msg("discord not reachable")
			})
			cli.OnError(func(m *client.ErrorMessage) {
				log.Error().Int("code", m.Code).Msg(m.Message)
			})
			cli.OnJoin(func(m *client.JoinMessage) {
				log.Info().Str("secret", m.Secret).Msg("activity join")
			})
			cli.OnSpectate(func(m *client.SpectateMessage) {
				log.Info().Str("secret", m.Secret).Msg("activity spectate")
			})
			cli.OnJoinRequest(func(m *client.JoinRequestMessage) {
				log.Info().Str("user", m.User.Username).Msg("join request")
			})

			if err := cli.Initialize(); err != nil {
				return err
			}
			defer cli.Dispose()

			if act := cfg.Activity.toActivity(); act != nil {
				if err := cli.SetPresence(act); err != nil {
					return fmt.Errorf("set presence: %w", err)
				}
			}

			if cfg.MetricsAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.Handler())
					log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						log.Error().Err(err).Msg("metrics server failed")
					}
				}()
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			log.Info().Msg("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&appID, "app-id", "", "Discord application id")
	cmd.Flags().IntVar(&pipe, "pipe", -1, "Pin a pipe index (0-9), -1 probes all")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (trace..error, none)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}
