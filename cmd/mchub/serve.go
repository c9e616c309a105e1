package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gstoney/mchub"
	"github.com/gstoney/mchub/handlers"
	"github.com/gstoney/mchub/internal/admin"
	"github.com/gstoney/mchub/internal/config"
	"github.com/gstoney/mchub/internal/logging"
	"github.com/gstoney/mchub/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
		listen     string
		backend    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hub",
		Long: `Run the hub until interrupted.

Settings come from built-in defaults, then the .env file, then the TOML
config file, then MCHUB_* environment variables, then flags.

Examples:
  mchub serve
  mchub serve --config hub.toml
  mchub serve --listen :25566 --backend netpoll`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, envFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if backend != "" {
				cfg.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to a .env file; ignored when missing")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().StringVar(&backend, "backend", "", "Connection backend: goroutine or netpoll (overrides config)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	backend, err := mchub.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg := mchub.NewRegistry()
	srv := &mchub.Server{
		Addr:     cfg.Listen,
		Backend:  backend,
		Registry: reg,
		Transport: mchub.TransportConfig{
			MaxPacketLen: cfg.MaxPacketLen,
		},
		MaxConnections: cfg.MaxConnections,
		Logger:         log,
		Metrics:        mchub.NewMetrics(promReg),
	}

	src, err := statusSource(ctx, cfg.Status, srv, log)
	if err != nil {
		return err
	}
	handlers.Register(reg, &handlers.Handlers{
		Status:            src,
		CloseAfterPing:    cfg.CloseAfterPing,
		DisconnectMessage: cfg.Login.DisconnectMessage,
	})

	var adminServe func(context.Context) error
	if cfg.Admin.Listen != "" {
		h := admin.NewRouter(admin.Options{
			Gatherer: promReg,
			Stats:    srv,
			Status:   src,
			Registry: reg,
			Started:  time.Now(),
		})
		adminServe = func(ctx context.Context) error {
			return admin.ListenAndServe(ctx, cfg.Admin.Listen, h, log)
		}
	}

	err = serveAll(ctx, srv.ListenAndServe, adminServe)
	log.Info("hub stopped")
	return err
}

// serveAll runs the hub and, when adminServe is set, the admin endpoint.
// Whichever returns first stops the other, and serveAll returns only after
// both have. An admin failure takes precedence over the hub's result.
func serveAll(ctx context.Context, hub, adminServe func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hubErr := make(chan error, 1)
	go func() { hubErr <- hub(ctx) }()
	if adminServe == nil {
		return <-hubErr
	}

	adminErr := make(chan error, 1)
	go func() { adminErr <- adminServe(ctx) }()

	select {
	case err := <-hubErr:
		cancel()
		if aerr := <-adminErr; err == nil {
			err = aerr
		}
		return err
	case aerr := <-adminErr:
		cancel()
		err := <-hubErr
		if aerr != nil {
			return aerr
		}
		return err
	}
}

// statusSource builds the status document chain: a static document with the
// live login count, optionally annotated with the EC2 backend state, cached
// for CacheTTL.
func statusSource(ctx context.Context, cfg config.StatusConfig, srv *mchub.Server, log logrus.FieldLogger) (status.Source, error) {
	doc, err := cfg.Document()
	if err != nil {
		return nil, err
	}

	var src status.Source = &status.Static{
		Base: doc,
		Online: func() int {
			return srv.CountPhase(mchub.Login)
		},
	}

	if cfg.EC2.InstanceID != "" {
		client, err := status.NewEC2Client(ctx, cfg.EC2.Region)
		if err != nil {
			return nil, err
		}
		src = &status.EC2{
			Source:     src,
			Client:     client,
			InstanceID: cfg.EC2.InstanceID,
			Log:        log.WithField("instance_id", cfg.EC2.InstanceID),
		}
	}

	if cfg.CacheTTL > 0 {
		src = status.NewCached(src, cfg.CacheTTL)
	}
	return src, nil
}
