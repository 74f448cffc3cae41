package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app-host/core/config"
	"app-host/core/database"
	"app-host/core/loader"
	"app-host/core/logger"
	"app-host/core/middleware/rayid"
	"app-host/core/pool"
	"app-host/core/scaling"
	"app-host/core/static"
	"app-host/core/storage"
	"app-host/core/supervisor"
	"app-host/core/watcher"

	"app-host/feature/admin"
	"app-host/feature/assets"
	"app-host/feature/gateway"
	"app-host/feature/releases"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the application described by app.yaml",
	Long: `Loads and validates the descriptor, starts the entrypoint instances, and serves
requests through the handler list until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration and Logger
		cfg, logg, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// 2. Load Descriptor
		holder, err := watcher.New(cfg.App, logg)
		if err != nil {
			return err
		}
		snap := holder.Current()
		logg.Info("Loaded descriptor",
			zap.String("path", cfg.App.Descriptor),
			zap.String("runtime", snap.Descriptor.Runtime),
			zap.String("digest", snap.Digest),
			zap.Int("handlers", len(snap.Descriptor.Handlers)),
			zap.Int("warnings", len(snap.Report.Warnings())),
		)
		for _, w := range snap.Report.Warnings() {
			logg.Warn("Descriptor warning", zap.String("field", w.Field), zap.String("message", w.Message))
		}

		// 3. Release History (Optional)
		store := openReleases(ctx, cfg, logg)
		if store != nil {
			recordRelease(ctx, store, snap, releases.SourceStartup, logg)
		}

		// 4. Storage (Optional)
		var client storage.Client
		if cfg.Storage.Enabled() {
			if client, err = storage.NewClient(cfg.Storage); err != nil {
				logg.Warn("Optional storage client failed", zap.Error(err))
				client = nil
			}
		}

		var src static.Source = static.NewLocal(cfg.App.Root)
		if cfg.Static.Source == static.SourceBucket {
			if client == nil {
				logg.Warn("Static source is bucket but storage is unavailable, serving from disk")
			} else {
				src = static.NewBucket(client, cfg.Storage)
			}
		}

		// 5. Instances and Autoscaler
		var (
			instances  *pool.Pool
			autoscaler *scaling.Autoscaler
			backend    gateway.Backend
		)
		if snap.Descriptor.HasScriptHandler() {
			instances, autoscaler = startInstances(ctx, cfg, snap, logg)
			backend = gateway.FromPool(instances)
		}

		holder.OnChange(func(ctx context.Context, s *watcher.Snapshot) {
			if autoscaler != nil {
				policy := scaling.PolicyFrom(s.Descriptor, cfg.Scaling)
				autoscaler.SetPolicy(policy)
				instances.SetMaxConcurrent(policy.MaxConcurrent)
			} else if s.Descriptor.HasScriptHandler() {
				logg.Warn("Descriptor now routes to the application, restart required to start instances")
			}
			if store != nil {
				recordRelease(ctx, store, s, releases.SourceReload, logg)
			}
		})
		if err := holder.Start(ctx); err != nil {
			logg.Warn("Descriptor watch disabled", zap.Error(err))
		}

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
			ReadTimeout:           cfg.Server.ReadTimeout(),
		})

		// RayID first so every log line and proxied request carries it
		app.Use(rayid.New())
		app.Use(requestLogger(logg))

		// 7. Features
		var adminSvc *admin.Service
		if instances != nil {
			adminSvc = admin.NewService(holder, instances, autoscaler, logg)
		} else {
			adminSvc = admin.NewService(holder, nil, nil, logg)
		}

		sub := loader.NewManager()
		sub.Register(releases.NewFeature(store, logg))
		sub.Register(assets.NewFeature(client, cfg.Storage, holder, logg))

		mgr := loader.NewManager()
		mgr.Register(admin.NewFeature(adminSvc, cfg.Server.AdminPrefix, cfg.Server.ApiKey, sub))
		mgr.Register(gateway.NewFeature(gateway.New(holder, src, backend, cfg.Server.ProxyTimeout(), logg)))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		// 8. Start Server
		port := cfg.Server.ListenPort(os.Getenv("PORT"))
		listenErr := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("port", port))
			listenErr <- app.Listen(":" + port)
		}()

		// 9. Graceful Shutdown
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		var serveErr error
		select {
		case <-sig:
			logg.Info("Shutting down server...")
		case serveErr = <-listenErr:
			logg.Error("Server failed", zap.Error(serveErr))
		}

		cancel()
		_ = app.ShutdownWithTimeout(cfg.Server.ProxyTimeout())
		if instances != nil {
			if cerr := instances.Close(); cerr != nil {
				logg.Warn("Failed to stop instances cleanly", zap.Error(cerr))
			}
		}
		holder.Wait()
		return serveErr
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// startInstances builds the pool, brings it to the minimum size and runs the autoscaler.
func startInstances(ctx context.Context, cfg *config.Config, snap *watcher.Snapshot, logg *zap.Logger) (*pool.Pool, *scaling.Autoscaler) {
	d := snap.Descriptor
	policy := scaling.PolicyFrom(d, cfg.Scaling)

	spec := supervisor.Spec{
		Command: d.Entrypoint,
		Env:     d.EnvVariables,
		Dir:     cfg.App.Root,
		Shell:   cfg.Instances.Shell,
	}
	opts := supervisor.Options{
		StartTimeout: cfg.Instances.StartTimeout(),
		StopGrace:    cfg.Instances.StopGrace(),
	}

	instances := pool.New(cfg.Instances, policy.MaxConcurrent, instanceFactory(spec, opts, logg), logg)

	if err := instances.Resize(ctx, policy.MinInstances); err != nil {
		logg.Error("Failed to start minimum instances", zap.Int("min_instances", policy.MinInstances), zap.Error(err))
	}

	autoscaler := scaling.NewAutoscaler(instances, policy, cfg.Scaling, logg)
	go autoscaler.Run(ctx)

	logg.Info("Instances started",
		zap.Int("min_instances", policy.MinInstances),
		zap.Int("max_instances", policy.MaxInstances),
		zap.Int("max_concurrent_requests", policy.MaxConcurrent),
	)
	return instances, autoscaler
}

// instanceFactory creates supervised instances; each tags its own logger with its port.
func instanceFactory(spec supervisor.Spec, opts supervisor.Options, logg *zap.Logger) pool.Factory {
	return func(port int) pool.Instance {
		return supervisor.New(port, spec, opts, logg)
	}
}

// openReleases connects the optional release database.
func openReleases(ctx context.Context, cfg *config.Config, logg *zap.Logger) *releases.Store {
	if !cfg.Database.Enabled() {
		return nil
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
		return nil
	}
	store := releases.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		logg.Warn("Release history disabled", zap.Error(err))
		return nil
	}
	logg.Info("Connected to release database", zap.String("driver", cfg.Database.Driver))
	return store
}

func recordRelease(ctx context.Context, store *releases.Store, snap *watcher.Snapshot, source string, logg *zap.Logger) {
	rel, created, err := store.Record(ctx, snap.Descriptor, snap.Raw, source)
	if err != nil {
		logg.Warn("Failed to record release", zap.Error(err))
		return
	}
	if created {
		logg.Info("Recorded release", zap.String("id", rel.ID), zap.String("digest", rel.Digest), zap.String("source", source))
	}
}

// requestLogger logs each request with its ray id.
func requestLogger(logg *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		l := logger.WithRayID(logg, c)
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			l.Error("Request error", append(fields, zap.Error(err))...)
			return err
		}
		l.Debug("Request completed", fields...)
		return nil
	}
}
