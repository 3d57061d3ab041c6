package kernel

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/shashiranjanraj/faultline/config"
	"github.com/shashiranjanraj/faultline/pkg/auth"
	"github.com/shashiranjanraj/faultline/pkg/cache"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/middleware"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
	"github.com/shashiranjanraj/faultline/pkg/session"
	"github.com/shashiranjanraj/faultline/pkg/storage"
)

// policy turns configured faults into a Policy. A fixed seed is offset per
// component so two components never share a sequence.
func policy(f config.Faults, seed, offset uint64) *fault.Policy {
	var opts []fault.Option
	if seed != 0 {
		opts = append(opts, fault.WithSeed(seed+offset))
	}
	return fault.New(f.Rate, f.MinDelay, f.MaxDelay, opts...)
}

// OptionsFromConfig reads every kernel option from config. It dials Redis
// only when SESSION_DRIVER=redis and registers the client as a closer.
func OptionsFromConfig(ctx context.Context) (Options, error) {
	seed := config.FaultSeed()
	cors := middleware.CORSOptionsFromConfig()
	opts := Options{
		CORS:            &cors,
		StoreFaults:     policy(config.StoreFaults(), seed, 1),
		PaymentFaults:   policy(config.PaymentFaults(), seed, 2),
		InventoryFaults: policy(config.InventoryFaults(), seed, 3),
		DeliveryFaults:  policy(config.DeliveryFaults(), seed, 4),
		Issuer:          auth.IssuerFromConfig(),
		LoginAttempts:   ratelimit.PerWindow(config.GetInt("LOGIN_MAX_ATTEMPTS", 5), config.GetDuration("LOGIN_WINDOW", 15*time.Minute)),
		RequestLimit:    ratelimit.New(rate.Limit(config.GetFloat("RATE_LIMIT_RPS", 50)), config.GetInt("RATE_LIMIT_BURST", 100)),
		ExportWorkers:   config.GetInt("EXPORT_WORKERS", defaultExportWorkers),
		UploadMaxBytes:  config.GetInt64("UPLOAD_MAX_BYTES", defaultUploadMaxBytes),
		SecureCookies:   config.IsProduction(),
	}

	mcfg := monitor.ConfigFromEnv()
	if mcfg.Enabled() {
		mon, err := monitor.New(mcfg)
		if err != nil {
			return Options{}, fmt.Errorf("monitor: %w", err)
		}
		monitor.SetDefault(mon)
		opts.Monitor = mon
		logger.Info("error monitor enabled", "project", mcfg.ProjectID)
	} else {
		logger.Warn("error monitor disabled: MONITOR_API_KEY not set")
	}

	disk, err := storage.FromConfig(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("storage: %w", err)
	}
	opts.Disk = disk

	switch driver := config.Get("SESSION_DRIVER", "memory"); driver {
	case "memory", "":
		opts.Sessions = session.NewMemoryStore()
	case "redis":
		rdb, err := cache.ConnectFromConfig(ctx)
		if err != nil {
			return Options{}, fmt.Errorf("session redis: %w", err)
		}
		opts.Sessions = session.NewRedisStore(cache.New(rdb, "faultline:session:"))
		opts.Closers = append(opts.Closers, rdb.Close)
	default:
		return Options{}, fmt.Errorf("unknown SESSION_DRIVER %q", driver)
	}

	return opts, nil
}
