// Package kernel assembles faultline: the mock store, the mock external
// services, the worker pool, the live hub and the HTTP middleware stack.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/faultline/app/controllers"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/routes"
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/auth"
	"github.com/shashiranjanraj/faultline/pkg/event"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/metrics"
	"github.com/shashiranjanraj/faultline/pkg/middleware"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
	"github.com/shashiranjanraj/faultline/pkg/reqid"
	"github.com/shashiranjanraj/faultline/pkg/response"
	"github.com/shashiranjanraj/faultline/pkg/router"
	"github.com/shashiranjanraj/faultline/pkg/session"
	"github.com/shashiranjanraj/faultline/pkg/storage"
	"github.com/shashiranjanraj/faultline/pkg/workerpool"
	"github.com/shashiranjanraj/faultline/pkg/ws"
)

const (
	defaultExportWorkers  = 4
	defaultUploadMaxBytes = 5 << 20
	devJWTSecret          = "change-me-in-production"
)

// Options configures New. Nil fault policies never fail and never wait; a
// nil Monitor reports nothing. Disk is required.
type Options struct {
	StoreFaults     *fault.Policy
	PaymentFaults   *fault.Policy
	InventoryFaults *fault.Policy
	DeliveryFaults  *fault.Policy

	// Now is the store clock. Defaults to time.Now.
	Now func() time.Time

	Monitor  *monitor.Client
	Payments services.PaymentGateway // defaults to MockPayments(PaymentFaults)
	Disk     storage.Disk
	Sessions session.Store // defaults to an in-memory store
	Issuer   *auth.Issuer

	CORS          *middleware.CORSOptions // defaults to DefaultCORSOptions
	LoginAttempts *ratelimit.Limiter      // per email
	RequestLimit  *ratelimit.Limiter      // per client IP; nil disables it

	ExportWorkers  int
	UploadMaxBytes int64
	SecureCookies  bool

	// Closers run last in Close, e.g. to hang up a Redis client.
	Closers []func() error
}

// Kernel owns every long-lived component. Build it with New and release it
// with Close.
type Kernel struct {
	Store    *store.Store
	Pool     *workerpool.Pool
	Hub      *ws.Hub
	Monitor  *monitor.Client
	Exports  *services.ExportService
	Sessions session.Store
	Events   *event.Dispatcher

	router  *router.Router
	handler http.Handler
	closers []func() error

	stopHub   context.CancelFunc
	hubDone   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func New(opts Options) (*Kernel, error) {
	if opts.Disk == nil {
		return nil, errors.New("kernel: a storage disk is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.Issuer == nil {
		opts.Issuer = auth.NewIssuer(devJWTSecret, 24*time.Hour)
	}
	if opts.LoginAttempts == nil {
		opts.LoginAttempts = ratelimit.PerWindow(5, 15*time.Minute)
	}
	if opts.Payments == nil {
		opts.Payments = services.NewMockPayments(opts.PaymentFaults)
	}
	if opts.ExportWorkers <= 0 {
		opts.ExportWorkers = defaultExportWorkers
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = defaultUploadMaxBytes
	}

	k := &Kernel{
		Store:    store.New(store.Options{Faults: opts.StoreFaults, Now: opts.Now}),
		Pool:     workerpool.New(opts.ExportWorkers),
		Hub:      ws.NewHub(),
		Monitor:  opts.Monitor,
		Sessions: opts.Sessions,
		Events:   event.NewDispatcher(),
		closers:  opts.Closers,
		hubDone:  make(chan struct{}),
	}

	hubCtx, stop := context.WithCancel(context.Background())
	k.stopHub = stop
	go func() {
		defer close(k.hubDone)
		k.Hub.Run(hubCtx)
	}()

	inventory := services.NewInventory(opts.InventoryFaults)
	delivery := services.NewDelivery(opts.DeliveryFaults, k.Hub)
	notifications := services.NewNotificationService(k.Store, delivery)
	services.RegisterListeners(k.Events, notifications)
	k.Exports = services.NewExportService(k.Store, k.Pool, opts.Disk, k.Monitor)

	users := repositories.NewUserRepository(k.Store)
	authService := services.NewAuthService(users, opts.Sessions, opts.Issuer, opts.LoginAttempts).WithClock(opts.Now)

	k.router = router.New()
	cors := middleware.DefaultCORSOptions()
	if opts.CORS != nil {
		cors = *opts.CORS
	}
	k.router.Use(middlewareStack(k.Monitor, cors, opts.RequestLimit)...)
	k.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found")
	})
	k.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	routes.RegisterAPI(k.router, routes.Controllers{
		Health:        controllers.NewHealthController(time.Now(), k.Monitor),
		Users:         controllers.NewUserController(users),
		Products:      controllers.NewProductController(repositories.NewProductRepository(k.Store), inventory),
		Orders:        controllers.NewOrderController(repositories.NewOrderRepository(k.Store), services.NewCheckoutService(k.Store, inventory, opts.Payments, k.Events)),
		Notifications: controllers.NewNotificationController(notifications, k.Hub),
		Settings:      controllers.NewSettingsController(services.NewSettingsService(k.Store)),
		Comments:      controllers.NewCommentController(services.NewCommentService(k.Store)),
		Analytics:     controllers.NewAnalyticsController(services.NewAnalyticsService(k.Store)),
		Exports:       controllers.NewExportController(k.Exports),
		Uploads:       controllers.NewUploadController(services.NewUploadService(k.Store, opts.Disk, opts.UploadMaxBytes)),
		Auth:          controllers.NewAuthController(authService, opts.SecureCookies),
		Search:        controllers.NewSearchController(services.NewSearchService(k.Store)),
	})
	k.handler = k.router.Handler()

	return k, nil
}

// middlewareStack is outermost first: metrics see the full latency, the
// request id exists before anything logs, and recovery sits outside the
// monitor so a reported panic still becomes the generic 500.
func middlewareStack(mon *monitor.Client, cors middleware.CORSOptions, limit *ratelimit.Limiter) []router.Middleware {
	stack := []router.Middleware{
		metrics.Middleware(),
		reqid.Middleware(),
		middleware.Logger,
		middleware.Recovery,
		mon.Wrap,
		middleware.CORS(cors),
	}
	if limit != nil {
		stack = append(stack, middleware.RateLimit(limit))
	}
	return stack
}

func (k *Kernel) Handler() http.Handler { return k.handler }

// Routes lists the mounted routes.
func (k *Kernel) Routes() []router.RouteInfo { return k.router.Routes() }

// Close cancels running exports and waits for their records to settle,
// stops the live hub, then flushes pending monitor forwards until ctx is
// done. Safe to call more than once.
func (k *Kernel) Close(ctx context.Context) error {
	k.closeOnce.Do(func() {
		k.Pool.Shutdown()
		k.Exports.Wait()

		k.stopHub()
		<-k.hubDone

		var errs []error
		if err := k.Monitor.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush monitor: %w", err))
		}
		for _, c := range k.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		k.closeErr = errors.Join(errs...)
		if k.closeErr != nil {
			logger.Warn("kernel closed with errors", "error", k.closeErr)
		}
	})
	return k.closeErr
}
