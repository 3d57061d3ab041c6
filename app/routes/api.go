// Package routes maps faultline's HTTP surface onto its controllers.
package routes

import (
	"net/http"

	"github.com/shashiranjanraj/faultline/app/controllers"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/metrics"
	"github.com/shashiranjanraj/faultline/pkg/router"
)

// Controllers is every handler set the API mounts. Route listing works
// with a zero value; nothing is called until a request arrives.
type Controllers struct {
	Health        *controllers.HealthController
	Users         *controllers.UserController
	Products      *controllers.ProductController
	Orders        *controllers.OrderController
	Notifications *controllers.NotificationController
	Settings      *controllers.SettingsController
	Comments      *controllers.CommentController
	Analytics     *controllers.AnalyticsController
	Exports       *controllers.ExportController
	Uploads       *controllers.UploadController
	Auth          *controllers.AuthController
	Search        *controllers.SearchController
}

func RegisterAPI(r *router.Router, c Controllers) {
	r.Handle(http.MethodGet, "/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")
	api.Get("/health", "health", ctx.Wrap(c.Health.Show))

	api.Get("/users", "users.index", ctx.Wrap(c.Users.Index))
	api.Get("/users/{id}", "users.show", ctx.Wrap(c.Users.Show))

	api.Get("/products", "products.index", ctx.Wrap(c.Products.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(c.Products.Show))
	api.Patch("/products/{id}", "products.update", ctx.Wrap(c.Products.Update))

	api.Post("/checkout", "checkout", ctx.Wrap(c.Orders.Checkout))
	api.Get("/orders", "orders.index", ctx.Wrap(c.Orders.Index))
	api.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Orders.Show))

	api.Get("/notifications", "notifications.index", ctx.Wrap(c.Notifications.Index))
	api.Post("/notifications", "notifications.store", ctx.Wrap(c.Notifications.Store))
	api.Patch("/notifications", "notifications.read", ctx.Wrap(c.Notifications.MarkRead))
	api.Delete("/notifications", "notifications.destroy", ctx.Wrap(c.Notifications.Destroy))
	api.Get("/notifications/ws", "notifications.live", ctx.Wrap(c.Notifications.Live))

	api.Get("/settings", "settings.show", ctx.Wrap(c.Settings.Show))
	api.Put("/settings", "settings.replace", ctx.Wrap(c.Settings.Replace))
	api.Patch("/settings", "settings.update", ctx.Wrap(c.Settings.Update))
	api.Delete("/settings", "settings.reset", ctx.Wrap(c.Settings.Reset))

	api.Get("/comments", "comments.index", ctx.Wrap(c.Comments.Index))
	api.Post("/comments", "comments.store", ctx.Wrap(c.Comments.Store))
	api.Patch("/comments", "comments.update", ctx.Wrap(c.Comments.Update))
	api.Delete("/comments", "comments.destroy", ctx.Wrap(c.Comments.Destroy))

	api.Post("/analytics", "analytics.view", ctx.Wrap(c.Analytics.View))
	api.Post("/analytics/track", "analytics.track", ctx.Wrap(c.Analytics.Track))
	api.Get("/analytics", "analytics.show", ctx.Wrap(c.Analytics.Show))

	api.Post("/export", "export.store", ctx.Wrap(c.Exports.Store))
	api.Get("/export", "export.show", ctx.Wrap(c.Exports.Show))
	api.Delete("/export", "export.destroy", ctx.Wrap(c.Exports.Destroy))
	api.Get("/export/{id}/events", "export.events", ctx.Wrap(c.Exports.Events))

	api.Post("/upload", "upload.store", ctx.Wrap(c.Uploads.Store))
	api.Get("/upload", "upload.show", ctx.Wrap(c.Uploads.Show))
	api.Delete("/upload", "upload.destroy", ctx.Wrap(c.Uploads.Destroy))

	api.Post("/auth/login", "auth.login", ctx.Wrap(c.Auth.Login))
	api.Get("/auth/login", "auth.current", ctx.Wrap(c.Auth.Current))
	api.Delete("/auth/login", "auth.logout", ctx.Wrap(c.Auth.Logout))

	api.Get("/search", "search", ctx.Wrap(c.Search.Index))
}
