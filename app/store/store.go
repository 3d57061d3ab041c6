// Package store is faultline's in-memory mock database. Every call waits a
// configurable delay and list queries may come back dropped, so callers
// have to handle a slow, lossy backend:
//
//	s := store.New(store.Options{Faults: fault.New(0.2, 50*time.Millisecond, 200*time.Millisecond)})
//	res, err := s.Products.FindMany(ctx, store.Query[models.Product]{Take: 10})
//	if err != nil {
//	    return err
//	}
//	if res.Dropped() {
//	    logger.WithCtx(ctx).Warn("products result dropped")
//	}
//	products := res.Items()
package store

import (
	"strconv"
	"sync"
	"time"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/pkg/fault"
)

type Options struct {
	// Faults drives delays and dropped results. Nil never misbehaves.
	Faults *fault.Policy
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store holds one Collection per entity. It is built explicitly; there is
// no package-level instance.
type Store struct {
	Users         *Collection[models.User]
	Products      *Collection[models.Product]
	Orders        *Collection[models.Order]
	Notifications *Collection[models.Notification]
	Comments      *Collection[models.Comment]
	Settings      *Collection[models.Settings]
	Exports       *Collection[models.ExportJob]
	PageViews     *Collection[models.PageView]
	Events        *Collection[models.AnalyticsEvent]
	Uploads       *Collection[models.Upload]

	now func() time.Time
}

func New(opts Options) *Store {
	if opts.Faults == nil {
		opts.Faults = fault.Never()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ids := &idGen{now: opts.Now}
	f := opts.Faults

	s := &Store{
		now: opts.Now,
		Users: newCollection(CollectionConfig[models.User]{
			Name:  "users",
			ID:    func(u models.User) string { return intID(u.ID) },
			SetID: func(u *models.User, n int64) { u.ID = int(n) },
			Clone: models.User.Clone,
		}, f, ids),
		Products: newCollection(CollectionConfig[models.Product]{
			Name:  "products",
			ID:    func(p models.Product) string { return intID(p.ID) },
			SetID: func(p *models.Product, n int64) { p.ID = int(n) },
			Clone: models.Product.Clone,
		}, f, ids),
		Orders: newCollection(CollectionConfig[models.Order]{
			Name:  "orders",
			ID:    func(o models.Order) string { return o.ID },
			SetID: func(o *models.Order, n int64) { o.ID = strconv.FormatInt(n, 10) },
			Clone: models.Order.Clone,
		}, f, ids),
		Notifications: newCollection(CollectionConfig[models.Notification]{
			Name:  "notifications",
			ID:    func(n models.Notification) string { return n.ID },
			SetID: func(n *models.Notification, id int64) { n.ID = strconv.FormatInt(id, 10) },
			Clone: models.Notification.Clone,
		}, f, ids),
		Comments: newCollection(CollectionConfig[models.Comment]{
			Name:  "comments",
			ID:    func(c models.Comment) string { return c.ID },
			SetID: func(c *models.Comment, id int64) { c.ID = strconv.FormatInt(id, 10) },
			Clone: models.Comment.Clone,
		}, f, ids),
		Settings: newCollection(CollectionConfig[models.Settings]{
			Name:    "settings",
			IDField: "userId",
			ID:      func(s models.Settings) string { return s.UserID },
			SetID:   func(s *models.Settings, id int64) { s.UserID = strconv.FormatInt(id, 10) },
			Clone:   models.Settings.Clone,
		}, f, ids),
		Exports: newCollection(CollectionConfig[models.ExportJob]{
			Name:  "exports",
			ID:    func(j models.ExportJob) string { return j.ID },
			SetID: func(j *models.ExportJob, id int64) { j.ID = strconv.FormatInt(id, 10) },
			Clone: models.ExportJob.Clone,
		}, f, ids),
		PageViews: newCollection(CollectionConfig[models.PageView]{
			Name:   "page_views",
			ID:     func(p models.PageView) string { return p.ID },
			SetID:  func(p *models.PageView, id int64) { p.ID = strconv.FormatInt(id, 10) },
			Unique: func(p models.PageView) string { return p.PageID },
		}, f, ids),
		Events: newCollection(CollectionConfig[models.AnalyticsEvent]{
			Name:  "analytics_events",
			ID:    func(e models.AnalyticsEvent) string { return e.ID },
			SetID: func(e *models.AnalyticsEvent, id int64) { e.ID = strconv.FormatInt(id, 10) },
			Clone: models.AnalyticsEvent.Clone,
		}, f, ids),
		Uploads: newCollection(CollectionConfig[models.Upload]{
			Name:  "uploads",
			ID:    func(u models.Upload) string { return u.ID },
			SetID: func(u *models.Upload, id int64) { u.ID = strconv.FormatInt(id, 10) },
		}, f, ids),
	}
	s.Reset()
	return s
}

// Reset restores the seed fixtures and drops everything created since.
func (s *Store) Reset() {
	fx := Seed()
	s.Users.load(fx.Users)
	s.Products.load(fx.Products)
	s.Orders.load(fx.Orders)
	s.Notifications.load(fx.Notifications)
	s.Comments.load(fx.Comments)
	s.Settings.load(fx.Settings)
	s.Exports.load(nil)
	s.PageViews.load(fx.PageViews)
	s.Events.load(nil)
	s.Uploads.load(nil)
}

// Now is the store's clock.
func (s *Store) Now() time.Time { return s.now().UTC() }

// Key formats an int id as a collection key.
func Key(id int) string { return strconv.Itoa(id) }

func intID(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// idGen hands out millisecond timestamps, bumped so they never repeat or
// go backwards.
type idGen struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func (g *idGen) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return n
}
