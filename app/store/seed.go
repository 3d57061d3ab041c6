package store

import (
	"sync"
	"time"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/pkg/auth"
)

// SeedPassword is the password of every seeded user.
const SeedPassword = "password123"

// SeedEpoch anchors fixture timestamps so output is deterministic.
var SeedEpoch = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

var seedHash = sync.OnceValue(func() string {
	h, err := auth.HashPassword(SeedPassword)
	if err != nil {
		panic("store: hash seed password: " + err.Error())
	}
	return h
})

// Fixtures is the seed data every Store starts from.
type Fixtures struct {
	Users         []models.User         `json:"users"`
	Products      []models.Product      `json:"products"`
	Orders        []models.Order        `json:"orders"`
	Notifications []models.Notification `json:"notifications"`
	Comments      []models.Comment      `json:"comments"`
	Settings      []models.Settings     `json:"settings"`
	PageViews     []models.PageView     `json:"pageViews"`
}

func at(days, hours int) time.Time {
	return SeedEpoch.AddDate(0, 0, days).Add(time.Duration(hours) * time.Hour)
}

func ptr[T any](v T) *T { return &v }

// Seed builds a fresh copy of the fixtures.
func Seed() Fixtures {
	hash := seedHash()

	users := []models.User{
		{
			ID: 1, Email: "alice@example.com", Name: "Alice Johnson", Role: models.RoleAdmin,
			Profile: &models.Profile{
				DisplayName: "Alice J.",
				AvatarURL:   ptr("https://cdn.example.com/avatars/alice.png"),
				Bio:         "Runs the shop.",
			},
			CreatedAt: at(0, 0), LastLoginAt: ptr(at(30, 2)),
		},
		{ID: 2, Email: "bob@example.com", Name: "Bob Smith", Role: models.RoleUser, CreatedAt: at(1, 0)},
		{
			ID: 3, Email: "carol@example.com", Name: "Carol White", Role: models.RoleUser,
			Profile:   &models.Profile{Bio: "Coffee first."},
			CreatedAt: at(2, 0),
		},
		{ID: 4, Email: "dave@example.com", Name: "Dave Brown", Role: models.RoleGuest, CreatedAt: at(3, 0)},
		{
			ID: 5, Email: "erin@example.com", Name: "Erin Davis", Role: models.RoleUser,
			Profile:   &models.Profile{DisplayName: "erin_d", Bio: ""},
			CreatedAt: at(4, 0),
		},
	}
	for i := range users {
		users[i].PasswordHash = hash
	}

	products := []models.Product{
		{ID: 1, SKU: "KB-001", Name: "Mechanical Keyboard", Description: "Tenkeyless, brown switches.", Price: 89.99, Inventory: 42, Category: ptr("electronics"), CreatedAt: at(0, 1)},
		{ID: 2, SKU: "MS-002", Name: "Wireless Mouse", Description: "Ergonomic, 2.4 GHz.", Price: 29.5, Inventory: 120, Category: ptr("electronics"), CreatedAt: at(0, 2)},
		{ID: 3, SKU: "MN-003", Name: "27in Monitor", Description: "1440p IPS panel.", Price: 319, Inventory: 3, Category: ptr("electronics"), CreatedAt: at(0, 3)},
		{ID: 4, SKU: "MG-004", Name: "Coffee Mug", Description: "Ceramic, 350 ml.", Price: 12.25, Inventory: 0, Category: ptr("kitchen"), CreatedAt: at(0, 4)},
		{ID: 5, SKU: "NB-005", Name: "Dot Grid Notebook", Description: "A5, 160 pages.", Price: 9.99, Inventory: 75, Category: ptr("stationery"), CreatedAt: at(0, 5)},
		{ID: 6, SKU: "ST-006", Name: "Sticker Pack", Description: "Assorted vinyl stickers.", Price: 4.5, Inventory: 300, CreatedAt: at(0, 6)},
		{ID: 7, SKU: "DL-007", Name: "Desk Lamp", Description: "Dimmable LED lamp.", Price: 45, Inventory: 18, Category: ptr("home"), CreatedAt: at(0, 7)},
		{ID: 8, SKU: "GC-008", Name: "Gift Card", Description: "Redeemable store credit.", Price: 25, Inventory: 1000, CreatedAt: at(0, 8)},
	}

	orders := []models.Order{
		{
			ID:       "1001",
			Customer: models.Customer{UserID: "2", Name: "Bob Smith", Email: "bob@example.com"},
			Items: []models.OrderItem{
				{ProductID: 1, Name: "Mechanical Keyboard", Quantity: 1, Price: 89.99},
				{ProductID: 2, Name: "Wireless Mouse", Quantity: 1, Price: 29.5},
			},
			Total: 119.49, Currency: "USD", Status: models.OrderDelivered,
			TransactionID: "txn_seed_1001", ReservationIDs: []string{}, CreatedAt: at(5, 0),
		},
		{
			ID:       "1002",
			Customer: models.Customer{UserID: "3", Name: "Carol White", Email: "carol@example.com"},
			Items:    []models.OrderItem{{ProductID: 5, Name: "Dot Grid Notebook", Quantity: 3, Price: 9.99}},
			Total:    29.97, Currency: "EUR", Status: models.OrderShipped,
			TransactionID: "txn_seed_1002", ReservationIDs: []string{}, CreatedAt: at(8, 0),
		},
		{
			ID:       "1003",
			Customer: models.Customer{UserID: "2", Name: "Bob Smith", Email: "bob@example.com"},
			Items:    []models.OrderItem{{ProductID: 7, Name: "Desk Lamp", Quantity: 1, Price: 45}},
			Total:    45, Currency: "USD", Status: models.OrderPending,
			ReservationIDs: []string{}, CreatedAt: at(12, 0),
		},
		{
			ID:       "1004",
			Customer: models.Customer{Name: "Guest Buyer", Email: "guest@example.org"},
			Items:    []models.OrderItem{{ProductID: 8, Name: "Gift Card", Quantity: 2, Price: 25}},
			Total:    50, Currency: "GBP", Status: models.OrderCancelled,
			ReservationIDs: []string{}, CreatedAt: at(14, 0),
		},
	}

	notifications := []models.Notification{
		{ID: "1", UserID: "1", Title: "Welcome", Message: "Your admin account is ready.", Type: "info", Channel: models.ChannelInApp, Read: true, ReadAt: ptr(at(0, 1)), CreatedAt: at(0, 0)},
		{ID: "2", UserID: "2", Title: "Order shipped", Message: "Order 1001 is on its way.", Type: "success", Channel: models.ChannelEmail, CreatedAt: at(6, 0)},
		{ID: "3", UserID: "2", Title: "Order delivered", Message: "Order 1001 was delivered.", Type: "success", Channel: models.ChannelInApp, CreatedAt: at(7, 0)},
		{ID: "4", UserID: "3", Title: "Payment retry", Message: "We could not charge your card.", Type: "warning", Channel: models.ChannelPush, CreatedAt: at(8, 1)},
	}

	comments := []models.Comment{
		{ID: "1", PostID: "post-1", UserID: "2", Content: "Great write-up!", ContentHTML: "Great write-up!", CreatedAt: at(9, 0)},
		{ID: "2", PostID: "post-1", UserID: "1", ParentID: ptr("1"), Content: "Thanks <3", ContentHTML: "Thanks &lt;3", CreatedAt: at(9, 1)},
		{ID: "3", PostID: "post-1", UserID: "3", Content: "What about \"edge\" cases?", ContentHTML: "What about &#34;edge&#34; cases?", CreatedAt: at(9, 2)},
		{ID: "4", PostID: "post-2", UserID: "5", Content: "First!", ContentHTML: "First!", CreatedAt: at(10, 0)},
	}

	aliceSettings := models.DefaultSettings("1")
	aliceSettings.Theme = "dark"
	aliceSettings.Notifications.Digest = "daily"
	aliceSettings.UpdatedAt = ptr(at(1, 0))

	pageViews := []models.PageView{
		{ID: "1", PageID: "home", Views: 128, LastReferrer: "https://www.google.com/", CreatedAt: at(0, 0), LastViewedAt: at(20, 0)},
		{ID: "2", PageID: "products", Views: 64, CreatedAt: at(0, 0), LastViewedAt: at(19, 0)},
		{ID: "3", PageID: "post-1", Views: 12, CreatedAt: at(9, 0), LastViewedAt: at(10, 0)},
	}

	return Fixtures{
		Users:         users,
		Products:      products,
		Orders:        orders,
		Notifications: notifications,
		Comments:      comments,
		Settings:      []models.Settings{aliceSettings},
		PageViews:     pageViews,
	}
}
