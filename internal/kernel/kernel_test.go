package kernel_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/internal/kernel"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
	"github.com/shashiranjanraj/faultline/pkg/storage"
)

func newKernel(t *testing.T, tune func(*kernel.Options)) *kernel.Kernel {
	t.Helper()
	disk, err := storage.NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	opts := kernel.Options{Disk: disk, ExportWorkers: 2}
	if tune != nil {
		tune(&opts)
	}
	k, err := kernel.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, k.Close(ctx))
	})
	return k
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
	Meta    map[string]any    `json:"meta"`
}

func call(t *testing.T, h http.Handler, method, url string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, url, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestNewRequiresDisk(t *testing.T) {
	_, err := kernel.New(kernel.Options{})
	assert.Error(t, err)
}

func TestProductIDMustBeNumeric(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid product id", env.Error)

	rec, _ = call(t, h, http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = call(t, h, http.MethodGet, "/api/products/3?inventory=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[map[string]any](t, env.Data)
	assert.Equal(t, "27in Monitor", p["name"])
	assert.Contains(t, p, "availability")
}

func TestProductPagination(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodGet, "/api/products?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 3)
	assert.Equal(t, float64(3), env.Meta["nextCursor"])
	assert.Equal(t, true, env.Meta["hasMore"])

	rec, env = call(t, h, http.MethodGet, "/api/products?limit=3&cursor=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 2)
	assert.Nil(t, env.Meta["nextCursor"])

	rec, env = call(t, h, http.MethodGet, "/api/products?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid limit", env.Error)
}

func TestCheckoutDeclineIsPaymentRequired(t *testing.T) {
	h := newKernel(t, func(o *kernel.Options) { o.PaymentFaults = fault.Always() }).Handler()

	rec, env := call(t, h, http.MethodPost, "/api/checkout", map[string]any{
		"customer": map[string]any{"name": "Bob Smith", "email": "bob@example.com"},
		"items":    []map[string]any{{"productId": 1, "quantity": 2}},
	})
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	assert.False(t, env.Success)
	assert.Equal(t, "Payment declined", env.Error)
	declined := decode[map[string]any](t, env.Data)
	assert.Len(t, declined["reservationIds"], 1)

	_, env = call(t, h, http.MethodGet, "/api/orders", nil)
	assert.Equal(t, float64(len(store.Seed().Orders)), env.Meta["count"])
}

func TestCheckoutConfirmsAfterPayment(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodPost, "/api/checkout", map[string]any{
		"userId":   "2",
		"customer": map[string]any{"name": "Bob Smith", "email": "bob@example.com"},
		"items":    []map[string]any{{"productId": 1, "quantity": 2}, {"productId": 5, "quantity": 1}},
		"currency": "EUR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[map[string]any](t, env.Data)
	assert.Equal(t, "confirmed", order["status"])
	assert.InDelta(t, 189.97, order["total"], 0.001)
	assert.NotEmpty(t, order["transactionId"])

	rec, _ = call(t, h, http.MethodGet, "/api/orders/"+order["id"].(string), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, h, http.MethodPost, "/api/checkout", map[string]any{
		"customer": map[string]any{"name": "Bob", "email": "bob@example.com"},
		"items":    []map[string]any{{"productId": 4, "quantity": 1}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Insufficient stock", env.Error)

	rec, _ = call(t, h, http.MethodPost, "/api/checkout", map[string]any{
		"customer": map[string]any{"name": "Bob", "email": "bob@example.com"},
		"items":    []map[string]any{{"productId": 1, "quantity": 1}},
		"coupon":   "FREE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestSettingsPatchDeepMerges(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodPatch, "/api/settings", map[string]any{
		"userId":        "2",
		"notifications": map[string]any{"email": false},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decode[map[string]any](t, env.Data)
	assert.Equal(t, map[string]any{"email": false, "push": true, "sms": false, "digest": "weekly"}, s["notifications"])
	assert.Equal(t, "system", s["theme"])

	rec, _ = call(t, h, http.MethodPatch, "/api/settings", map[string]any{
		"userId":        "2",
		"notifications": map[string]any{"fax": true},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = call(t, h, http.MethodDelete, "/api/settings?userId=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, env.Data)["notifications"].(map[string]any)["email"])
}

func TestCommentLength(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodPost, "/api/comments", map[string]any{
		"postId": "post-1", "userId": "2", "content": strings.Repeat("é", 1001),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Details, "content")

	rec, env = call(t, h, http.MethodPost, "/api/comments", map[string]any{
		"postId": "post-1", "userId": "2", "content": "<",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[map[string]any](t, env.Data)
	assert.Equal(t, "&lt;", c["contentHtml"])

	rec, _ = call(t, h, http.MethodPatch, "/api/comments", map[string]any{
		"id": c["id"], "userId": "3", "content": "hijack",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, h, http.MethodDelete, "/api/comments?id=1&userId=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, env.Data)["deleted"], "the reply goes too")
}

func TestMarkReadIsScopedToOwner(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, _ := call(t, h, http.MethodPatch, "/api/notifications", map[string]any{"id": "2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, h, http.MethodPatch, "/api/notifications", map[string]any{"userId": "3", "id": "2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env := call(t, h, http.MethodGet, "/api/notifications?userId=2", nil)
	assert.Equal(t, float64(2), env.Meta["unreadCount"], "nothing flipped")

	rec, env = call(t, h, http.MethodPatch, "/api/notifications", map[string]any{"userId": "2", "all": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, env.Data)["updated"])
}

func TestNotificationsStreamOverWebSocket(t *testing.T) {
	k := newKernel(t, nil)
	srv := httptest.NewServer(k.Handler())
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/notifications/ws?userId=5", nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	require.Eventually(t, func() bool { return k.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec, env := call(t, k.Handler(), http.MethodPost, "/api/notifications", map[string]any{
		"userId": "5", "title": "Hello", "message": "Live",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "delivered", decode[map[string]any](t, env.Data)["deliveryStatus"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var live map[string]any
	require.NoError(t, conn.ReadJSON(&live))
	assert.Equal(t, "Hello", live["title"])
}

func TestExportRunsToCompletion(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodPost, "/api/export", map[string]any{"type": "products", "format": "csv"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, env.Data)["id"].(string)

	require.Eventually(t, func() bool {
		_, env := call(t, h, http.MethodGet, "/api/export?id="+id, nil)
		return decode[map[string]any](t, env.Data)["status"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)

	rec, _ = call(t, h, http.MethodGet, "/api/export?id="+id+"&download=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "products-"+id+".csv")
	assert.Equal(t, 9, strings.Count(rec.Body.String(), "\n"), "header plus eight products")

	rec, _ = call(t, h, http.MethodGet, "/api/export/"+id+"/events", nil)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: job\n")

	rec, _ = call(t, h, http.MethodGet, "/api/export?id=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("userId", "2"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadLimits(t *testing.T) {
	h := newKernel(t, func(o *kernel.Options) { o.UploadMaxBytes = 64 }).Handler()

	rec, _ := call(t, h, http.MethodPost, "/api/upload", map[string]any{"file": "nope"})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct := multipartBody(t, "big.txt", bytes.Repeat([]byte("a"), 65))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	body, ct = multipartBody(t, "note.txt", []byte("hello faultline"))
	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestLoginFlow(t *testing.T) {
	h := newKernel(t, nil).Handler()

	rec, env := call(t, h, http.MethodPost, "/api/auth/login", map[string]any{"email": "bob@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", env.Error)

	rec, env = call(t, h, http.MethodPost, "/api/auth/login", map[string]any{"email": "bob@example.com", "password": store.SeedPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode[map[string]any](t, env.Data)["token"].(string)
	require.NotEmpty(t, token)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "faultline_session=")

	rec, env = call(t, h, http.MethodGet, "/api/auth/login", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]map[string]any](t, env.Data)
	assert.Equal(t, "bob@example.com", me["user"]["email"])
	assert.NotContains(t, me["user"], "passwordHash")

	rec, _ = call(t, h, http.MethodDelete, "/api/auth/login", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, h, http.MethodGet, "/api/auth/login", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = call(t, h, http.MethodGet, "/api/auth/login", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginThrottle(t *testing.T) {
	h := newKernel(t, func(o *kernel.Options) { o.LoginAttempts = ratelimit.PerWindow(2, time.Minute) }).Handler()

	for range 2 {
		rec, _ := call(t, h, http.MethodPost, "/api/auth/login", map[string]any{"email": "carol@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, _ := call(t, h, http.MethodPost, "/api/auth/login", map[string]any{"email": "Carol@Example.com", "password": "nope"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequestRateLimit(t *testing.T) {
	h := newKernel(t, func(o *kernel.Options) { o.RequestLimit = ratelimit.New(0, 1) }).Handler()

	rec, _ := call(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = call(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthMetricsAndFallbacks(t *testing.T) {
	k := newKernel(t, nil)
	h := k.Handler()

	rec, env := call(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, env.Data)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["monitor"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = call(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "faultline_http_requests_total")

	rec, env = call(t, h, http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", env.Error)

	rec, _ = call(t, h, http.MethodPut, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.NotEmpty(t, k.Routes())
}

func TestCloseIsIdempotent(t *testing.T) {
	disk, err := storage.NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)
	k, err := kernel.New(kernel.Options{Disk: disk})
	require.NoError(t, err)

	require.NoError(t, k.Close(context.Background()))
	require.NoError(t, k.Close(context.Background()))
}
