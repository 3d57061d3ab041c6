package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultRedisAddr = "localhost:6379"
	defaultJWTSecret = "change-me-in-production"
	defaultAppPort   = "8080"
	defaultAppEnv    = "local"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load merges config/app.json and .env over the built-in defaults.
// Process environment variables always win over both files.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":  defaultAppEnv,
		"APP_PORT": defaultAppPort,

		"LOG_LEVEL":            "",
		"LOG_MONGO_URI":        "",
		"LOG_MONGO_DB":         "faultline",
		"LOG_MONGO_COLLECTION": "logs",

		"STORE_DROP_RATE":    "0.2",
		"STORE_DELAY_MIN_MS": "20",
		"STORE_DELAY_MAX_MS": "120",

		"PAYMENT_DECLINE_RATE": "0.1",
		"PAYMENT_DELAY_MIN_MS": "100",
		"PAYMENT_DELAY_MAX_MS": "400",

		"INVENTORY_DELAY_MIN_MS": "30",
		"INVENTORY_DELAY_MAX_MS": "150",

		"DELIVERY_FAILURE_RATE": "0.05",
		"DELIVERY_DELAY_MIN_MS": "50",
		"DELIVERY_DELAY_MAX_MS": "250",

		"FAULT_SEED": "0",

		"MONITOR_API_KEY":    "",
		"MONITOR_ENDPOINT":   "",
		"MONITOR_PROJECT_ID": "",

		"JWT_SECRET":     defaultJWTSecret,
		"SESSION_TTL":    "24h",
		"SESSION_DRIVER": "memory",
		"REDIS_ADDR":     defaultRedisAddr,
		"REDIS_PASSWORD": "",

		"LOGIN_MAX_ATTEMPTS": "5",
		"LOGIN_WINDOW":       "15m",
		"RATE_LIMIT_RPS":     "50",
		"RATE_LIMIT_BURST":   "100",

		"CORS_ALLOWED_ORIGINS": "*",

		"UPLOAD_MAX_BYTES": "5242880",
		"MAX_BODY_BYTES":   "1048576",
		"EXPORT_WORKERS":   "4",

		"STORAGE_DISK":       "local",
		"STORAGE_LOCAL_ROOT": "storage",
		"STORAGE_URL":        "http://localhost:8080/storage",
	}
}

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

func JWTSecret() string {
	_ = Load()
	return get("JWT_SECRET", defaultJWTSecret)
}

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

// ── Fault injection ──────────────────────────────────────────────────────────

// Faults describes one probability plus latency range read from config.
type Faults struct {
	Rate     float64
	MinDelay time.Duration
	MaxDelay time.Duration
}

func faults(prefix, rateKey string, rate float64) Faults {
	return Faults{
		Rate:     GetFloat(rateKey, rate),
		MinDelay: time.Duration(GetInt(prefix+"_DELAY_MIN_MS", 0)) * time.Millisecond,
		MaxDelay: time.Duration(GetInt(prefix+"_DELAY_MAX_MS", 0)) * time.Millisecond,
	}
}

func StoreFaults() Faults     { return faults("STORE", "STORE_DROP_RATE", 0.2) }
func PaymentFaults() Faults   { return faults("PAYMENT", "PAYMENT_DECLINE_RATE", 0.1) }
func InventoryFaults() Faults { return faults("INVENTORY", "", 0) }
func DeliveryFaults() Faults  { return faults("DELIVERY", "DELIVERY_FAILURE_RATE", 0.05) }

// FaultSeed returns the fixed RNG seed, or 0 to seed from the clock.
func FaultSeed() uint64 {
	n, err := strconv.ParseUint(Get("FAULT_SEED", "0"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string {
	_ = Load()
	return get("STORAGE_DISK", "local")
}

func StorageLocalRoot() string {
	_ = Load()
	return get("STORAGE_LOCAL_ROOT", "storage")
}

func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:8080/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64, bool:
			s = fmt.Sprint(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func get(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}

	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// GetInt reads key as an integer, returning fallback when unset or malformed.
func GetInt(key string, fallback int) int {
	n, err := strconv.Atoi(Get(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// GetInt64 is GetInt for sizes that may exceed 32 bits.
func GetInt64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(Get(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// GetFloat reads key as a float, returning fallback when unset or malformed.
func GetFloat(key string, fallback float64) float64 {
	if key == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(Get(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}

// GetDuration reads key with time.ParseDuration ("15m", "24h").
func GetDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(Get(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetBool accepts the strconv.ParseBool spellings.
func GetBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(Get(key, ""))
	if err != nil {
		return fallback
	}
	return b
}
