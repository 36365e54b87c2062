package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Postgres struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
	SSLMode  string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Cache selects the store backend and the dual expiry applied to remote entities.
type Cache struct {
	Backend    string // "redis" or "memory"
	MemorySize int
	Sliding    time.Duration
	Absolute   time.Duration
}

type Upstreams struct {
	ProductsURL string
	UsersURL    string
	Timeout     time.Duration
}

type Bulkhead struct {
	MaxConcurrent int
	MaxQueue      int
}

type Breaker struct {
	Threshold    uint32
	OpenTimeout  time.Duration
	MaxHalfOpen  uint32
	FailureRatio float64
	MinRequests  uint32
	Interval     time.Duration
	// ProductsEnabled puts a breaker on the products path too; the users path always has one.
	ProductsEnabled bool
}

type Kafka struct {
	Brokers           []string
	ProductsTopic     string
	DeleteQueue       string
	RenameQueue       string
	Partitions        int
	ReplicationFactor int
}

type Retry struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

type Config struct {
	HTTPAddr string
	AppEnv   string

	// EnrichFanOut bounds concurrent lookups issued by one enrichment request.
	EnrichFanOut int
	// RenameMode is "patch" or "evict".
	RenameMode string

	Pg        Postgres
	Redis     Redis
	Cache     Cache
	Upstreams Upstreams
	Bulkhead  Bulkhead
	Breaker   Breaker
	Kafka     Kafka
	Retry     Retry
}

// Load reads the environment and fatals on error.
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

func load() (Config, error) {
	_ = godotenv.Load("env/.env")

	cfg := Config{
		HTTPAddr:     envDefault("HTTP_ADDR", ":8080"),
		AppEnv:       envDefault("APP_ENV", "development"),
		EnrichFanOut: envInt("ENRICH_FANOUT", 8),
		RenameMode:   strings.ToLower(envDefault("INVALIDATION_RENAME_MODE", "patch")),

		Pg: Postgres{
			Host:     strings.TrimSpace(os.Getenv("PG_HOST")),
			Port:     strings.TrimSpace(envDefault("PG_PORT", "5432")),
			DB:       strings.TrimSpace(os.Getenv("PG_DB")),
			User:     strings.TrimSpace(os.Getenv("PG_USER")),
			Password: strings.TrimSpace(os.Getenv("PG_PASSWORD")),
			SSLMode:  strings.TrimSpace(envDefault("PG_SSLMODE", "disable")),
		},

		Redis: Redis{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
			DB:       envInt("REDIS_DB", 0),
		},

		Cache: Cache{
			Backend:    strings.ToLower(envDefault("CACHE_BACKEND", "redis")),
			MemorySize: envInt("CACHE_MEMORY_SIZE", 10000),
			Sliding:    envDurationMS("CACHE_SLIDING", 150*time.Second),
			Absolute:   envDurationMS("CACHE_ABSOLUTE", 600*time.Second),
		},

		Upstreams: Upstreams{
			ProductsURL: strings.TrimRight(strings.TrimSpace(os.Getenv("PRODUCTS_BASE_URL")), "/"),
			UsersURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("USERS_BASE_URL")), "/"),
			Timeout:     envDurationMS("UPSTREAM_TIMEOUT", 1500*time.Millisecond),
		},

		Bulkhead: Bulkhead{
			MaxConcurrent: envInt("BULKHEAD_MAX_CONCURRENT", 10),
			MaxQueue:      envInt("BULKHEAD_MAX_QUEUE", 40),
		},

		Breaker: Breaker{
			Threshold:       envUint32("BREAKER_THRESHOLD", 3),
			OpenTimeout:     envDurationMS("BREAKER_OPENTIMEOUT", 30*time.Second),
			MaxHalfOpen:     envUint32("BREAKER_MAXHALFOPEN", 1),
			FailureRatio:    envFloat64("BREAKER_FAILURE_RATIO", 0.5),
			MinRequests:     envUint32("BREAKER_MIN_REQUESTS", 10),
			Interval:        envDurationMS("BREAKER_INTERVAL", 30*time.Second),
			ProductsEnabled: envBool("PRODUCTS_BREAKER_ENABLED", false),
		},

		Kafka: Kafka{
			Brokers:           splitCSV(strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))),
			ProductsTopic:     envDefault("KAFKA_PRODUCTS_TOPIC", "products-events"),
			DeleteQueue:       envDefault("KAFKA_DELETE_QUEUE", "orders.product.delete.queue"),
			RenameQueue:       envDefault("KAFKA_RENAME_QUEUE", "orders.product.update.name.queue"),
			Partitions:        envInt("KAFKA_TOPIC_PARTITIONS", 1),
			ReplicationFactor: envInt("KAFKA_REPLICATION_FACTOR", 1),
		},

		Retry: Retry{
			Attempts:     envInt("RETRY_ATTEMPTS", 5),
			Base:         envDurationMS("RETRY_BASE", 100*time.Millisecond),
			Max:          envDurationMS("RETRY_MAX", 5*time.Second),
			JitterFactor: envFloat64("RETRY_JITTERFACTOR", 0.3),
		},
	}

	// Validate required envs and basic sanity.
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	req := map[string]string{
		"PG_HOST":           c.Pg.Host,
		"PG_DB":             c.Pg.DB,
		"PG_USER":           c.Pg.User,
		"PG_PASSWORD":       c.Pg.Password,
		"PRODUCTS_BASE_URL": c.Upstreams.ProductsURL,
		"USERS_BASE_URL":    c.Upstreams.UsersURL,
		"KAFKA_BROKERS":     strings.Join(c.Kafka.Brokers, ","),
	}
	if c.Cache.Backend == "redis" {
		req["REDIS_ADDR"] = c.Redis.Addr
	}
	for k, v := range req {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &missingEnvError{Keys: missing}
	}

	if c.Cache.Backend != "redis" && c.Cache.Backend != "memory" {
		log.Printf("CACHE_BACKEND is %q, adjusting to redis", c.Cache.Backend)
		c.Cache.Backend = "redis"
	}
	if c.Cache.Absolute < c.Cache.Sliding {
		log.Printf("CACHE_ABSOLUTE (%v) < CACHE_SLIDING (%v), adjusting sliding to absolute", c.Cache.Absolute, c.Cache.Sliding)
		c.Cache.Sliding = c.Cache.Absolute
	}
	if c.Bulkhead.MaxConcurrent <= 0 {
		log.Printf("BULKHEAD_MAX_CONCURRENT is %d, adjusting to 1", c.Bulkhead.MaxConcurrent)
		c.Bulkhead.MaxConcurrent = 1
	}
	if c.Bulkhead.MaxQueue < 0 {
		log.Printf("BULKHEAD_MAX_QUEUE is %d, adjusting to 0", c.Bulkhead.MaxQueue)
		c.Bulkhead.MaxQueue = 0
	}
	if c.EnrichFanOut <= 0 {
		log.Printf("ENRICH_FANOUT is %d, adjusting to 1", c.EnrichFanOut)
		c.EnrichFanOut = 1
	}
	if c.RenameMode != "patch" && c.RenameMode != "evict" {
		log.Printf("INVALIDATION_RENAME_MODE is %q, adjusting to patch", c.RenameMode)
		c.RenameMode = "patch"
	}
	if c.Kafka.Partitions <= 0 {
		log.Printf("KAFKA_TOPIC_PARTITIONS is %d, adjusting to 1", c.Kafka.Partitions)
		c.Kafka.Partitions = 1
	}
	if c.Kafka.ReplicationFactor <= 0 {
		log.Printf("KAFKA_REPLICATION_FACTOR is %d, adjusting to 1", c.Kafka.ReplicationFactor)
		c.Kafka.ReplicationFactor = 1
	}
	if c.Retry.Base <= 0 {
		log.Printf("RETRY_BASE is %v, adjusting to 100ms", c.Retry.Base)
		c.Retry.Base = 100 * time.Millisecond
	}
	if c.Retry.Max < c.Retry.Base {
		log.Printf("RETRY_MAX (%v) < RETRY_BASE (%v), adjusting max to base", c.Retry.Max, c.Retry.Base)
		c.Retry.Max = c.Retry.Base
	}
	return nil
}

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}

// DSN builds a proper Postgres URL, safely escaping user/pass and query.
func (c Config) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Pg.User, c.Pg.Password),
		Host:   net.JoinHostPort(c.Pg.Host, c.Pg.Port),
		Path:   "/" + c.Pg.DB,
	}
	q := url.Values{}
	if c.Pg.SSLMode != "" {
		q.Set("sslmode", c.Pg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

func envUint32(k string, def uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return uint32(u)
}

func envFloat64(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %.3f: %v", k, v, def, err)
		return def
	}
	return f
}

func envBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %t: %v", k, v, def, err)
		return def
	}
	return b
}

// envDurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func envDurationMS(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
