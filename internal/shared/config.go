package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/rs/zerolog/log"
)

const (
	DefaultJWTSecret   = "change-me"
	productIDEnvPrefix = "PRODUCT_ID_"
)

type Config struct {
	AppEnv         string        `env:"APP_ENV" envDefault:"prod"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	JudgeMeBase  string `env:"JUDGEME_BASE_URL" envDefault:"https://judge.me/api/v1"`
	JudgeMeToken string `env:"JUDGEME_API_TOKEN"`
	ShopDomain   string `env:"JUDGEME_SHOP_DOMAIN"`
	JudgeMeRPS   int    `env:"JUDGEME_RPS" envDefault:"5"`

	CloudinaryCloud  string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinarySecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder string `env:"CLOUDINARY_FOLDER" envDefault:"reviews"`

	GenderizeBase    string        `env:"GENDERIZE_BASE_URL" envDefault:"https://api.genderize.io"`
	GenderizeTimeout time.Duration `env:"GENDERIZE_TIMEOUT" envDefault:"2s"`

	// auto|firestore|redis|mysql|file|none
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"auto"`
	DataDir        string `env:"DATA_DIR" envDefault:"./data"`

	FirebaseProject     string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentials string `env:"FIREBASE_SERVICE_ACCOUNT"`
	FirebaseCredsFile   string `env:"FIREBASE_SERVICE_ACCOUNT_FILE"`
	FirestoreCollection string `env:"FIRESTORE_COLLECTION" envDefault:"review_proxy"`

	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	MySQLDSN string `env:"MYSQL_DSN"`

	JWTSecret     string `env:"JWT_SECRET" envDefault:"change-me"`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_DEFAULT_PASSWORD" envDefault:"admin123"`

	ReviewsCacheTTL time.Duration `env:"REVIEWS_CACHE_TTL" envDefault:"0s"`
	StatsWorkers    int           `env:"STATS_WORKERS" envDefault:"4"`

	// ProductIDs maps sanitized handles (see SanitizeHandleKey) to product ids,
	// collected from PRODUCT_ID_<HANDLE> variables.
	ProductIDs map[string]int64 `env:"-"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	c.ProductIDs = productIDsFromEnv(os.Environ())

	if c.JudgeMeToken == "" || c.ShopDomain == "" {
		log.Warn().Msg("JUDGEME_API_TOKEN or JUDGEME_SHOP_DOMAIN is empty")
	}
	if c.JWTSecret == DefaultJWTSecret {
		log.Warn().Msg("JWT_SECRET is not set; using the built-in development secret")
	}
	return c, nil
}

// FirebaseCredentialsJSON returns the service account JSON, preferring the inline
// variable over the file path.
func (c Config) FirebaseCredentialsJSON() ([]byte, error) {
	if c.FirebaseCredentials != "" {
		return []byte(c.FirebaseCredentials), nil
	}
	if c.FirebaseCredsFile != "" {
		b, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, fmt.Errorf("read firebase credentials: %w", err)
		}
		return b, nil
	}
	return nil, nil
}

func productIDsFromEnv(environ []string) map[string]int64 {
	out := map[string]int64{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, productIDEnvPrefix) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			log.Warn().Str("var", k).Msg("ignoring non-numeric product id override")
			continue
		}
		out[strings.TrimPrefix(k, productIDEnvPrefix)] = n
	}
	return out
}
