package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del scanner.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Venues   VenuesConfig   `yaml:"venues"`
	Registry RegistryConfig `yaml:"registry"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ScannerConfig controla el comportamiento del scanner.
type ScannerConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	MaxConcurrency  int     `yaml:"max_concurrency"` // pares evaluados en paralelo
	Bankroll        float64 `yaml:"bankroll"`        // capital de referencia para los importes del reporte
	FuzzyThreshold  float64 `yaml:"fuzzy_threshold"` // default para pares fuzzy sin threshold propio
	ExactThreshold  float64 `yaml:"exact_threshold"`
	MinMargin       float64 `yaml:"min_margin"`    // señales con menos margen no se reportan
	MaxUncovered    float64 `yaml:"max_uncovered"` // fracción máxima de masa sin contraparte
	ExcludeSkipped  bool    `yaml:"exclude_skipped"` // ignora señales con outcomes descartados
}

// VenuesConfig agrupa la configuración de cada venue.
type VenuesConfig struct {
	Futuur     FutuurConfig     `yaml:"futuur"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Manifold   ManifoldConfig   `yaml:"manifold"`
}

// FutuurConfig contiene credenciales y parámetros de la API de Futuur.
type FutuurConfig struct {
	BaseURL           string  `yaml:"base_url"`
	PublicKey         string  `yaml:"public_key"`  // mejor vía FUTUUR_PUBLIC_KEY
	PrivateKey        string  `yaml:"private_key"` // mejor vía FUTUUR_PRIVATE_KEY
	ReferenceCurrency string  `yaml:"reference_currency"`
	CurrencyMode      string  `yaml:"currency_mode"` // play_money | real_money
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// PolymarketConfig contiene los base URLs de las APIs.
type PolymarketConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// ManifoldConfig controla el listado de Manifold.
type ManifoldConfig struct {
	PageSize int `yaml:"page_size"`
}

// RegistryConfig apunta al fichero de pares (.yaml, .yml o .toml).
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig selecciona el backend de la cache de snapshots.
type CacheConfig struct {
	Backend       string `yaml:"backend"` // none | memory | redis
	TTLSeconds    int    `yaml:"ttl_seconds"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"; "" desactiva el histórico
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// CacheTTL devuelve el TTL de la cache como time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FUTUUR_PUBLIC_KEY"); v != "" {
		cfg.Venues.Futuur.PublicKey = v
	}
	if v := os.Getenv("FUTUUR_PRIVATE_KEY"); v != "" {
		cfg.Venues.Futuur.PrivateKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = n
		}
	}
	if v := os.Getenv("PAIRS_FILE"); v != "" {
		cfg.Registry.Path = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 60
	}
	if cfg.Scanner.MaxConcurrency <= 0 {
		cfg.Scanner.MaxConcurrency = 4
	}
	if cfg.Scanner.Bankroll <= 0 {
		cfg.Scanner.Bankroll = 100
	}
	if cfg.Scanner.FuzzyThreshold <= 0 {
		cfg.Scanner.FuzzyThreshold = 0.1
	}
	if cfg.Scanner.ExactThreshold <= 0 {
		cfg.Scanner.ExactThreshold = 1.0
	}
	if cfg.Venues.Futuur.BaseURL == "" {
		cfg.Venues.Futuur.BaseURL = "https://api.futuur.com/api/v1/"
	}
	if cfg.Venues.Futuur.ReferenceCurrency == "" {
		cfg.Venues.Futuur.ReferenceCurrency = "OOM"
	}
	if cfg.Venues.Futuur.CurrencyMode == "" {
		cfg.Venues.Futuur.CurrencyMode = "play_money"
	}
	if cfg.Venues.Futuur.RequestsPerSecond <= 0 {
		cfg.Venues.Futuur.RequestsPerSecond = 0.5
	}
	if cfg.Venues.Polymarket.CLOBBase == "" {
		cfg.Venues.Polymarket.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.Venues.Polymarket.GammaBase == "" {
		cfg.Venues.Polymarket.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Venues.Manifold.PageSize <= 0 {
		cfg.Venues.Manifold.PageSize = 100
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "config/pairs.yaml"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 15
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza combinaciones que el scanner no sabe manejar.
func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend %q: want none, memory or redis", c.Cache.Backend)
	}
	switch c.Venues.Futuur.CurrencyMode {
	case "play_money", "real_money":
	default:
		return fmt.Errorf("venues.futuur.currency_mode %q: want play_money or real_money", c.Venues.Futuur.CurrencyMode)
	}
	if c.Scanner.FuzzyThreshold > 1 || c.Scanner.ExactThreshold > 1 {
		return fmt.Errorf("scanner thresholds must be in (0,1]")
	}
	if c.Scanner.MinMargin < 0 || c.Scanner.MaxUncovered < 0 || c.Scanner.MaxUncovered > 1 {
		return fmt.Errorf("scanner.min_margin and scanner.max_uncovered must be in [0,1]")
	}
	return nil
}
