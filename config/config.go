package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	HTTP      HTTP
	Portfolio Portfolio
	API       API
	Redis     Redis
	Cache     Cache
	Jobs      Jobs
}

type HTTP struct {
	Host         string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"HTTP_PORT" envDefault:"8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// zero: a global write deadline would cut long-lived SSE connections
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	StaticDir    string        `env:"HTTP_STATIC_DIR" envDefault:"web/dist"`
}

type Portfolio struct {
	File string `env:"PORTFOLIO_FILE" envDefault:"portfolio.json"`
}

type API struct {
	Debug        bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout      time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	AlphaVantage AlphaVantage
	Yahoo        Yahoo
}

type AlphaVantage struct {
	Url string `env:"ALPHA_VANTAGE_URL" envDefault:"https://www.alphavantage.co"`
	Key string `env:"ALPHA_VANTAGE_KEY" envDefault:""`
}

type Yahoo struct {
	Url string `env:"RAPIDAPI_YAHOO_URL" envDefault:"https://yahoo-finance15.p.rapidapi.com"`
	Key string `env:"RAPIDAPI_KEY" envDefault:""`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:""`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"5m"`
}

type Jobs struct {
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"30s"`
}

// QuotesEnabled reports whether at least one quote provider credential is configured.
func (c *Config) QuotesEnabled() bool {
	return c.API.AlphaVantage.Key != "" || c.API.Yahoo.Key != ""
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
