package config

import (
    "os"
    "strconv"

    "gopkg.in/yaml.v3"
)

// Config is the service configuration. Values come from an optional YAML
// file, then environment variables override.
type Config struct {
    Port        string `yaml:"port"`
    DatabaseURL string `yaml:"databaseUrl"`
    RedisURL    string `yaml:"redisUrl"`
    Migrate     bool   `yaml:"migrate"`

    Provider struct {
        APIKey         string  `yaml:"apiKey"`
        BaseURL        string  `yaml:"baseUrl"`
        TimeoutSeconds int     `yaml:"timeoutSeconds"`
        RateRPS        float64 `yaml:"rateRps"`
        RateBurst      int     `yaml:"rateBurst"`
    } `yaml:"provider"`

    Plan struct {
        TimeoutSeconds int `yaml:"timeoutSeconds"`
    } `yaml:"plan"`

    Webhook struct {
        MaxAttempts int `yaml:"maxAttempts"`
    } `yaml:"webhook"`
}

func defaults() Config {
    var c Config
    c.Port = "8080"
    c.Migrate = true
    c.Provider.TimeoutSeconds = 30
    c.Provider.RateRPS = 45
    c.Provider.RateBurst = 10
    c.Plan.TimeoutSeconds = 45
    c.Webhook.MaxAttempts = 10
    return c
}

// Load reads path if it exists, then applies environment overrides.
// A missing file is not an error; env-only deployments are common.
func Load(path string) (Config, error) {
    c := defaults()
    if path != "" {
        b, err := os.ReadFile(path)
        if err == nil {
            if err := yaml.Unmarshal(b, &c); err != nil {
                return c, err
            }
        } else if !os.IsNotExist(err) {
            return c, err
        }
    }
    if v := os.Getenv("PORT"); v != "" { c.Port = v }
    if v := os.Getenv("DATABASE_URL"); v != "" { c.DatabaseURL = v }
    if v := os.Getenv("REDIS_URL"); v != "" { c.RedisURL = v }
    if v := os.Getenv("DB_MIGRATE"); v == "false" { c.Migrate = false }
    if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" { c.Provider.APIKey = v }
    if v := os.Getenv("ROUTES_BASE_URL"); v != "" { c.Provider.BaseURL = v }
    if v := os.Getenv("RATE_RPS"); v != "" { if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 { c.Provider.RateRPS = f } }
    if v := os.Getenv("RATE_BURST"); v != "" { if n, err := strconv.Atoi(v); err == nil && n > 0 { c.Provider.RateBurst = n } }
    if v := os.Getenv("PLAN_TIMEOUT_SECONDS"); v != "" { if n, err := strconv.Atoi(v); err == nil && n > 0 { c.Plan.TimeoutSeconds = n } }
    if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" { if n, err := strconv.Atoi(v); err == nil && n > 0 { c.Webhook.MaxAttempts = n } }
    return c, nil
}
