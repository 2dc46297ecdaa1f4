package config

import (
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	FamilyAllowedEmails  string `env:"FAMILY_ALLOWED_EMAILS"`
	AuthSecret           string `env:"AUTH_SECRET,required"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
	LLMAPIKey            string `env:"LLM_API_KEY"`
	LLMBaseURL           string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel             string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	OAuthGitHubID        string `env:"OAUTH_GITHUB_ID"`
	OAuthGitHubSecret    string `env:"OAUTH_GITHUB_SECRET"`
	OAuthGoogleID        string `env:"OAUTH_GOOGLE_ID"`
	OAuthGoogleSecret    string `env:"OAUTH_GOOGLE_SECRET"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	ChatRateWindowSecs   int    `env:"CHAT_RATE_WINDOW_SECONDS" envDefault:"60"`
	ChatRateMax          int    `env:"CHAT_RATE_MAX" envDefault:"20"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllowedEmails devuelve el allow-list en minúsculas, sin espacios ni vacíos.
func (c *Config) AllowedEmails() []string {
	parts := strings.Split(c.FamilyAllowedEmails, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OAuthProviders lista los proveedores OAuth con credenciales configuradas.
// Un proveedor sin credenciales simplemente no aparece como opción de login.
func (c *Config) OAuthProviders() []string {
	var out []string
	if c.OAuthGitHubID != "" && c.OAuthGitHubSecret != "" {
		out = append(out, "github")
	}
	if c.OAuthGoogleID != "" && c.OAuthGoogleSecret != "" {
		out = append(out, "google")
	}
	return out
}
