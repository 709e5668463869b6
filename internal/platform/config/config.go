package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config reúne toda la configuración del servicio, cargada de variables
// de entorno con prefijo BREEDING_ (p.ej. BREEDING_HTTP_PORT=8080).
type Config struct {
	AppName  string `envconfig:"APP_NAME" default:"breeding-timeline"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Storage elige el backend: memory | sqlite | postgres.
	Storage     string `envconfig:"STORAGE" default:"memory"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"breeding-timeline.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// IdentityBaseURL apunta al servicio que valida tokens de usuario.
	// Vacío = modo dev (se acepta X-Debug-User-ID).
	IdentityBaseURL string `envconfig:"IDENTITY_BASE_URL"`

	// WalletBaseURL apunta al servicio de monedas. Vacío = billetera
	// permisiva (no se cobra nada).
	WalletBaseURL string `envconfig:"WALLET_BASE_URL"`

	// CattleCreatePrice es el costo en monedas de registrar un animal.
	CattleCreatePrice int `envconfig:"CATTLE_CREATE_PRICE" default:"15"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("breeding", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case "memory", "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("load config: storage %q desconocido", cfg.Storage)
	}
	if cfg.Storage == "postgres" && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, fmt.Errorf("load config: BREEDING_POSTGRES_DSN requerido con storage=postgres")
	}
	return cfg, nil
}
