package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

const (
	envPrefix = "WARDEN_"

	defaultWelcome = "Welcome! ✅ Follow the rules and do not spam 🙂"
	defaultRules   = "Rules:\n" +
		"1) No spam or flood\n" +
		"2) No links without permission\n" +
		"3) No abuse\n" +
		"4) Keep off-topic short\n" +
		"Violations are restricted automatically."
)

type (
	Config struct {
		TelegramAPIToken string  `env:"TOKEN,required"`
		OwnerIDs         []int64 `env:"OWNER_IDS"`
		DefaultLanguage  string  `env:"LANG,default=en"`
		LogLevel         int     `env:"LOG_LEVEL,default=4"`
		DotPath          string  `env:"DOT_PATH,default=~/.warden"`
		DBName           string  `env:"DB_NAME,default=warden.db"`
		Moderation       Moderation
		Greeting         Greeting
		Transport        Transport
	}

	Moderation struct {
		FloodWindowSec  int  `env:"FLOOD_WINDOW_SEC,default=8"`
		FloodMaxMessage int  `env:"FLOOD_MAX_MSG,default=6"`
		RepeatMax       int  `env:"REPEAT_MAX,default=3"`
		LinkSpamEnabled bool `env:"LINK_SPAM_ENABLED,default=true"`

		WindowIdleTTL       time.Duration `env:"WINDOW_IDLE_TTL,default=10m"`
		WindowSweepInterval time.Duration `env:"WINDOW_SWEEP_INTERVAL,default=1m"`
	}

	Greeting struct {
		DefaultWelcome string `env:"DEFAULT_WELCOME"`
		DefaultRules   string `env:"DEFAULT_RULES"`
	}

	Transport struct {
		WebhookPublicURL     string        `env:"WEBHOOK_PUBLIC_URL"`
		ListenAddr           string        `env:"LISTEN_ADDR,default=:8080"`
		MetricsEnabled       bool          `env:"METRICS_ENABLED,default=true"`
		MetricsAddr          string        `env:"METRICS_ADDR,default=:2112"`
		Workers              int           `env:"WORKERS,default=16"`
		PlatformTimeout      time.Duration `env:"PLATFORM_TIMEOUT,default=10s"`
		MemberStatusCacheTTL time.Duration `env:"MEMBER_STATUS_CACHE_TTL,default=30s"`
		SendRatePerSec       float64       `env:"SEND_RATE_PER_SEC,default=20"`
	}
)

// FloodWindow returns the flood window as a duration.
func (m Moderation) FloodWindow() time.Duration {
	return time.Duration(m.FloodWindowSec) * time.Second
}

// IsOwner reports whether userID is listed in OWNER_IDS.
func (c Config) IsOwner(userID int64) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.WithError(err).Debug("no .env file loaded")
		}
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process resolves the configuration from lookuper, applying the WARDEN_ prefix.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if cfg.Greeting.DefaultWelcome == "" {
		cfg.Greeting.DefaultWelcome = defaultWelcome
	}
	if cfg.Greeting.DefaultRules == "" {
		cfg.Greeting.DefaultRules = defaultRules
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Moderation.FloodWindowSec <= 0:
		return fmt.Errorf("FLOOD_WINDOW_SEC must be positive, got %d", c.Moderation.FloodWindowSec)
	case c.Moderation.FloodMaxMessage <= 0:
		return fmt.Errorf("FLOOD_MAX_MSG must be positive, got %d", c.Moderation.FloodMaxMessage)
	case c.Moderation.RepeatMax <= 0:
		return fmt.Errorf("REPEAT_MAX must be positive, got %d", c.Moderation.RepeatMax)
	case c.Transport.Workers <= 0:
		return fmt.Errorf("WORKERS must be positive, got %d", c.Transport.Workers)
	}
	return nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
