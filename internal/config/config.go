package config

import (
	"log"
	"os"
	"strconv"

	"portfolio-notify/pkg/config"
)

type Config struct {
	Server    config.ServerConfig    `yaml:"server"`
	Mail      config.MailConfig      `yaml:"mail"`
	Relay     config.RelayConfig     `yaml:"relay"`
	RateLimit config.RateLimitConfig `yaml:"rate_limit"`
	DB        config.DBConfig        `yaml:"db"`
	MQ        config.MQConfig        `yaml:"mq"`
	Redis     config.RedisConfig     `yaml:"redis"`
	Contact   ContactConfig          `yaml:"contact"`
	Visit     VisitConfig            `yaml:"visit"`
}

// ContactConfig controls the intake saga.
type ContactConfig struct {
	// OwnerAddress receives the notification; defaults to the mail account.
	OwnerAddress     string `yaml:"owner_address"`
	OwnerName        string `yaml:"owner_name"`
	SendConfirmation bool   `yaml:"send_confirmation"`
	RequireName      bool   `yaml:"require_name"`
	AckSubject       string `yaml:"ack_subject"`
	// BreakerFailures consecutive transport failures open the breaker; 0 disables it.
	BreakerFailures       int `yaml:"breaker_failures"`
	BreakerTimeoutSeconds int `yaml:"breaker_timeout_seconds"`
}

type VisitConfig struct {
	// BotPolicy is "trust" or "derive".
	BotPolicy       string `yaml:"bot_policy"`
	DedupTTLSeconds int    `yaml:"dedup_ttl_seconds"`
	QueueName       string `yaml:"queue_name"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfg, err := LoadFrom(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads the layered YAML files from configDir, applies environment
// overrides and fills defaults.
func LoadFrom(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideMailFromEnv(&cfg.Mail)
	config.OverrideRelayFromEnv(&cfg.Relay)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	overrideContactFromEnv(&cfg.Contact)
	if policy := os.Getenv("VISIT_BOT_POLICY"); policy != "" {
		cfg.Visit.BotPolicy = policy
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func overrideContactFromEnv(cfg *ContactConfig) {
	if addr := os.Getenv("MAIL_OWNER_ADDRESS"); addr != "" {
		cfg.OwnerAddress = addr
	}
	cfg.SendConfirmation = config.GetBoolEnv("MAIL_SEND_CONFIRMATION", cfg.SendConfirmation)
	cfg.RequireName = config.GetBoolEnv("CONTACT_REQUIRE_NAME", cfg.RequireName)
	if n := os.Getenv("MAIL_BREAKER_FAILURES"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			cfg.BreakerFailures = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Mail.Host == "" {
		cfg.Mail.Host = "smtp.gmail.com"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Contact.OwnerAddress == "" {
		cfg.Contact.OwnerAddress = cfg.Mail.User
	}
	if cfg.Contact.AckSubject == "" {
		cfg.Contact.AckSubject = "Thanks for reaching out!"
	}
	if cfg.Contact.BreakerTimeoutSeconds == 0 {
		cfg.Contact.BreakerTimeoutSeconds = 30
	}
	if cfg.Visit.BotPolicy == "" {
		cfg.Visit.BotPolicy = "trust"
	}
	if cfg.Visit.QueueName == "" {
		cfg.Visit.QueueName = "visit.recorded.q"
	}
	if cfg.RateLimit.Rate == 0 {
		cfg.RateLimit.Rate = 0.2
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}
}
