package config

import (
	"os"
	"strconv"
	"strings"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Enabled reports whether a database has been configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

func (c MQConfig) Enabled() bool {
	return c.URL != ""
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ServerConfig holds the HTTP listener and the static asset locations.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	Debug          bool     `yaml:"debug"`
	StaticDir      string   `yaml:"static_dir"`
	ResumePath     string   `yaml:"resume_path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustedProxies may set X-Forwarded-For; empty means the peer address is the client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// MailConfig is the account the dispatcher authenticates with. User and
// Password are never committed; they come from secrets.env or the environment.
type MailConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// RelayConfig identifies the third-party email relay used when the browser
// sends the contact mails itself. All values are public identifiers.
type RelayConfig struct {
	ServiceID         string `yaml:"service_id"`
	TemplateID        string `yaml:"template_id"`
	ConfirmTemplateID string `yaml:"confirm_template_id"`
	PublicKey         string `yaml:"public_key"`
}

// RateLimitConfig is a token bucket per client IP.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}
	if path := os.Getenv("RESUME_PATH"); path != "" {
		cfg.ResumePath = path
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = splitList(proxies)
	}
}

// OverrideMailFromEnv keeps the GMAIL_USER / GMAIL_PASS names the site has
// always been deployed with.
func OverrideMailFromEnv(cfg *MailConfig) {
	if host := os.Getenv("MAIL_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("MAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("GMAIL_USER"); user != "" {
		cfg.User = user
	}
	if pass := os.Getenv("GMAIL_PASS"); pass != "" {
		cfg.Password = pass
	}
}

// OverrideRelayFromEnv 从环境变量覆盖邮件中继配置
func OverrideRelayFromEnv(cfg *RelayConfig) {
	if v := os.Getenv("RELAY_SERVICE_ID"); v != "" {
		cfg.ServiceID = v
	}
	if v := os.Getenv("RELAY_TEMPLATE_ID"); v != "" {
		cfg.TemplateID = v
	}
	if v := os.Getenv("RELAY_CONFIRM_TEMPLATE_ID"); v != "" {
		cfg.ConfirmTemplateID = v
	}
	if v := os.Getenv("RELAY_PUBLIC_KEY"); v != "" {
		cfg.PublicKey = v
	}
}

// GetBoolEnv returns def unless key is set to a value strconv can parse.
func GetBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
