package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"scholarhub/infrastructure/ws"
	"scholarhub/internal/ratelimit"
)

// Config is the root configuration for a hub instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Hub       HubConfig       `yaml:"hub"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	Prefix         string   `yaml:"prefix"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HubConfig holds the hub tunables.
type HubConfig struct {
	QueueDepth     int           `yaml:"queue_depth"`
	MaxConnections int           `yaml:"max_connections"`
	AllowBroadcast bool          `yaml:"allow_broadcast"`
	IDPattern      string        `yaml:"id_pattern"`
	OverflowPolicy string        `yaml:"overflow_policy"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	DrainGrace     time.Duration `yaml:"drain_grace"`
	MessageBurst   int           `yaml:"message_burst"`
	MessageRefill  time.Duration `yaml:"message_refill"`
}

// RateLimitConfig bounds connection attempts per client IP.
type RateLimitConfig struct {
	ConnectionLimit  int           `yaml:"connection_limit"`
	ConnectionWindow time.Duration `yaml:"connection_window"`
}

// RedisConfig enables the Redis-backed connection limiter when set.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// MongoConfig enables the presence repository when set.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AuthConfig guards the control endpoints. Both fields optional; with
// neither set the control surface is open (development only).
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	APIKeyHash string `yaml:"api_key_hash"`
}

// Default returns the reference configuration.
func Default() *Config {
	hubDef := ws.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:           ":8080",
			Prefix:         "/api",
			AllowedOrigins: []string{"*"},
		},
		Hub: HubConfig{
			QueueDepth:     hubDef.QueueDepth,
			MaxConnections: hubDef.MaxConnections,
			AllowBroadcast: hubDef.AllowBroadcast,
			IDPattern:      `^[0-9]+$`,
			OverflowPolicy: string(hubDef.Overflow),
			MaxMessageSize: hubDef.MaxMessageSize,
			WriteTimeout:   hubDef.WriteTimeout,
			PongTimeout:    hubDef.PongTimeout,
			PingInterval:   hubDef.PingInterval,
			DrainGrace:     hubDef.DrainGrace,
			MessageBurst:   hubDef.MessageBurst,
			MessageRefill:  hubDef.MessageRefill,
		},
		RateLimit: RateLimitConfig{
			ConnectionLimit:  30,
			ConnectionWindow: time.Minute,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Server.Prefix == "" {
		c.Server.Prefix = def.Server.Prefix
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if c.Hub.QueueDepth <= 0 {
		c.Hub.QueueDepth = def.Hub.QueueDepth
	}
	if c.Hub.IDPattern == "" {
		c.Hub.IDPattern = def.Hub.IDPattern
	}
	if c.Hub.OverflowPolicy == "" {
		c.Hub.OverflowPolicy = def.Hub.OverflowPolicy
	}
	if c.Hub.MaxMessageSize <= 0 {
		c.Hub.MaxMessageSize = def.Hub.MaxMessageSize
	}
	if c.Hub.WriteTimeout <= 0 {
		c.Hub.WriteTimeout = def.Hub.WriteTimeout
	}
	if c.Hub.PongTimeout <= 0 {
		c.Hub.PongTimeout = def.Hub.PongTimeout
	}
	if c.Hub.PingInterval <= 0 {
		c.Hub.PingInterval = def.Hub.PingInterval
	}
	if c.Hub.DrainGrace <= 0 {
		c.Hub.DrainGrace = def.Hub.DrainGrace
	}
	if c.Hub.MessageRefill <= 0 {
		c.Hub.MessageRefill = def.Hub.MessageRefill
	}
	if c.RateLimit.ConnectionLimit <= 0 {
		c.RateLimit.ConnectionLimit = def.RateLimit.ConnectionLimit
	}
	if c.RateLimit.ConnectionWindow <= 0 {
		c.RateLimit.ConnectionWindow = def.RateLimit.ConnectionWindow
	}
}

// Validate rejects configurations the hub cannot run with.
func (c *Config) Validate() error {
	if c.Server.Prefix == "" || c.Server.Prefix[0] != '/' {
		return fmt.Errorf("server.prefix must start with '/': %q", c.Server.Prefix)
	}
	if _, err := regexp.Compile(c.Hub.IDPattern); err != nil {
		return fmt.Errorf("hub.id_pattern: %w", err)
	}
	switch ws.OverflowPolicy(c.Hub.OverflowPolicy) {
	case ws.OverflowDropOldest, ws.OverflowClose:
	default:
		return fmt.Errorf("hub.overflow_policy must be %q or %q: %q",
			ws.OverflowDropOldest, ws.OverflowClose, c.Hub.OverflowPolicy)
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database required when mongo.uri is set")
	}
	return nil
}

// HubConfig converts the file representation into the hub's runtime
// configuration. Call Validate first; an invalid pattern fails here too.
func (c *Config) HubConfig() (ws.Config, error) {
	pattern, err := regexp.Compile(c.Hub.IDPattern)
	if err != nil {
		return ws.Config{}, fmt.Errorf("hub.id_pattern: %w", err)
	}
	return ws.Config{
		QueueDepth:     c.Hub.QueueDepth,
		MaxConnections: c.Hub.MaxConnections,
		AllowBroadcast: c.Hub.AllowBroadcast,
		IDPattern:      pattern,
		Overflow:       ws.OverflowPolicy(c.Hub.OverflowPolicy),
		MaxMessageSize: c.Hub.MaxMessageSize,
		WriteTimeout:   c.Hub.WriteTimeout,
		PongTimeout:    c.Hub.PongTimeout,
		PingInterval:   c.Hub.PingInterval,
		DrainGrace:     c.Hub.DrainGrace,
		MessageBurst:   c.Hub.MessageBurst,
		MessageRefill:  c.Hub.MessageRefill,
	}, nil
}

// RateLimitConfig converts the connection limiter settings.
func (c *Config) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		Limit:  c.RateLimit.ConnectionLimit,
		Window: c.RateLimit.ConnectionWindow,
	}
}

// applyEnv overrides file values from the environment so a bare
// deployment can run without a config file.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = ":" + port
	}
	if prefix := os.Getenv("WS_PREFIX"); prefix != "" {
		c.Server.Prefix = prefix
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		c.Mongo.URI = uri
	}
	if name := os.Getenv("MONGODB_DATABASE"); name != "" {
		c.Mongo.Database = name
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if hash := os.Getenv("CONTROL_API_KEY_HASH"); hash != "" {
		c.Auth.APIKeyHash = hash
	}
	if cap := os.Getenv("MAX_CONNECTIONS"); cap != "" {
		if parsed, err := strconv.Atoi(cap); err == nil && parsed > 0 {
			c.Hub.MaxConnections = parsed
		}
	}
}
