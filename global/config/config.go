package config

import (
	"os"
	"time"

	"LinkChat/logger"
	"LinkChat/tools/ids"

	"gopkg.in/yaml.v3"
)

type MongoConfig struct {
	Uri         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize int    `yaml:"max_pool_size"`
	MaxRetry    int    `yaml:"max_retry"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JwtConfig struct {
	Secret     string `yaml:"secret"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

func (c JwtConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type MediaConfig struct {
	Dir     string `yaml:"dir"`      // local upload directory
	BaseURL string `yaml:"base_url"` // prefix for stored image URLs
}

type AppConfig struct {
	NodeId   string      `yaml:"node_id"`
	NodeNum  int64       `yaml:"node_num"` // snowflake node (0~1023)
	Port     int         `yaml:"port"`
	SendQLen int         `yaml:"send_queue_len"` // per-connection outbound queue
	Mongo    MongoConfig `yaml:"mongo"`
	Redis    RedisConfig `yaml:"redis"`
	Jwt      JwtConfig   `yaml:"jwt"`
	Media    MediaConfig `yaml:"media"`
}

var Global = defaults()

func defaults() AppConfig {
	return AppConfig{
		NodeId:   "gateway_1",
		NodeNum:  1,
		Port:     8080,
		SendQLen: 64,
		Mongo: MongoConfig{
			Uri:         "mongodb://localhost:27017",
			Database:    "linkchat",
			MaxPoolSize: 20,
			MaxRetry:    3,
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379", DB: 0, PoolSize: 10},
		Jwt:   JwtConfig{Secret: "dev-only-secret-change-me", TTLMinutes: 24 * 60},
		Media: MediaConfig{Dir: "./media", BaseURL: "/media"},
	}
}

// Load overlays the yaml file (if present) and env overrides onto the defaults.
func Load(path string) error {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(b, &Global); err != nil {
			return err
		}
	}
	if v := os.Getenv("LINKCHAT_MONGO_URI"); v != "" {
		Global.Mongo.Uri = v
	}
	if v := os.Getenv("LINKCHAT_REDIS_ADDR"); v != "" {
		Global.Redis.Addr = v
	}
	if v := os.Getenv("LINKCHAT_JWT_SECRET"); v != "" {
		Global.Jwt.Secret = v
	}
	return nil
}

func GetJwtSecret() []byte {
	return []byte(Global.Jwt.Secret)
}

func ConfigIds() {
	logger.Infof("configuring id generation node=%d", Global.NodeNum)
	ids.SetNodeID(Global.NodeNum)
}
