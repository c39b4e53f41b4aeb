package conf

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	SMTP          SMTPConfig          `mapstructure:"smtp"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Crypto        CryptoConfig        `mapstructure:"crypto"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DBName   string `mapstructure:"dbname"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis 配置（重试队列）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// SMTPConfig 邮件渠道的 SMTP 连接配置
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	From     string `mapstructure:"from"`
}

// RetryConfig 重试队列配置
type RetryConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// CryptoConfig 渠道凭据密封密钥。SecretKey 必须是 32 字节。
type CryptoConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	OTELEndpoint   string `mapstructure:"otel_endpoint"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
	EnableTrace    bool   `mapstructure:"enable_trace"`
	LogLevel       string `mapstructure:"log_level"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("notification-service")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetDefault("server.http_port", 8082)
	v.SetDefault("server.metrics_port", 9092)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.topic", "costwarden.events")
	v.SetDefault("kafka.group_id", "notification-service")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("retry.poll_interval", "5s")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// 从环境变量覆盖敏感配置
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if key := os.Getenv("CHANNEL_SECRET_KEY"); key != "" {
		config.Crypto.SecretKey = key
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		config.Observability.OTELEndpoint = endpoint
	}

	return &config, nil
}
