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
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Router        RouterConfig        `mapstructure:"router"`
	Enforcement   EnforcementConfig   `mapstructure:"enforcement"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
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
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DBName          string        `mapstructure:"dbname"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RouterConfig 模型路由服务配置
type RouterConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EnforcementConfig 准入失败策略配置。
// budget_failure_mode 默认 open，policy_failure_mode 默认 closed。
type EnforcementConfig struct {
	BudgetFailureMode string `mapstructure:"budget_failure_mode"`
	PolicyFailureMode string `mapstructure:"policy_failure_mode"`
}

// OutboxConfig 发件箱轮询配置
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	OTELEndpoint   string `mapstructure:"otel_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
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
		v.SetConfigName("admission-gateway")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("enforcement.budget_failure_mode", "open")
	v.SetDefault("enforcement.policy_failure_mode", "closed")
	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("kafka.topic", "costwarden.events")
	v.SetDefault("router.timeout", "10s")

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
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		config.Observability.OTELEndpoint = endpoint
	}

	return &config, nil
}
