package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Bootstrap BootstrapConfig
}

type ServerConfig struct {
	Port       string
	AppName    string        `mapstructure:"app_name"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	LoginRate  float64       `mapstructure:"login_rate"`  // 每秒允许的登录尝试次数 (per client IP)
	LoginBurst int           `mapstructure:"login_burst"` // 突发上限
}

type DatabaseConfig struct {
	Driver      string // "postgres" or "sqlite"
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	TimeZone    string
	TablePrefix string `mapstructure:"table_prefix"`
	Path        string // sqlite file path, ":memory:" allowed
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string // optional, for S3-compatible stores (MinIO)
}

// BootstrapConfig describes the administrator created on first start when no admin exists.
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	AdminEmail    string `mapstructure:"admin_email"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.app_name", "LMS")
	v.SetDefault("server.token_ttl", 72*time.Hour)
	v.SetDefault("server.login_rate", 1.0)
	v.SetDefault("server.login_burst", 5)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.path", "lms.db")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.region", "us-east-1")

	// 没有默认值的键也要注册，否则 AutomaticEnv 的环境变量不会参与 Unmarshal
	for _, key := range []string{
		"server.jwt_secret",
		"database.user", "database.password", "database.dbname", "database.table_prefix",
		"redis.password",
		"storage.bucket", "storage.access_key_id", "storage.secret_access_key", "storage.endpoint",
		"bootstrap.admin_username", "bootstrap.admin_password", "bootstrap.admin_email",
	} {
		v.SetDefault(key, "")
	}
}

func LoadConfig() *Config {
	// .env 只用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")        // 在当前目录中查找配置
	v.AddConfigPath("./config") // 在 config 目录中查找配置

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Error reading config file, %s", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	if config.Server.JWTSecret == "" {
		log.Println("Warning: server.jwt_secret is not set, using an insecure development secret")
		config.Server.JWTSecret = "lms-dev-secret"
	}

	return &config
}
