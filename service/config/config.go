/*
 * @module service/config/config
 * @description 服务配置：默认值 -> YAML配置文件(CONFIG_FILE) -> 环境变量覆盖
 * @architecture 分层架构 - 基础设施层
 * @stateFlow 启动时加载一次
 * @rules 环境变量优先级最高
 * @dependencies gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs service/init.go, main.go
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Artifacts    ArtifactsConfig    `yaml:"artifacts"`
	Redis        RedisConfig        `yaml:"redis"`
	Events       EventsConfig       `yaml:"events"`
	Reconcile    ReconcileConfig    `yaml:"reconcile"`
	PublicAccess PublicAccessConfig `yaml:"public_access"`
	LogLevel     string             `yaml:"log_level"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BaseContext string `yaml:"base_context"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, sqlite
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Schema   string `yaml:"schema"`
	TimeZone string `yaml:"time_zone"`
}

// ArtifactsConfig 迁移文件和模型描述的存放目录
type ArtifactsConfig struct {
	MigrationsDir string `yaml:"migrations_dir"`
	ModelsDir     string `yaml:"models_dir"`
}

// RedisConfig Redis配置，Host 为空表示不启用
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EventsConfig 通知通道配置，对应字段为空的通道不启用
type EventsConfig struct {
	DaprPubsubName  string   `yaml:"dapr_pubsub_name"`
	DaprTopic       string   `yaml:"dapr_topic"`
	KafkaBrokers    []string `yaml:"kafka_brokers"`
	KafkaTopic      string   `yaml:"kafka_topic"`
	MQTTBroker      string   `yaml:"mqtt_broker"`
	MQTTClientID    string   `yaml:"mqtt_client_id"`
	MQTTTopicPrefix string   `yaml:"mqtt_topic_prefix"`
	RetentionDays   int      `yaml:"retention_days"`
	CleanupCron     string   `yaml:"cleanup_cron"`
}

// ReconcileConfig 表结构对账任务配置
type ReconcileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// PublicAccessConfig 公开表单限流配置
type PublicAccessConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 80},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
			Schema:   "public",
			TimeZone: "Asia/Shanghai",
		},
		Artifacts: ArtifactsConfig{
			MigrationsDir: "data/migrations",
			ModelsDir:     "data/models",
		},
		Redis: RedisConfig{Port: 6379},
		Events: EventsConfig{
			DaprTopic:       "form-events",
			KafkaTopic:      "form-events",
			MQTTClientID:    "formbuilder-service",
			MQTTTopicPrefix: "formbuilder/forms",
			RetentionDays:   30,
			CleanupCron:     "0 0 2 * * *",
		},
		Reconcile: ReconcileConfig{
			Enabled: true,
			Cron:    "0 */5 * * * *",
		},
		PublicAccess: PublicAccessConfig{
			MaxRequests:   60,
			WindowSeconds: 60,
		},
		LogLevel: "debug",
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile 从YAML文件加载，未出现的字段保持原值
func (c *Config) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return nil
}

// ApplyEnv 环境变量覆盖
func (c *Config) ApplyEnv() {
	c.Server.Port = getEnvInt("LISTEN_PORT", c.Server.Port)
	c.Server.BaseContext = getEnvWithDefault("BASE_CONTEXT", c.Server.BaseContext)

	c.Database.Driver = getEnvWithDefault("DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnvWithDefault("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnvWithDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnvWithDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvWithDefault("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnvWithDefault("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Schema = getEnvWithDefault("DB_SCHEMA", c.Database.Schema)

	c.Artifacts.MigrationsDir = getEnvWithDefault("FORM_MIGRATIONS_DIR", c.Artifacts.MigrationsDir)
	c.Artifacts.ModelsDir = getEnvWithDefault("FORM_MODELS_DIR", c.Artifacts.ModelsDir)

	c.Redis.Host = getEnvWithDefault("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnvWithDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Events.DaprPubsubName = getEnvWithDefault("PUBSUB_NAME", c.Events.DaprPubsubName)
	c.Events.DaprTopic = getEnvWithDefault("FORM_EVENTS_TOPIC", c.Events.DaprTopic)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Events.KafkaBrokers = splitList(brokers)
	}
	c.Events.KafkaTopic = getEnvWithDefault("KAFKA_TOPIC", c.Events.KafkaTopic)
	c.Events.MQTTBroker = getEnvWithDefault("MQTT_BROKER", c.Events.MQTTBroker)
	c.Events.MQTTClientID = getEnvWithDefault("MQTT_CLIENT_ID", c.Events.MQTTClientID)
	c.Events.MQTTTopicPrefix = getEnvWithDefault("MQTT_TOPIC_PREFIX", c.Events.MQTTTopicPrefix)
	c.Events.RetentionDays = getEnvInt("EVENT_RETENTION_DAYS", c.Events.RetentionDays)
	c.Events.CleanupCron = getEnvWithDefault("EVENT_CLEANUP_CRON", c.Events.CleanupCron)

	if val := os.Getenv("RECONCILE_ENABLED"); val != "" {
		c.Reconcile.Enabled = cast.ToBool(val)
	}
	c.Reconcile.Cron = getEnvWithDefault("RECONCILE_CRON", c.Reconcile.Cron)

	c.PublicAccess.MaxRequests = getEnvInt("PUBLIC_FORM_RATE_LIMIT", c.PublicAccess.MaxRequests)
	c.PublicAccess.WindowSeconds = getEnvInt("PUBLIC_FORM_RATE_WINDOW", c.PublicAccess.WindowSeconds)

	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
}

// DSN 构建数据库连接字符串
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return d.Name
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Schema, d.TimeZone)
}

// Addr Redis地址，未配置时返回空
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := cast.ToIntE(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
