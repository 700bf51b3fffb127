// Package config 定义任务配置、加载逻辑以及 Pipeline Node 的构建工厂。
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// 输入文件名（相对于 InputDir）
const (
	UsersIndexFile = "usersIndex.tsv"
	ItemsIndexFile = "itemsIndex.tsv"
	RatingsFile    = "ratings.csv"
	PredictedFile  = "predicted.tsv"
)

// Sink 类型
const (
	SinkMemory   = "memory"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
	SinkFile     = "file"
)

// Config 是任务配置。所有组件在构造时显式接收它（或其子结构），不存在全局配置对象。
type Config struct {
	InputDir string `mapstructure:"input_dir"`
	AppID    int    `mapstructure:"app_id"`
	AlgoID   int    `mapstructure:"algo_id"`

	// EvalID 非空时进入离线评估模式：写入评估存储，并以 EvalID 作为生效的 app id
	EvalID *int `mapstructure:"eval_id"`

	ModelSet   bool `mapstructure:"model_set"`
	UnseenOnly bool `mapstructure:"unseen_only"`

	// NumRecommendations 为每个用户保留的最大推荐数，<= 0 表示不限制
	NumRecommendations int `mapstructure:"num_recommendations"`

	// 描述上游打分模式，不影响本任务的过滤/排序逻辑
	BooleanData      bool `mapstructure:"boolean_data"`
	ImplicitFeedback bool `mapstructure:"implicit_feedback"`

	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`

	Index    IndexConfig    `mapstructure:"index"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type IndexConfig struct {
	// AllowDuplicates 为 true 时重复索引后者覆盖前者，否则视为格式错误
	AllowDuplicates bool `mapstructure:"allow_duplicates"`
}

type PipelineConfig struct {
	// File 是 Pipeline 描述文件（YAML），为空时使用默认链路
	File string `mapstructure:"file"`

	// ItemFilter 是附加的 CEL 物品过滤表达式，为空时不启用
	ItemFilter string `mapstructure:"item_filter"`
}

type SinkConfig struct {
	Type     string         `mapstructure:"type"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	File     FileConfig     `mapstructure:"file"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // 秒，0 表示不过期
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode"`
	Table          string `mapstructure:"table"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Textfile 非空时任务结束后把指标写成 Prometheus textfile
	Textfile string `mapstructure:"textfile"`
}

// Default 返回带默认值的配置。
func Default() *Config {
	return &Config{
		Workers:   runtime.NumCPU(),
		BatchSize: 256,
		Sink: SinkConfig{
			Type: SinkMemory,
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "itemrec",
			},
			Postgres: PostgresConfig{
				Host:           "localhost",
				Port:           5432,
				SSLMode:        "disable",
				Table:          "itemrec_scores",
				MaxConnections: 4,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// EffectiveAppID 返回生效的 app id：评估模式下为 EvalID。
func (c *Config) EffectiveAppID() int {
	if c.EvalID != nil {
		return *c.EvalID
	}
	return c.AppID
}

// Training 返回是否处于离线评估模式。
func (c *Config) Training() bool {
	return c.EvalID != nil
}

func (c *Config) path(name string) string {
	return filepath.Join(c.InputDir, name)
}

// UsersPath 返回用户索引文件路径。
func (c *Config) UsersPath() string { return c.path(UsersIndexFile) }

// ItemsPath 返回物品索引文件路径。
func (c *Config) ItemsPath() string { return c.path(ItemsIndexFile) }

// RatingsPath 返回评分文件路径；未开启 unseen 过滤时返回空串。
func (c *Config) RatingsPath() string {
	if !c.UnseenOnly {
		return ""
	}
	return c.path(RatingsFile)
}

// PredictedPath 返回预测文件路径。
func (c *Config) PredictedPath() string { return c.path(PredictedFile) }

// Validate 校验配置。
func (c *Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	switch c.Sink.Type {
	case SinkMemory:
	case SinkRedis:
		if c.Sink.Redis.Address == "" {
			errs = append(errs, errors.New("sink.redis.address is required"))
		}
	case SinkPostgres:
		if c.Sink.Postgres.Database == "" {
			errs = append(errs, errors.New("sink.postgres.database is required"))
		}
	case SinkFile:
		if c.Sink.File.Path == "" {
			errs = append(errs, errors.New("sink.file.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink type %q", c.Sink.Type))
	}
	return errors.Join(errs...)
}
