package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量前缀，例如 MODELCON_APP_ID、MODELCON_SINK_REDIS_ADDRESS。
const EnvPrefix = "MODELCON"

// Flags 注册命令行参数；参数名与配置 key 一致，优先级最高。
func Flags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("input_dir", "", "directory holding usersIndex.tsv, itemsIndex.tsv, ratings.csv and predicted.tsv")
	fs.Int("app_id", 0, "target application id")
	fs.Int("algo_id", 0, "algorithm id that produced the predictions")
	fs.Int("eval_id", 0, "offline evaluation id; when set, output goes to the training store")
	fs.Bool("model_set", false, "model set the records belong to")
	fs.Bool("unseen_only", false, "drop items the user has already rated (reads ratings.csv)")
	fs.Int("num_recommendations", 0, "max recommendations per user, 0 for unbounded")
	fs.Bool("boolean_data", false, "upstream scores come from boolean data")
	fs.Bool("implicit_feedback", false, "upstream scores come from implicit feedback")
	fs.Int("workers", d.Workers, "number of concurrent workers in the streaming phase")
	fs.Int("batch_size", d.BatchSize, "prediction lines processed per batch")
	fs.Bool("index.allow_duplicates", false, "let later duplicate index lines overwrite earlier ones")
	fs.String("pipeline.file", "", "YAML pipeline description")
	fs.String("pipeline.item_filter", "", "CEL expression over item metadata; false drops the item")
	fs.String("sink.type", d.Sink.Type, "sink type: memory, redis, postgres or file")
	fs.String("sink.file.path", "", "output path for the file sink")
	fs.String("logging.level", d.Logging.Level, "log level: debug, info, warn, error")
	fs.String("logging.format", d.Logging.Format, "log format: json or console")
	fs.String("metrics.textfile", "", "write Prometheus metrics to this textfile at exit")
}

// Load 按 默认值 < 配置文件 < 环境变量 < 命令行参数 的优先级加载配置。
// 使用独立的 viper 实例，不修改全局状态。
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// eval_id 是可选整数：只有显式设置时才进入评估模式
	cfg.EvalID = nil
	if v.IsSet("eval_id") {
		id := v.GetInt("eval_id")
		cfg.EvalID = &id
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("app_id", d.AppID)
	v.SetDefault("algo_id", d.AlgoID)
	v.SetDefault("model_set", d.ModelSet)
	v.SetDefault("unseen_only", d.UnseenOnly)
	v.SetDefault("num_recommendations", d.NumRecommendations)
	v.SetDefault("boolean_data", d.BooleanData)
	v.SetDefault("implicit_feedback", d.ImplicitFeedback)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("index.allow_duplicates", d.Index.AllowDuplicates)
	v.SetDefault("pipeline.file", d.Pipeline.File)
	v.SetDefault("pipeline.item_filter", d.Pipeline.ItemFilter)
	v.SetDefault("sink.type", d.Sink.Type)
	v.SetDefault("sink.redis.address", d.Sink.Redis.Address)
	v.SetDefault("sink.redis.password", d.Sink.Redis.Password)
	v.SetDefault("sink.redis.db", d.Sink.Redis.DB)
	v.SetDefault("sink.redis.key_prefix", d.Sink.Redis.KeyPrefix)
	v.SetDefault("sink.redis.ttl", d.Sink.Redis.TTL)
	v.SetDefault("sink.postgres.host", d.Sink.Postgres.Host)
	v.SetDefault("sink.postgres.port", d.Sink.Postgres.Port)
	v.SetDefault("sink.postgres.database", d.Sink.Postgres.Database)
	v.SetDefault("sink.postgres.user", d.Sink.Postgres.User)
	v.SetDefault("sink.postgres.password", d.Sink.Postgres.Password)
	v.SetDefault("sink.postgres.sslmode", d.Sink.Postgres.SSLMode)
	v.SetDefault("sink.postgres.table", d.Sink.Postgres.Table)
	v.SetDefault("sink.postgres.max_connections", d.Sink.Postgres.MaxConnections)
	v.SetDefault("sink.file.path", d.Sink.File.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}
