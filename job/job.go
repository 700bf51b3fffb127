// Package job 把上游预测文件转换为推荐记录并写入 Sink。
//
// 任务分两个阶段：
//  1. 并发加载用户索引、物品索引与（可选的）已评分集合，构建只读查找表；
//  2. 流式读取预测文件，按批并发处理，并按输入顺序写出。
//
// 任意一行出现格式/查找/断言错误即中止任务，之后的行不会产生任何输出。
package job

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rushteam/modelcon/config"
	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/index"
	"github.com/rushteam/modelcon/mapper"
	"github.com/rushteam/modelcon/metrics"
	"github.com/rushteam/modelcon/predict"
)

// Summary 是一次任务运行的统计。
type Summary struct {
	RunID    string
	Users    int
	Items    int
	Seen     int
	Lines    int
	Records  int
	Pipeline []string
	Duration time.Duration
}

// Runner 执行一次转换任务。Runner 不持有全局状态，可在测试中用伪造的输入与 Sink 构造。
type Runner struct {
	cfg     *config.Config
	sink    core.RecommendationSink
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option 配置 Runner。
type Option func(*Runner)

// WithLogger 设置日志。
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics 设置指标集合。
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock 设置时间源，表达式过滤中的 now 取自这里。
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New 创建 Runner。sink 的生命周期由调用方管理。
func New(cfg *config.Config, sink core.RecommendationSink, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		sink:   sink,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New(nil)
	}
	return r
}

// Metrics 返回本次任务的指标集合。
func (r *Runner) Metrics() *metrics.Metrics { return r.metrics }

// Run 执行任务，返回运行统计；出错时 Summary 仍包含出错前的进度。
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := r.logger.With(
		zap.String("run_id", summary.RunID),
		zap.Int("app_id", r.cfg.EffectiveAppID()),
		zap.Int("algo_id", r.cfg.AlgoID),
	)
	log.Info("job started",
		zap.String("input_dir", r.cfg.InputDir),
		zap.Bool("training", r.cfg.Training()),
		zap.Bool("model_set", r.cfg.ModelSet),
		zap.Bool("unseen_only", r.cfg.UnseenOnly),
		zap.Int("num_recommendations", r.cfg.NumRecommendations),
		zap.Bool("boolean_data", r.cfg.BooleanData),
		zap.Bool("implicit_feedback", r.cfg.ImplicitFeedback),
		zap.Int("workers", r.cfg.Workers),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.String("sink", r.sink.Name()),
	)

	err := r.run(ctx, log, summary)
	summary.Duration = time.Since(started)
	if err != nil {
		r.metrics.RecordError(err)
		log.Error("job failed",
			zap.Int("lines", summary.Lines),
			zap.Int("records", summary.Records),
			zap.Duration("duration", summary.Duration),
			zap.Error(err),
		)
		return summary, err
	}

	r.metrics.MarkSuccess()
	log.Info("job finished",
		zap.Int("lines", summary.Lines),
		zap.Int("records", summary.Records),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, summary *Summary) error {
	phase := time.Now()
	tables, err := index.LoadTables(ctx, index.Paths{
		Users:   r.cfg.UsersPath(),
		Items:   r.cfg.ItemsPath(),
		Ratings: r.cfg.RatingsPath(),
	}, index.Options{AllowDuplicates: r.cfg.Index.AllowDuplicates})
	if err != nil {
		return err
	}
	r.metrics.ObservePhase("load", phase)
	summary.Users = tables.Users.Len()
	summary.Items = tables.Items.Len()
	summary.Seen = tables.Seen.Len()
	log.Info("lookup tables loaded",
		zap.Int("users", summary.Users),
		zap.Int("items", summary.Items),
		zap.Int("seen", summary.Seen),
		zap.Duration("elapsed", time.Since(phase)),
	)

	p, err := config.BuildPipeline(r.cfg, config.Deps{
		Items:    tables.Items,
		Seen:     tables.Seen,
		Observer: r.metrics,
	})
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	summary.Pipeline = p.Names()
	log.Debug("pipeline built", zap.Strings("nodes", summary.Pipeline))

	phase = time.Now()
	err = r.stream(ctx, log, &streamer{
		pipeline: p,
		mapper: mapper.New(tables.Users, tables.Items, mapper.Tags{
			AppID:    r.cfg.EffectiveAppID(),
			AlgoID:   r.cfg.AlgoID,
			ModelSet: r.cfg.ModelSet,
			Training: r.cfg.Training(),
		}),
		metrics: r.metrics,
		params: map[string]any{
			"app_id":    int64(r.cfg.EffectiveAppID()),
			"algo_id":   int64(r.cfg.AlgoID),
			"model_set": r.cfg.ModelSet,
			"training":  r.cfg.Training(),
		},
		now: r.now(),
	}, summary)
	r.metrics.ObservePhase("stream", phase)
	return err
}

func (r *Runner) stream(ctx context.Context, log *zap.Logger, s *streamer, summary *Summary) error {
	path := r.cfg.PredictedPath()
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	reader := predict.NewReader(f, path)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := reader.ReadBatch(r.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		started := time.Now()
		recs, batchErr := s.processBatch(ctx, path, batch, r.cfg.Workers)
		if err := r.write(ctx, recs); err != nil {
			return err
		}
		summary.Lines += len(recs)
		summary.Records += len(recs)
		r.metrics.LinesProcessed.Add(float64(len(recs)))
		r.metrics.RecordsWritten.Add(float64(len(recs)))
		r.metrics.BatchDuration.Observe(time.Since(started).Seconds())
		if batchErr != nil {
			return batchErr
		}

		log.Debug("batch written",
			zap.Int("first_line", batch[0].No),
			zap.Int("size", len(batch)),
			zap.Int("records", summary.Records),
		)
	}
}

// write 按顺序写出一批记录；Sink 支持批量写入时一次提交。
func (r *Runner) write(ctx context.Context, recs []*core.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	if bs, ok := r.sink.(core.BatchSink); ok {
		if err := bs.WriteBatch(ctx, recs); err != nil {
			return fmt.Errorf("%s: %w", r.sink.Name(), err)
		}
		return nil
	}
	for _, rec := range recs {
		if err := r.sink.Write(ctx, rec); err != nil {
			return fmt.Errorf("%s: %w", r.sink.Name(), err)
		}
	}
	return nil
}

