// Command modelcon 把模型预测文件转换为推荐记录并写入在线/评估存储。
//
//	modelcon --input_dir=/data/run --app_id=1 --algo_id=3 --num_recommendations=20 \
//	         --unseen_only --sink.type=redis
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rushteam/modelcon/config"
	"github.com/rushteam/modelcon/job"
	"github.com/rushteam/modelcon/logger"
	"github.com/rushteam/modelcon/metrics"
	"github.com/rushteam/modelcon/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("modelcon", pflag.ContinueOnError)
	config.Flags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := store.NewSink(ctx, cfg.Sink)
	if err != nil {
		log.Error("failed to create sink", zap.String("type", cfg.Sink.Type), zap.Error(err))
		return 1
	}

	m := metrics.New(prometheus.Labels{
		"app_id":  strconv.Itoa(cfg.EffectiveAppID()),
		"algo_id": strconv.Itoa(cfg.AlgoID),
	})
	runner := job.New(cfg, sink, job.WithLogger(log), job.WithMetrics(m))
	_, runErr := runner.Run(ctx)

	if err := sink.Close(); err != nil {
		log.Error("failed to close sink", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}
