package job

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/mapper"
	"github.com/rushteam/modelcon/metrics"
	"github.com/rushteam/modelcon/pipeline"
	"github.com/rushteam/modelcon/predict"
)

// streamer 处理预测行。所有字段在任务期间只读，可被多个 worker 共享。
type streamer struct {
	pipeline *pipeline.Pipeline
	mapper   *mapper.Mapper
	metrics  *metrics.Metrics
	params   map[string]any
	now      time.Time
}

// processBatch 并发处理一批行，返回按输入顺序排列的记录。
//
// 某行出错时返回该行之前（按输入顺序）全部成功的记录以及该行的错误；
// 同批中其后的行即使处理成功也会被丢弃。
func (s *streamer) processBatch(ctx context.Context, source string, batch []predict.Line, workers int) ([]*core.Recommendation, error) {
	var (
		recs = make([]*core.Recommendation, len(batch))
		errs = make([]error, len(batch))
		eg   errgroup.Group
	)
	if workers > 0 {
		eg.SetLimit(workers)
	}

	for i, line := range batch {
		i, line := i, line
		eg.Go(func() error {
			rec, err := s.processLine(ctx, line)
			if err != nil {
				errs[i] = core.WithPosition(err, source, line.No)
				return nil
			}
			recs[i] = rec
			return nil
		})
	}
	_ = eg.Wait()

	for i, err := range errs {
		if err != nil {
			return recs[:i], err
		}
	}
	return recs, nil
}

// processLine 解析 -> 过滤/排序/截断 -> 映射。
func (s *streamer) processLine(ctx context.Context, line predict.Line) (*core.Recommendation, error) {
	pred, err := predict.ParseLine(line.Text)
	if err != nil {
		return nil, err
	}
	s.metrics.CandidatesIn.Add(float64(len(pred.Candidates)))

	rctx := core.NewRecommendContext(pred.UserIndex, s.now)
	for k, v := range s.params {
		rctx.Params[k] = v
	}

	ranked, err := s.pipeline.Run(ctx, rctx, pred.Candidates)
	if err != nil {
		return nil, err
	}

	rec, err := s.mapper.Map(pred.UserIndex, ranked)
	if err != nil {
		if je := core.GetJobError(err); je != nil {
			je.Content = line.Text
		}
		return nil, err
	}
	s.metrics.CandidatesOut.Add(float64(len(rec.Items)))
	return rec, nil
}
