package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rushteam/modelcon/config"
	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/store"
)

const (
	usersTSV = "1\tu1\n2\tu2\n3\tu3\n"
	itemsTSV = "10\ti10\ttypeA\t0\t100\n20\ti20\ttypeB\t0\t100\n"
)

// collectSink 按调用顺序收集写入的记录。
type collectSink struct {
	mu   sync.Mutex
	recs []*core.Recommendation
}

func (s *collectSink) Name() string { return "collect" }

func (s *collectSink) Write(_ context.Context, rec *core.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *collectSink) Close() error { return nil }

func (s *collectSink) userIDs() []string {
	ids := make([]string, len(s.recs))
	for i, r := range s.recs {
		ids[i] = r.UserID
	}
	return ids
}

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.InputDir = dir
	cfg.AppID = 1
	cfg.AlgoID = 2
	cfg.Workers = 4
	cfg.BatchSize = 2
	return cfg
}

func run(t *testing.T, cfg *config.Config, sink core.RecommendationSink) (*Summary, error) {
	t.Helper()
	r := New(cfg, sink, WithLogger(zaptest.NewLogger(t)))
	return r.Run(context.Background())
}

func TestRun_TopN(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	cfg := newConfig(dir)
	cfg.NumRecommendations = 1

	sink := &collectSink{}
	summary, err := run(t, cfg, sink)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, []string{"filter.node", "rank.score", "rerank.topn"}, summary.Pipeline)

	require.Len(t, sink.recs, 1)
	assert.Equal(t, &core.Recommendation{
		UserID: "u1",
		Items:  []core.RankedItem{{ItemID: "i20", Score: 5.0, Types: []string{"typeB"}}},
		AppID:  1,
		AlgoID: 2,
	}, sink.recs[0])
}

func TestRun_UnseenOnly(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.RatingsFile:    "1,10,4.0\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	cfg := newConfig(dir)
	cfg.UnseenOnly = true

	sink := &collectSink{}
	r := New(cfg, sink, WithLogger(zaptest.NewLogger(t)))
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.recs, 1)
	assert.Equal(t, []string{"i20"}, sink.recs[0].ItemIDs())
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics().CandidatesFiltered.WithLabelValues("filter.unseen")))
}

func TestRun_SeenIgnoredWhenDisabled(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.RatingsFile:    "not,a,rating\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	sink := &collectSink{}
	_, err := run(t, newConfig(dir), sink)
	require.NoError(t, err)
	require.Len(t, sink.recs, 1)
	assert.Equal(t, []string{"i20", "i10"}, sink.recs[0].ItemIDs())
}

func TestRun_UnknownItemExcluded(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[99:4.0]\n2\t[99:1.0,10:0.5]\n",
	})
	sink := &collectSink{}
	_, err := run(t, newConfig(dir), sink)
	require.NoError(t, err)

	require.Len(t, sink.recs, 2)
	assert.Equal(t, "u1", sink.recs[0].UserID)
	assert.NotNil(t, sink.recs[0].Items)
	assert.Empty(t, sink.recs[0].Items)
	assert.Equal(t, []string{"i10"}, sink.recs[1].ItemIDs())
}

func TestRun_UnknownUserAborts(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:1.0]\n2\t[10:1.0]\n5\t[10:1.0]\n3\t[10:1.0]\n1\t[20:1.0]\n",
	})
	cfg := newConfig(dir)
	cfg.BatchSize = 4

	sink := &collectSink{}
	r := New(cfg, sink, WithLogger(zaptest.NewLogger(t)))
	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsLookupError(err))

	je := core.GetJobError(err)
	require.NotNil(t, je)
	assert.Equal(t, 3, je.Line)
	assert.Equal(t, "5\t[10:1.0]", je.Content)
	assert.Equal(t, filepath.Join(dir, config.PredictedFile), je.Source)

	assert.Equal(t, []string{"u1", "u2"}, sink.userIDs())
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics().JobErrors.WithLabelValues("lookup")))
}

func TestRun_ParseErrorAborts(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:1.0]\n\n2\t[10:oops]\n3\t[10:1.0]\n",
	})
	sink := &collectSink{}
	_, err := run(t, newConfig(dir), sink)
	require.Error(t, err)
	assert.True(t, core.IsAssertionError(err))
	assert.Equal(t, 3, core.GetJobError(err).Line)
	assert.Equal(t, []string{"u1"}, sink.userIDs())
}

func TestRun_PreservesInputOrder(t *testing.T) {
	var (
		users strings.Builder
		preds strings.Builder
		want  []string
	)
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&users, "%d\tu%d\n", i, i)
		fmt.Fprintf(&preds, "%d\t[10:%d.0,20:1.5]\n", i, i%3)
		want = append(want, fmt.Sprintf("u%d", i))
	}
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: users.String(),
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  preds.String(),
	})
	cfg := newConfig(dir)
	cfg.Workers = 8
	cfg.BatchSize = 16

	sink := &collectSink{}
	summary, err := run(t, cfg, sink)
	require.NoError(t, err)
	assert.Equal(t, 200, summary.Records)
	assert.Equal(t, want, sink.userIDs())

	assert.Equal(t, []string{"i20", "i10"}, sink.recs[0].ItemIDs())
	assert.Equal(t, []string{"i20", "i10"}, sink.recs[1].ItemIDs())
	assert.Equal(t, []string{"i10", "i20"}, sink.recs[2].ItemIDs())
}

func TestRun_TiesKeepParseOrder(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[20:2.5,10:2.5]\n2\t[10:2.5,20:2.5]\n",
	})
	sink := &collectSink{}
	_, err := run(t, newConfig(dir), sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"i20", "i10"}, sink.recs[0].ItemIDs())
	assert.Equal(t, []string{"i10", "i20"}, sink.recs[1].ItemIDs())
}

func TestRun_EvalMode(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	cfg := newConfig(dir)
	evalID := 42
	cfg.EvalID = &evalID
	cfg.ModelSet = true

	kv := store.NewKVSink(store.NewMemoryStore(), "itemrec", 0)
	defer kv.Close()

	_, err := run(t, cfg, kv)
	require.NoError(t, err)

	rec, err := kv.Read(context.Background(), 42, 2, true, true, "u1")
	require.NoError(t, err)
	assert.True(t, rec.Training)
	assert.Equal(t, 42, rec.AppID)
	assert.Equal(t, []string{"i20", "i10"}, rec.ItemIDs())

	_, err = kv.Read(context.Background(), 1, 2, true, false, "u1")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestRun_ItemFilterExpression(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	cfg := newConfig(dir)
	cfg.Pipeline.ItemFilter = `"typeA" in item.types`

	sink := &collectSink{}
	_, err := run(t, cfg, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"i10"}, sink.recs[0].ItemIDs())
}

func TestRun_PipelineFile(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV + "30\ti30\ttypeC\t0\t100\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0,30:4.0,99:9.0]\n",
		"pipeline.yaml": `pipeline:
  name: itemrec
  nodes:
    - type: filter
      config:
        filters:
          - type: expr
            expr: "item.score > 3.5"
    - type: rank.score
    - type: rerank.topn
      config:
        n: 2
`,
	})
	cfg := newConfig(dir)
	cfg.Pipeline.File = filepath.Join(dir, "pipeline.yaml")

	sink := &collectSink{}
	summary, err := run(t, cfg, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"filter.node", "filter.node", "rank.score", "rerank.topn"}, summary.Pipeline)
	assert.Equal(t, []string{"i20", "i30"}, sink.recs[0].ItemIDs())
}

func TestRun_PipelineFileUnseenAndLimit(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.RatingsFile:    "1,10,4.0\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n2\t[10:3.0,20:5.0]\n",
		"pipeline.yaml":       "pipeline:\n  nodes:\n    - type: rank.score\n",
	})
	cfg := newConfig(dir)
	cfg.UnseenOnly = true
	cfg.NumRecommendations = 1
	cfg.Pipeline.File = filepath.Join(dir, "pipeline.yaml")

	sink := &collectSink{}
	_, err := run(t, cfg, sink)
	require.NoError(t, err)
	require.Len(t, sink.recs, 2)
	assert.Equal(t, []string{"i20"}, sink.recs[0].ItemIDs())
	assert.Equal(t, []string{"i20"}, sink.recs[1].ItemIDs())
}

func TestRun_PipelineFileUnseen(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.RatingsFile:    "1,20,4.0\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
		"pipeline.yaml":       "pipeline:\n  nodes:\n    - type: rank.score\n    - type: rerank.topn\n      config:\n        n: 5\n",
	})
	cfg := newConfig(dir)
	cfg.UnseenOnly = true
	cfg.Pipeline.File = filepath.Join(dir, "pipeline.yaml")

	sink := &collectSink{}
	_, err := run(t, cfg, sink)
	require.NoError(t, err)
	require.Len(t, sink.recs, 1)
	assert.Equal(t, []string{"i10"}, sink.recs[0].ItemIDs())
}

func TestRun_InfiniteScoreIsFatal(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:Inf,20:5.0]\n",
	})
	sink := &collectSink{}
	r := New(newConfig(dir), sink, WithLogger(zaptest.NewLogger(t)))
	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsAssertionError(err))

	je := core.GetJobError(err)
	require.NotNil(t, je)
	assert.Equal(t, 1, je.Line)
	assert.Equal(t, "1\t[10:Inf,20:5.0]", je.Content)
	assert.Empty(t, sink.recs)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics().JobErrors.WithLabelValues("assertion")))
}

func TestRun_ExpressionErrorIsFatal(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:3.0]\n",
	})
	cfg := newConfig(dir)
	cfg.Pipeline.ItemFilter = `params.missing == 1`

	sink := &collectSink{}
	_, err := run(t, cfg, sink)
	require.Error(t, err)
	assert.True(t, core.IsAssertionError(err))
	assert.Equal(t, 1, core.GetJobError(err).Line)
	assert.Empty(t, sink.recs)
}

func TestRun_BatchSink(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:1.0]\n2\t[20:1.0]\n3\t[]\n",
	})
	ms := store.NewMemoryStore()
	kv := store.NewKVSink(ms, "itemrec", 0)
	defer kv.Close()

	_, err := run(t, newConfig(dir), kv)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"itemrec:1:2:false:u1",
		"itemrec:1:2:false:u2",
		"itemrec:1:2:false:u3",
	}, ms.Keys())
}

func TestRun_MissingInput(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
	})
	_, err := run(t, newConfig(dir), &collectSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open predictions")
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: itemsTSV,
		config.PredictedFile:  "1\t[10:1.0]\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &collectSink{}
	_, err := New(newConfig(dir), sink).Run(ctx)
	require.Error(t, err)
	assert.Empty(t, sink.recs)
}

func TestRun_Clock(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		config.UsersIndexFile: usersTSV,
		config.ItemsIndexFile: "10\ti10\ttypeA\t0\t100\n20\ti20\ttypeB\t0\t5000\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	cfg := newConfig(dir)
	cfg.Pipeline.ItemFilter = `!item.has_end_time || item.end_time > now`

	sink := &collectSink{}
	r := New(cfg, sink, WithClock(func() time.Time { return time.UnixMilli(1000) }))
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"i20"}, sink.recs[0].ItemIDs())
}
