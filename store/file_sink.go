package store

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rushteam/modelcon/core"
)

// FileSink 以 JSON Lines 格式顺序写出推荐记录，每行一条。
type FileSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	name   string
}

// NewFileSink 创建（覆盖）path 并返回 FileSink。
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &FileSink{w: bufio.NewWriter(f), closer: f, name: path}, nil
}

// NewWriterSink 基于任意 io.Writer 创建 FileSink，Close 时只 flush。
func NewWriterSink(w io.Writer) *FileSink {
	return &FileSink{w: bufio.NewWriter(w), name: "writer"}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, rec *core.Recommendation) error {
	line, err := EncodeRecommendation(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation for %s: %w", rec.UserID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return s.w.WriteByte('\n')
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ core.RecommendationSink = (*FileSink)(nil)
