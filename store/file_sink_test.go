package store

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	ctx := context.Background()
	require.NoError(t, sink.Write(ctx, sampleRecommendation("u1")))
	require.NoError(t, sink.Write(ctx, sampleRecommendation("u2")))
	require.NoError(t, sink.Close())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	rec, err := DecodeRecommendation(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)

	rec, err = DecodeRecommendation(lines[1])
	require.NoError(t, err)
	assert.Equal(t, "u2", rec.UserID)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), sampleRecommendation("u1")))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var n int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rec, err := DecodeRecommendation(sc.Bytes())
		require.NoError(t, err)
		assert.Equal(t, sampleRecommendation("u1"), rec)
		n++
	}
	assert.Equal(t, 1, n)
}
