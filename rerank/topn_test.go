package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/modelcon/core"
)

func TestTopNNode(t *testing.T) {
	items := []*core.Candidate{{Index: 1}, {Index: 2}, {Index: 3}}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "unbounded", n: 0, want: 3},
		{name: "negative", n: -1, want: 3},
		{name: "truncate", n: 2, want: 2},
		{name: "larger than input", n: 10, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&TopNNode{N: tt.n}).Process(context.Background(), nil, items)
			require.NoError(t, err)
			assert.Len(t, out, tt.want)
			assert.Equal(t, 1, out[0].Index)
		})
	}
}
