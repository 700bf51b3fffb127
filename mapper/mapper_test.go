package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/index"
)

func newTestMapper() *Mapper {
	users := index.NewUserIndex(core.UserEntry{Index: 1, ID: "u1"})
	items := index.NewItemIndex(
		core.ItemEntry{Index: 10, ID: "i10", Types: []string{"typeA"}},
		core.ItemEntry{Index: 20, ID: "i20", Types: []string{"typeB"}},
	)
	return New(users, items, Tags{AppID: 3, AlgoID: 4, ModelSet: true})
}

func TestMapper_Map(t *testing.T) {
	rec, err := newTestMapper().Map(1, []*core.Candidate{
		{Index: 20, Score: 5.0},
		{Index: 10, Score: 3.0},
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, 3, rec.AppID)
	assert.Equal(t, 4, rec.AlgoID)
	assert.True(t, rec.ModelSet)
	assert.False(t, rec.Training)
	assert.Equal(t, []core.RankedItem{
		{ItemID: "i20", Score: 5.0, Types: []string{"typeB"}},
		{ItemID: "i10", Score: 3.0, Types: []string{"typeA"}},
	}, rec.Items)
	assert.Equal(t, []string{"i20", "i10"}, rec.ItemIDs())
	assert.Equal(t, []float64{5.0, 3.0}, rec.Scores())
}

func TestMapper_EmptyList(t *testing.T) {
	rec, err := newTestMapper().Map(1, nil)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.NotNil(t, rec.Items)
	assert.Empty(t, rec.Items)
}

func TestMapper_UnknownUser(t *testing.T) {
	_, err := newTestMapper().Map(5, nil)
	require.Error(t, err)
	assert.True(t, core.IsLookupError(err))
	assert.Contains(t, err.Error(), "user index 5")
}
