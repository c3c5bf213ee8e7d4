package pet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOf_Boundaries(t *testing.T) {
	tests := []struct {
		xp   int
		want string
	}{
		{-5, "bebe"},
		{0, "bebe"},
		{999, "bebe"},
		{1000, "joven"},
		{4999, "joven"},
		{5000, "adulto"},
		{9999, "adulto"},
		{10000, "legendario"},
		{19999, "legendario"},
		{20000, "legendario_supremo"},
		{39999, "legendario_supremo"},
		{40000, "maestro"},
		{59999, "maestro"},
		{60000, "divino"},
		{1_000_000, "divino"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RankOf(tt.xp).Key, "xp=%d", tt.xp)
	}
}

func TestRankOf_Monotonic(t *testing.T) {
	prev := RankOf(0).MinExperience
	for xp := 0; xp <= 70000; xp += 250 {
		cur := RankOf(xp).MinExperience
		assert.GreaterOrEqual(t, cur, prev, "xp=%d", xp)
		prev = cur
	}
}

func TestNextRank(t *testing.T) {
	next, ok := NextRank(500)
	require.True(t, ok)
	assert.Equal(t, "joven", next.Key)

	_, ok = NextRank(60000)
	assert.False(t, ok)
}

func TestApplyRankCheck_BonusOncePerCrossing(t *testing.T) {
	rec := &Record{Experience: 995, Currency: 0, LastEvaluatedRank: "bebe"}

	assert.Nil(t, ApplyRankCheck(rec))

	rec.GainExperience(10)
	up := ApplyRankCheck(rec)
	require.NotNil(t, up)
	assert.Equal(t, "bebe", up.From.Key)
	assert.Equal(t, "joven", up.To.Key)
	assert.Equal(t, RankUpBonus, up.Bonus)
	assert.Equal(t, RankUpBonus, rec.Currency)
	assert.Equal(t, "joven", rec.LastEvaluatedRank)

	// Re-evaluating without crossing grants nothing.
	assert.Nil(t, ApplyRankCheck(rec))
	rec.GainExperience(100)
	assert.Nil(t, ApplyRankCheck(rec))
	assert.Equal(t, RankUpBonus, rec.Currency)
}

func TestApplyRankCheck_MultiTierJumpSingleBonus(t *testing.T) {
	rec := &Record{Experience: 0, LastEvaluatedRank: "bebe"}
	rec.GainExperience(12000)

	up := ApplyRankCheck(rec)
	require.NotNil(t, up)
	assert.Equal(t, "legendario", up.To.Key)
	assert.Equal(t, RankUpBonus, rec.Currency)
}

func TestRank_Title(t *testing.T) {
	assert.Equal(t, "🐸 Bebé", RankOf(0).Title())
	assert.Equal(t, "👑 Divino", RankOf(60000).Title())
}
