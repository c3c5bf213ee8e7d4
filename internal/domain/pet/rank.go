package pet

// ══════════════════════════════════════════════════════════════════════════════
// RANKS
// ══════════════════════════════════════════════════════════════════════════════

// RankUpBonus is granted once each time the pet enters a new tier.
const RankUpBonus = 100

// Rank is one tier of the progression table.
type Rank struct {
	Key           string
	Name          string
	Emoji         string
	MinExperience int
	Image         string // file name under the images directory
}

// Title returns the emoji and name, e.g. "🐸 Bebé".
func (r Rank) Title() string {
	return r.Emoji + " " + r.Name
}

// Ranks is the progression table ordered by MinExperience.
var Ranks = []Rank{
	{Key: "bebe", Name: "Bebé", Emoji: "🐸", MinExperience: 0, Image: "bebe.png"},
	{Key: "joven", Name: "Joven", Emoji: "🐢", MinExperience: 1000, Image: "joven.png"},
	{Key: "adulto", Name: "Adulto", Emoji: "🐊", MinExperience: 5000, Image: "adulto.png"},
	{Key: "legendario", Name: "Legendario", Emoji: "🐉", MinExperience: 10000, Image: "legendario.png"},
	{Key: "legendario_supremo", Name: "Legendario Supremo", Emoji: "🔥", MinExperience: 20000, Image: "legendario_supremo.png"},
	{Key: "maestro", Name: "Maestro", Emoji: "🌀", MinExperience: 40000, Image: "maestro.png"},
	{Key: "divino", Name: "Divino", Emoji: "👑", MinExperience: 60000, Image: "divino.png"},
}

// RankOf returns the highest tier whose threshold is at or below experience.
// Negative experience maps to the first tier.
func RankOf(experience int) Rank {
	current := Ranks[0]
	for _, r := range Ranks[1:] {
		if experience < r.MinExperience {
			break
		}
		current = r
	}
	return current
}

// NextRank returns the tier after the one for experience, or false at the top.
func NextRank(experience int) (Rank, bool) {
	for _, r := range Ranks {
		if r.MinExperience > experience {
			return r, true
		}
	}
	return Rank{}, false
}

// RankByKey looks a tier up by its key.
func RankByKey(key string) (Rank, bool) {
	for _, r := range Ranks {
		if r.Key == key {
			return r, true
		}
	}
	return Rank{}, false
}

// RankUp describes a tier transition detected by ApplyRankCheck.
type RankUp struct {
	From  Rank
	To    Rank
	Bonus int
}

// ApplyRankCheck compares the rank derived from experience with the cached
// one. On a change it updates the cache, grants RankUpBonus and reports the
// transition. Crossing several tiers at once yields a single transition to
// the final tier and a single bonus. Repeated calls without new experience
// return nil.
func ApplyRankCheck(r *Record) *RankUp {
	current := RankOf(r.Experience)
	if current.Key == r.LastEvaluatedRank {
		return nil
	}

	from, ok := RankByKey(r.LastEvaluatedRank)
	if !ok {
		from = Ranks[0]
	}
	r.LastEvaluatedRank = current.Key

	// Experience never decreases, so a different tier is always a higher
	// one. A lower cached key only happens with a hand-edited record.
	if current.MinExperience < from.MinExperience {
		return nil
	}

	r.Earn(RankUpBonus)
	return &RankUp{From: from, To: current, Bonus: RankUpBonus}
}
