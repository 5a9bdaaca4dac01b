package player

import "github.com/kasuganosora/survivalcamp/model"

// Level 1 needs no experience; reaching level N+1 from N costs
// 100 + (N-1)*50, so level 2 starts at 100, level 3 at 250, level 4 at 450.
const (
	levelBaseCost = 100
	levelCostStep = 50
	maxLevel      = 1000
)

// ExperienceForLevel is the cumulative experience at which level starts.
func ExperienceForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n*levelBaseCost + levelCostStep*n*(n-1)/2
}

// LevelForExperience derives the level from cumulative experience.
func LevelForExperience(xp int64) int {
	level := 1
	for level < maxLevel && ExperienceForLevel(level+1) <= xp {
		level++
	}
	return level
}

// AddExperience adds xp to p and recomputes its level from the new total.
// It reports whether the level went up.
func AddExperience(p *model.Player, xp int64) bool {
	before := p.Level
	p.Experience += xp
	if p.Experience < 0 {
		p.Experience = 0
	}
	p.Level = LevelForExperience(p.Experience)
	return p.Level > before
}
