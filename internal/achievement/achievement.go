// Package achievement holds the badge table and evaluates it against
// a progress record.
package achievement

import (
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

// EventSurvivor is recorded when a lesson is finished on the last heart.
const EventSurvivor = "survivor"

// Definition is one badge.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Rule        Rule   `json:"rule"`
}

// Definitions is evaluated in order.
var Definitions = []Definition{
	{"first_steps", "First Steps", "🌱", "Complete your first lesson", Rule{Kind: LessonsCompleted, N: 1}},
	{"on_fire", "On Fire", "🔥", "Achieve a 3-day streak", Rule{Kind: Streak, N: 3}},
	{"dedicated_learner", "Dedicated Learner", "🏔️", "Achieve a 7-day streak", Rule{Kind: Streak, N: 7}},
	{"perfectionist", "Perfectionist", "💯", "Get a perfect score on 5 lessons", Rule{Kind: PerfectLessons, N: 5}},
	{"ai_basics_master", "AI Basics Master", "🧠", "Complete all AI Basics lessons", Rule{Kind: CategoryComplete, Target: "ai_basics"}},
	{"speed_demon", "Speed Demon", "⚡", "Score 20 or more in Speed Round", Rule{Kind: GameHighScore, Target: xp.GameSpeedRound, N: 20}},
	{"sharpshooter", "Sharpshooter", "🎯", "Answer 20 questions correctly in a row", Rule{Kind: CorrectRun, N: 20}},
	{"well_rounded", "Well-Rounded", "🌍", "Complete at least 1 lesson in every category", Rule{Kind: EveryCategoryStarted}},
	{"crown_collector", "Crown Collector", "🏆", "Earn 3 stars on every lesson in a category", Rule{Kind: AnyCategoryMastered}},
	{"graduate", "Graduate", "🎓", "Complete all categories", Rule{Kind: EveryCategoryComplete}},
	{"game_night", "Game Night", "🕹️", "Play all 5 mini-games", Rule{Kind: GamesVariety, N: 5}},
	{"bookworm", "Bookworm", "📚", "Complete 50 total lessons", Rule{Kind: LessonsCompleted, N: 50}},
	{"ethics_expert", "Ethics Expert", "🔬", "Earn 3 stars on every AI Ethics lesson", Rule{Kind: CategoryMastered, Target: "ai_ethics"}},
	{"survivor", "Survivor", "❤️", "Complete a lesson with only 1 heart remaining", Rule{Kind: RecordedEvent, Target: EventSurvivor}},
	{"century_club", "Century Club", "🎉", "Earn a 100-day streak", Rule{Kind: Streak, N: 100}},
	{"rising_star", "Rising Star", "⭐", "Reach Level 5", Rule{Kind: Level, N: 5}},
	{"to_the_moon", "To the Moon", "🚀", "Reach Level 10", Rule{Kind: Level, N: 10}},
	{"puzzle_master", "Puzzle Master", "🧩", "Score 10 or more in Buzzword Buster", Rule{Kind: GameHighScore, Target: xp.GameBuzzwordBuster, N: 10}},
	{"prompt_pro", "Prompt Pro", "🤖", "Complete all Prompt Engineering lessons", Rule{Kind: CategoryComplete, Target: "prompt_engineering"}},
	{"ai_visionary", "AI Visionary", "🌟", "Reach Level 12 (max level)", Rule{Kind: Level, N: 12}},
}

// Lookup returns a definition by id.
func Lookup(id string) (Definition, bool) {
	for _, d := range Definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Evaluate unlocks every definition whose rule now holds and returns the
// newly unlocked ones in table order. Unlocked ids are never re-checked.
func Evaluate(rec *progress.Record, c *catalog.Catalog) []Definition {
	var unlocked []Definition
	for _, d := range Definitions {
		if rec.HasAchievement(d.ID) {
			continue
		}
		if d.Rule.Satisfied(rec, c) && rec.UnlockAchievement(d.ID) {
			unlocked = append(unlocked, d)
		}
	}
	return unlocked
}

// Status is a definition with its unlock state, for listings.
type Status struct {
	Definition
	Unlocked bool `json:"unlocked"`
}

// Statuses lists every definition with whether the record has unlocked it.
func Statuses(rec *progress.Record) []Status {
	out := make([]Status, 0, len(Definitions))
	for _, d := range Definitions {
		out = append(out, Status{Definition: d, Unlocked: rec.HasAchievement(d.ID)})
	}
	return out
}
