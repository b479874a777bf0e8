package academy

import (
	"strings"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

// Signal is a declarative cue for the platform layer: a sound, a haptic or
// a toast. The core never plays anything itself.
type Signal struct {
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
}

// Signal types.
const (
	SoundCorrect        = "sound.correct"
	SoundWrong          = "sound.wrong"
	SoundLessonComplete = "sound.lesson_complete"
	SoundLevelUp        = "sound.level_up"
	SoundStreak         = "sound.streak"
	SoundTap            = "sound.tap"
	HapticSuccess       = "haptic.success"
	HapticError         = "haptic.error"
	HapticWarning       = "haptic.warning"
	ToastAchievement    = "toast.achievement"
	ToastOutOfHearts    = "toast.out_of_hearts"
	ToastDailyGoal      = "toast.daily_goal"
)

// Publisher receives the signals produced by each commit.
type Publisher interface {
	Publish(profileID string, signals []Signal)
}

// NopPublisher drops all signals.
type NopPublisher struct{}

func (NopPublisher) Publish(string, []Signal) {}

// filterSignals drops sound and haptic cues the learner has turned off.
func filterSignals(prefs progress.Preferences, in []Signal) []Signal {
	out := make([]Signal, 0, len(in))
	for _, s := range in {
		switch {
		case strings.HasPrefix(s.Type, "sound.") && !prefs.SoundEnabled:
			continue
		case strings.HasPrefix(s.Type, "haptic.") && !prefs.HapticsEnabled:
			continue
		}
		out = append(out, s)
	}
	return out
}
