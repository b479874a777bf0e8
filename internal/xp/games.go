package xp

// Game types.
const (
	GameSpeedRound     = "speedRound"
	GameAIOrNot        = "aiOrNot"
	GameBuzzwordBuster = "buzzwordBuster"
	GameEthicsCourt    = "ethicsCourt"
	GamePromptCraft    = "promptCraft"
)

var perPoint = map[string]int{
	GameSpeedRound:     5,
	GameAIOrNot:        8,
	GameBuzzwordBuster: 8,
	GameEthicsCourt:    10,
	GamePromptCraft:    10,
}

// GameTypes lists the known mini-games.
var GameTypes = []string{
	GameSpeedRound,
	GameAIOrNot,
	GameBuzzwordBuster,
	GameEthicsCourt,
	GamePromptCraft,
}

// ForGame returns the XP for a finished game. ok is false for unknown games.
func ForGame(gameType string, score int) (int, bool) {
	rate, ok := perPoint[gameType]
	if !ok {
		return 0, false
	}
	return max(score, 0) * rate, true
}

// KnownGame reports whether gameType is a known mini-game.
func KnownGame(gameType string) bool {
	_, ok := perPoint[gameType]
	return ok
}
