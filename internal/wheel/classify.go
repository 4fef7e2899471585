package wheel

import "spinly/internal/models"

// Classification of a spin outcome.
type Classification string

const (
	Win    Classification = "win"
	NonWin Classification = "non-win"
)

// Classify returns Win iff the item is a genuine prize.
func Classify(item models.Item) Classification {
	if item.IsWinner {
		return Win
	}
	return NonWin
}

// Reveal describes the effect the client plays before the result can be closed.
type Reveal struct {
	Sound       string `json:"sound"`
	Headline    string `json:"headline"`
	Celebration bool   `json:"celebration"`
}

// RevealFor maps a classification to its reveal effect.
func RevealFor(c Classification) Reveal {
	if c == Win {
		return Reveal{Sound: "win", Headline: "Winner!", Celebration: true}
	}
	return Reveal{Sound: "defeat", Headline: "Too Bad!"}
}
