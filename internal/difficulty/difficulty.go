package difficulty

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTier = errors.New("unknown difficulty tier")

type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Profile is the fixed configuration a session is built from.
type Profile struct {
	Tier           Tier
	InitialSeconds int
	PromptSourceID string
}

var profiles = map[Tier]Profile{
	TierEasy:   {Tier: TierEasy, InitialSeconds: 45, PromptSourceID: "easy_sentences.txt"},
	TierMedium: {Tier: TierMedium, InitialSeconds: 30, PromptSourceID: "medium_sentences.txt"},
	TierHard:   {Tier: TierHard, InitialSeconds: 20, PromptSourceID: "hard_sentences.txt"},
}

// ProfileFor returns the profile of t. Anything outside the closed set is
// treated as hard.
func ProfileFor(t Tier) Profile {
	if p, ok := profiles[t]; ok {
		return p
	}
	return profiles[TierHard]
}

func Tiers() []Tier {
	return []Tier{TierEasy, TierMedium, TierHard}
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

func (t Tier) String() string { return string(t) }
