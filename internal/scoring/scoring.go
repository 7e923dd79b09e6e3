package scoring

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizbot/internal/domain"
)

const (
	// XPPerCorrect is awarded for every correct answer. Wrong answers cost nothing.
	XPPerCorrect = 10
	xpPerLevel   = 100
)

// LevelFor derives the level from cumulative XP: 0-99 is level 1, 100-199 level 2 and so on.
func LevelFor(xp int) int {
	if xp < 0 {
		return 1
	}

	return xp/xpPerLevel + 1
}

// XPToNextLevel is the XP still missing to reach the next level.
func XPToNextLevel(xp int) int {
	return LevelFor(xp)*xpPerLevel - max(xp, 0)
}

// ApplyAnswer returns u with XP, counters and level updated for one answer.
func ApplyAnswer(u domain.User, correct bool) domain.User {
	if correct {
		u.XP += XPPerCorrect
		u.CorrectCount++
	} else {
		u.WrongCount++
	}

	u.Level = LevelFor(u.XP)
	return u
}

// ParseAnswer maps an answer text to an option index. Only a single letter a..d (any case,
// surrounding spaces ignored) is a valid answer.
func ParseAnswer(text string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if len(s) != 1 {
		return 0, false
	}

	idx := int(s[0] - 'a')
	if idx < 0 || idx >= domain.OptionCount {
		return 0, false
	}

	return idx, true
}

// IsCorrectAnswer evaluates text against q. valid is false when text is not an option letter,
// in which case the answer must not be scored at all.
func IsCorrectAnswer(q domain.Question, text string) (correct, valid bool) {
	idx, ok := ParseAnswer(text)
	if !ok {
		return false, false
	}

	return idx == q.AnswerIndex, true
}

// OptionLetter is the letter users type to pick the option at idx.
func OptionLetter(idx int) string {
	return string(rune('a' + idx))
}

// Accuracy is the share of correct answers in percent, rounded to one decimal place.
func Accuracy(correct, wrong int) decimal.Decimal {
	total := correct + wrong
	if total <= 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}
