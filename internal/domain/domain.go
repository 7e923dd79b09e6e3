package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OptionCount is the number of options every question carries, answered with the letters a..d.
const OptionCount = 4

type QuestionID int64

// Question is an immutable quiz item. Questions are seeded externally and only read by the bot.
type Question struct {
	ID          QuestionID
	Type        string
	Theme       string
	Prompt      string
	Options     []string
	AnswerIndex int
	Explanation string
}

// Validate checks the shape of a question before it is stored.
func (q Question) Validate() error {
	switch {
	case strings.TrimSpace(q.Prompt) == "":
		return fmt.Errorf("question %d: empty prompt", q.ID)
	case NormalizeTheme(q.Theme) == "":
		return fmt.Errorf("question %d: empty theme", q.ID)
	case len(q.Options) != OptionCount:
		return fmt.Errorf("question %d: want %d options, got %d", q.ID, OptionCount, len(q.Options))
	case q.AnswerIndex < 0 || q.AnswerIndex >= OptionCount:
		return fmt.Errorf("question %d: answer index %d out of range", q.ID, q.AnswerIndex)
	}

	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("question %d: option %d is empty", q.ID, i)
		}
	}

	return nil
}

// NormalizeTheme is the canonical form used for theme matching.
func NormalizeTheme(theme string) string {
	return strings.ToLower(strings.TrimSpace(theme))
}

// User is the persisted progress of one chat user.
type User struct {
	ID          uuid.UUID
	ExternalID  string
	DisplayName string
	Handle      string

	XP           int
	Level        int
	CorrectCount int
	WrongCount   int

	Session Session

	// LastDailyDate is the UTC day of the last completed daily challenge, zero if never.
	LastDailyDate time.Time

	// Version is bumped on every write and used for optimistic concurrency.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser returns a fresh IDLE user with all counters at zero.
func NewUser(externalID, displayName, handle string, now time.Time) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user ID: %w", err)
	}

	return User{
		ID:          id,
		ExternalID:  externalID,
		DisplayName: displayName,
		Handle:      handle,
		Level:       1,
		Session:     IdleSession(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DailyDoneOn reports whether the daily challenge was already completed on the UTC day of t.
func (u User) DailyDoneOn(t time.Time) bool {
	return !u.LastDailyDate.IsZero() && Day(u.LastDailyDate).Equal(Day(t))
}

// Equal compares the persisted content of two users, ignoring bookkeeping timestamps.
func (u User) Equal(o User) bool {
	return u.ID == o.ID &&
		u.ExternalID == o.ExternalID &&
		u.DisplayName == o.DisplayName &&
		u.Handle == o.Handle &&
		u.XP == o.XP &&
		u.Level == o.Level &&
		u.CorrectCount == o.CorrectCount &&
		u.WrongCount == o.WrongCount &&
		u.Session.Equal(o.Session) &&
		u.LastDailyDate.Equal(o.LastDailyDate) &&
		u.Version == o.Version
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
