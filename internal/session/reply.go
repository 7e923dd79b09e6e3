package session

import "fmt"

// Outcome tells the caller what a turn did, independently of the rendered text.
type Outcome int

const (
	OutcomeWelcome Outcome = iota + 1
	OutcomeHelp
	OutcomeStatus
	OutcomeQuestion
	OutcomeDailyStarted
	OutcomeCorrect
	OutcomeIncorrect
	OutcomeDailyCompleted
	OutcomeNoQuestionsAvailable
	OutcomeInsufficientPool
	OutcomeAlreadyDoneToday
	OutcomeDailyInProgress
	OutcomeInvalidAnswerFormat
	OutcomeNoActiveSession
	OutcomeSessionExpired
	OutcomeSessionAborted
	OutcomeThemeRequired
	OutcomeUnknownCommand
	OutcomeInternalError
)

var outcomeNames = map[Outcome]string{
	OutcomeWelcome:              "welcome",
	OutcomeHelp:                 "help",
	OutcomeStatus:               "status",
	OutcomeQuestion:             "question",
	OutcomeDailyStarted:         "daily_started",
	OutcomeCorrect:              "correct",
	OutcomeIncorrect:            "incorrect",
	OutcomeDailyCompleted:       "daily_completed",
	OutcomeNoQuestionsAvailable: "no_questions_available",
	OutcomeInsufficientPool:     "insufficient_pool",
	OutcomeAlreadyDoneToday:     "already_done_today",
	OutcomeDailyInProgress:      "daily_in_progress",
	OutcomeInvalidAnswerFormat:  "invalid_answer_format",
	OutcomeNoActiveSession:      "no_active_session",
	OutcomeSessionExpired:       "session_expired",
	OutcomeSessionAborted:       "session_aborted",
	OutcomeThemeRequired:        "theme_required",
	OutcomeUnknownCommand:       "unknown_command",
	OutcomeInternalError:        "internal_error",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}

	return fmt.Sprintf("outcome(%d)", int(o))
}

// Reply is what a turn sends back: one or more messages in order, formatted as Telegram HTML.
type Reply struct {
	Outcome  Outcome
	Segments []string
}

func reply(o Outcome, segments ...string) Reply {
	return Reply{Outcome: o, Segments: segments}
}

// then appends the segments of next after those of r. The outcome is the one of next.
func (r Reply) then(next Reply) Reply {
	return Reply{
		Outcome:  next.Outcome,
		Segments: append(append([]string(nil), r.Segments...), next.Segments...),
	}
}

// ErrorReply is the apology sent when a turn failed for reasons the user cannot fix.
func ErrorReply() Reply {
	return reply(OutcomeInternalError, msgInternalError)
}
