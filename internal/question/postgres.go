package question

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Postgres reads questions from the questions table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(c Config) *Postgres {
	return &Postgres{
		db: c.DB,
	}
}

func (s *Postgres) Get(ctx context.Context, id domain.QuestionID) (domain.Question, error) {
	const stmt = `
SELECT question_id, type, theme, prompt, options, answer_index, explanation
FROM questions
WHERE question_id = $1;`

	var q domain.Question
	err := s.db.QueryRow(ctx, stmt, id).Scan(&q.ID, &q.Type, &q.Theme, &q.Prompt, &q.Options, &q.AnswerIndex, &q.Explanation)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question not found: id=%d", id),
			errors.WithCause(err))
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question %d: %w", id, err)
	}

	return q, nil
}

func (s *Postgres) ListIDs(ctx context.Context, theme string) ([]domain.QuestionID, error) {
	const stmt = `
SELECT question_id
FROM questions
WHERE $1 = '' OR lower(theme) = $1
ORDER BY question_id;`

	rows, err := s.db.Query(ctx, stmt, domain.NormalizeTheme(theme))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[domain.QuestionID])
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return ids, nil
}

func (s *Postgres) Themes(ctx context.Context) ([]string, error) {
	const stmt = `SELECT DISTINCT lower(theme) AS theme FROM questions ORDER BY theme;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	themes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	return themes, nil
}

// Seed inserts qs in one transaction and returns how many were new. A question whose prompt
// already exists is skipped, so seeding the same file twice is harmless.
func (s *Postgres) Seed(ctx context.Context, qs []domain.Question) (n int, err error) {
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return 0, errors.New(errors.CodeInvalidArgument, errors.WithCause(err))
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const stmt = `
INSERT INTO questions (type, theme, prompt, options, answer_index, explanation)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (prompt) DO NOTHING;`

	for _, q := range qs {
		tag, err := tx.Exec(ctx, stmt, q.Type, domain.NormalizeTheme(q.Theme), q.Prompt, q.Options, q.AnswerIndex, q.Explanation)
		if err != nil {
			return 0, fmt.Errorf("insert question %q: %w", q.Prompt, err)
		}
		n += int(tag.RowsAffected())
	}

	return n, tx.Commit(ctx)
}
