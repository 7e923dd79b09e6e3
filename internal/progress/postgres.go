package progress

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Postgres stores users in the users table. Writes are conditional on the version column,
// a concurrent writer makes Upsert fail with CodeAborted instead of losing an update.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(c Config) *Postgres {
	return &Postgres{
		db: c.DB,
	}
}

func (s *Postgres) Load(ctx context.Context, externalID string) (domain.User, error) {
	const stmt = `
SELECT user_id, external_id, display_name, handle, xp, level, correct_count, wrong_count,
	active_question_id, daily_question_ids, daily_index, daily_correct, last_daily_date,
	version, created_at, updated_at
FROM users
WHERE external_id = $1;`

	var (
		u        domain.User
		r        record
		lastDate *time.Time
	)

	err := s.db.QueryRow(ctx, stmt, externalID).Scan(
		&u.ID, &u.ExternalID, &u.DisplayName, &u.Handle, &u.XP, &u.Level, &u.CorrectCount, &u.WrongCount,
		&r.active, &r.daily, &r.index, &r.correct, &lastDate,
		&u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: external_id=%s", externalID),
			errors.WithCause(err))
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user %s: %w", externalID, err)
	}

	u.Session, err = r.session()
	if err != nil {
		return domain.User{}, errors.Internal(fmt.Errorf("user %s: %w", externalID, err))
	}

	if lastDate != nil {
		u.LastDailyDate = domain.Day(*lastDate)
	}

	return u, nil
}

func (s *Postgres) Upsert(ctx context.Context, u domain.User) (domain.User, error) {
	if u.Version == 0 {
		return s.insert(ctx, u)
	}

	return s.update(ctx, u)
}

func (s *Postgres) insert(ctx context.Context, u domain.User) (domain.User, error) {
	const stmt = `
INSERT INTO users (user_id, external_id, display_name, handle, xp, level, correct_count, wrong_count,
	active_question_id, daily_question_ids, daily_index, daily_correct, last_daily_date,
	version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, $14, $14)
RETURNING version, updated_at;`

	r := toRecord(u.Session)
	err := s.db.QueryRow(ctx, stmt,
		u.ID, u.ExternalID, u.DisplayName, u.Handle, u.XP, u.Level, u.CorrectCount, u.WrongCount,
		r.active, r.daily, r.index, r.correct, lastDailyDate(u),
		u.CreatedAt,
	).Scan(&u.Version, &u.UpdatedAt)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return domain.User{}, errors.New(errors.CodeAborted,
			errors.WithMessagef("user created concurrently: external_id=%s", u.ExternalID),
			errors.WithCause(err))
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user %s: %w", u.ExternalID, err)
	}

	return u, nil
}

func (s *Postgres) update(ctx context.Context, u domain.User) (domain.User, error) {
	const stmt = `
UPDATE users SET
	display_name = $3, handle = $4, xp = $5, level = $6, correct_count = $7, wrong_count = $8,
	active_question_id = $9, daily_question_ids = $10, daily_index = $11, daily_correct = $12,
	last_daily_date = $13, version = version + 1, updated_at = $14
WHERE external_id = $1 AND version = $2
RETURNING version, updated_at;`

	r := toRecord(u.Session)
	err := s.db.QueryRow(ctx, stmt,
		u.ExternalID, u.Version, u.DisplayName, u.Handle, u.XP, u.Level, u.CorrectCount, u.WrongCount,
		r.active, r.daily, r.index, r.correct, lastDailyDate(u),
		u.UpdatedAt,
	).Scan(&u.Version, &u.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, errors.New(errors.CodeAborted,
			errors.WithMessagef("user modified concurrently: external_id=%s version=%d", u.ExternalID, u.Version),
			errors.WithCause(err))
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("update user %s: %w", u.ExternalID, err)
	}

	return u, nil
}

func lastDailyDate(u domain.User) *time.Time {
	if u.LastDailyDate.IsZero() {
		return nil
	}

	d := domain.Day(u.LastDailyDate)
	return &d
}

// record is the column layout of a session.
type record struct {
	active  *int64
	daily   []int64
	index   *int
	correct int
}

func toRecord(s domain.Session) record {
	var r record

	if id, ok := s.ActiveQuestion(); ok {
		v := int64(id)
		r.active = &v
	}

	if ids := s.DailyQuestions(); ids != nil {
		r.daily = make([]int64, len(ids))
		for i, id := range ids {
			r.daily[i] = int64(id)
		}
		idx := s.DailyIndex()
		r.index = &idx
		r.correct = s.DailyCorrect()
	}

	return r
}

func (r record) session() (domain.Session, error) {
	var active *domain.QuestionID
	if r.active != nil {
		v := domain.QuestionID(*r.active)
		active = &v
	}

	var daily []domain.QuestionID
	if r.daily != nil {
		daily = make([]domain.QuestionID, len(r.daily))
		for i, id := range r.daily {
			daily[i] = domain.QuestionID(id)
		}
	}

	return domain.SessionFromRecord(active, daily, r.index, r.correct)
}
