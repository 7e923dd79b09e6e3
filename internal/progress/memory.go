package progress

import (
	"context"
	"sync"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

// Memory is an in-process user store with the same version semantics as Postgres.
type Memory struct {
	mu     sync.Mutex
	users  map[string]domain.User
	writes int
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]domain.User),
	}
}

func (m *Memory) Load(_ context.Context, externalID string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[externalID]
	if !ok {
		return domain.User{}, errors.NotFound("user not found: external_id=%s", externalID)
	}

	return u, nil
}

// Upsert stores u if the stored version still equals u.Version and returns u with the new version.
func (m *Memory) Upsert(_ context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[u.ExternalID]
	switch {
	case !ok && u.Version != 0:
		return domain.User{}, errors.NotFound("user not found: external_id=%s", u.ExternalID)
	case ok && cur.Version != u.Version:
		return domain.User{}, errConflict(u, cur.Version)
	}

	u.Version++
	m.users[u.ExternalID] = u
	m.writes++

	return u, nil
}

// Writes counts successful upserts.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}

func errConflict(u domain.User, stored int64) *errors.Error {
	return errors.New(errors.CodeAborted,
		errors.WithMessagef("user modified concurrently: external_id=%s version=%d stored=%d", u.ExternalID, u.Version, stored))
}
