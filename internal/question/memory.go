package question

import (
	"context"
	"slices"
	"sync"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

// Memory is an in-process question bank.
type Memory struct {
	mu     sync.RWMutex
	byID   map[domain.QuestionID]domain.Question
	nextID domain.QuestionID
}

// NewMemory returns a bank holding qs. Questions without an ID get the next free one.
func NewMemory(qs ...domain.Question) *Memory {
	m := &Memory{
		byID:   make(map[domain.QuestionID]domain.Question, len(qs)),
		nextID: 1,
	}

	for _, q := range qs {
		m.Add(q)
	}

	return m
}

// Add stores q and returns its ID.
func (m *Memory) Add(q domain.Question) domain.QuestionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q.ID == 0 {
		q.ID = m.nextID
	}
	if q.ID >= m.nextID {
		m.nextID = q.ID + 1
	}

	q.Options = slices.Clone(q.Options)
	m.byID[q.ID] = q
	return q.ID
}

// Delete removes a question. Users pointing at it get their session reset on the next answer.
func (m *Memory) Delete(id domain.QuestionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byID, id)
}

func (m *Memory) Get(_ context.Context, id domain.QuestionID) (domain.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.byID[id]
	if !ok {
		return domain.Question{}, errors.NotFound("question not found: id=%d", id)
	}

	q.Options = slices.Clone(q.Options)
	return q, nil
}

// ListIDs returns the ids of all questions, or of the questions of one theme, in ascending order.
func (m *Memory) ListIDs(_ context.Context, theme string) ([]domain.QuestionID, error) {
	theme = domain.NormalizeTheme(theme)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]domain.QuestionID, 0, len(m.byID))
	for id, q := range m.byID {
		if theme != "" && domain.NormalizeTheme(q.Theme) != theme {
			continue
		}
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) Themes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	themes := make([]string, 0)
	for _, q := range m.byID {
		themes = append(themes, domain.NormalizeTheme(q.Theme))
	}

	slices.Sort(themes)
	return slices.Compact(themes), nil
}
