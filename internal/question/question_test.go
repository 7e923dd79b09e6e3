package question_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/question"
)

func TestMemory_ListIDs(t *testing.T) {
	ctx := context.Background()
	m := question.NewMemory(
		makeQuestion("Travel"),
		makeQuestion("makanan"),
		makeQuestion(" TRAVEL "),
		makeQuestion("dasar"),
	)

	tests := map[string]struct {
		theme string
		want  []domain.QuestionID
	}{
		"empty theme should list everything": {
			theme: "",
			want:  []domain.QuestionID{1, 2, 3, 4},
		},
		"theme should match case-insensitively": {
			theme: "travel",
			want:  []domain.QuestionID{1, 3},
		},
		"theme filter should be trimmed": {
			theme: "  Makanan ",
			want:  []domain.QuestionID{2},
		},
		"unknown theme should list nothing": {
			theme: "olahraga",
			want:  []domain.QuestionID{},
		},
		"partial theme should not match": {
			theme: "trav",
			want:  []domain.QuestionID{},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := m.ListIDs(ctx, tt.theme)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemory_Get(t *testing.T) {
	ctx := context.Background()
	m := question.NewMemory()
	id := m.Add(makeQuestion("dasar"))

	q, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, q.ID)

	q.Options[0] = "changed"
	again, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "w", again.Options[0], "stored question must be immutable")

	m.Delete(id)
	_, err = m.Get(ctx, id)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestMemory_AddKeepsExplicitIDs(t *testing.T) {
	m := question.NewMemory()

	q := makeQuestion("dasar")
	q.ID = 10
	assert.Equal(t, domain.QuestionID(10), m.Add(q))
	assert.Equal(t, domain.QuestionID(11), m.Add(makeQuestion("dasar")))
}

func TestMemory_Themes(t *testing.T) {
	m := question.NewMemory(makeQuestion("Travel"), makeQuestion("dasar"), makeQuestion("travel"))

	themes, err := m.Themes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dasar", "travel"}, themes)
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		input   string
		wantErr string
		assert  func(t *testing.T, qs []domain.Question)
	}{
		"valid file": {
			input: `
- type: vocab
  theme: Makanan
  question: "Apa arti dari kata 'Delicious'?"
  options: ["Enak sekali", "Kenyang", "Pedas", "Asin"]
  answer_idx: 0
  explanation: "Delicious berarti sangat enak atau lezat."
`,
			assert: func(t *testing.T, qs []domain.Question) {
				require.Len(t, qs, 1)
				assert.Equal(t, "makanan", qs[0].Theme)
				assert.Equal(t, "vocab", qs[0].Type)
				assert.Equal(t, 0, qs[0].AnswerIndex)
				assert.Len(t, qs[0].Options, 4)
			},
		},
		"empty file": {
			input: "",
			assert: func(t *testing.T, qs []domain.Question) {
				assert.Empty(t, qs)
			},
		},
		"three options should fail": {
			input: `
- theme: dasar
  question: q
  options: [a, b, c]
  answer_idx: 0
`,
			wantErr: "record 0",
		},
		"unknown field should fail": {
			input: `
- theme: dasar
  question: q
  options: [a, b, c, d]
  answer: 0
`,
			wantErr: "decode",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			qs, err := question.Decode(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.assert(t, qs)
		})
	}
}

func TestLoadFile_SeedData(t *testing.T) {
	qs, err := question.LoadFile("../../data/questions.yaml")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(qs), domain.DailyLength, "seed data must be enough for a daily challenge")

	prompts := make(map[string]bool)
	for _, q := range qs {
		assert.False(t, prompts[q.Prompt], "duplicate prompt %q", q.Prompt)
		prompts[q.Prompt] = true
	}
}

func makeQuestion(theme string) domain.Question {
	return domain.Question{
		Type:        "vocab",
		Theme:       theme,
		Prompt:      "prompt " + theme,
		Options:     []string{"w", "x", "y", "z"},
		AnswerIndex: 1,
	}
}
