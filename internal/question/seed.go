package question

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/victornm/quizbot/internal/domain"
)

// seedRecord is one entry of a seed file.
type seedRecord struct {
	Type        string   `yaml:"type"`
	Theme       string   `yaml:"theme"`
	Question    string   `yaml:"question"`
	Options     []string `yaml:"options"`
	AnswerIdx   int      `yaml:"answer_idx"`
	Explanation string   `yaml:"explanation"`
}

// LoadFile reads and validates a YAML seed file.
func LoadFile(path string) ([]domain.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	qs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}

	return qs, nil
}

// Decode parses a YAML list of questions. Every question must be valid, the first invalid one
// fails the whole file.
func Decode(r io.Reader) ([]domain.Question, error) {
	var records []seedRecord

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&records); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode: %w", err)
	}

	qs := make([]domain.Question, 0, len(records))
	for i, rec := range records {
		q := domain.Question{
			Type:        rec.Type,
			Theme:       domain.NormalizeTheme(rec.Theme),
			Prompt:      rec.Question,
			Options:     rec.Options,
			AnswerIndex: rec.AnswerIdx,
			Explanation: rec.Explanation,
		}

		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		qs = append(qs, q)
	}

	return qs, nil
}
