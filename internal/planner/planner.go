package planner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"gopkg.in/yaml.v3"
)

var ErrEmptyPlan = errors.New("plan has no instruction and no actions")

// Plan is a saved action list that can be replayed without the model.
type Plan struct {
	ID          string       `yaml:"id"`
	Instruction string       `yaml:"instruction"`
	CreatedAt   time.Time    `yaml:"created_at"`
	Steps       []action.Raw `yaml:"actions"`
}

func New(id, instruction string, actions []action.Action, createdAt time.Time) *Plan {
	return &Plan{
		ID:          id,
		Instruction: instruction,
		CreatedAt:   createdAt.UTC(),
		Steps:       action.EncodeAll(actions),
	}
}

// Actions re-validates every step through the action constructors, so a
// hand-edited plan fails here rather than in the browser.
func (p *Plan) Actions() ([]action.Action, error) {
	actions, err := action.DecodeAll(p.Steps)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", p.ID, err)
	}
	return actions, nil
}

func Marshal(p *Plan) ([]byte, error) {
	return yaml.Marshal(p)
}

func Save(path string, p *Plan) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating plan directory %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing plan %q: %w", path, err)
	}
	return nil
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %q: %w", path, err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding plan %q: %w", path, err)
	}
	if p.Instruction == "" && len(p.Steps) == 0 {
		return nil, fmt.Errorf("%q: %w", path, ErrEmptyPlan)
	}
	return &p, nil
}
