// Package ideas implements the note and idea workflows on top of the storage
// manager. It owns the well-known record keys; the storage layer never
// interprets them.
package ideas

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mkazlouski/sparkpad/internal/storage"
)

// Record keys shared with the client UI. Saved ideas live under their own
// UUID key, task lists under taskKeyPrefix plus that UUID.
const (
	notesKey      = "notes"
	scoreKey      = "score"
	settingsKey   = "generator"
	ideaPromptKey = "_idea"
	categoriesKey = "_categories"
	taskKeyPrefix = "tasks_"
)

// IdeaGenerator produces idea text and task breakdowns. The production
// implementation lives in internal/generator.
type IdeaGenerator interface {
	GenerateIdea(ctx context.Context, prompt string, categories []string) (string, error)
	GenerateTasks(ctx context.Context, idea string) ([]string, error)
}

// Idea is a saved idea, stored under its ID.
type Idea struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings configures idea generation.
type Settings struct {
	Enabled bool   `json:"enabled"`
	Model   string `json:"model"`
}

// Service coordinates ideas, tasks, notes and the score against whatever
// catalog is currently selected.
type Service struct {
	store *storage.Manager
	gen   IdeaGenerator
}

// NewService creates the ideas service. gen may be nil when no generator is
// configured; generation calls then fail, everything else still works.
func NewService(store *storage.Manager, gen IdeaGenerator) *Service {
	return &Service{store: store, gen: gen}
}

// SaveIdea persists text as a new idea under a fresh UUID key.
func (s *Service) SaveIdea(ctx context.Context, text string) (Idea, error) {
	idea := Idea{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SetItem(ctx, idea.ID, idea); err != nil {
		return Idea{}, err
	}
	return idea, nil
}

// GetIdea loads the idea stored under id.
func (s *Service) GetIdea(ctx context.Context, id string) (Idea, bool, error) {
	return storage.GetItemAs[Idea](ctx, s.store, id)
}

// GenerateIdea asks the generator for a new idea, guided by the stored
// prompt and categories, and saves the result.
func (s *Service) GenerateIdea(ctx context.Context) (Idea, error) {
	if s.gen == nil {
		return Idea{}, fmt.Errorf("no idea generator is configured")
	}

	prompt, _, err := storage.GetItemAs[string](ctx, s.store, ideaPromptKey)
	if err != nil {
		return Idea{}, err
	}
	categories, _, err := storage.GetItemAs[[]string](ctx, s.store, categoriesKey)
	if err != nil {
		return Idea{}, err
	}

	text, err := s.gen.GenerateIdea(ctx, prompt, categories)
	if err != nil {
		return Idea{}, err
	}
	idea, err := s.SaveIdea(ctx, text)
	if err != nil {
		return Idea{}, err
	}
	log.Debug().Str("idea", idea.ID).Msg("generated idea saved")
	return idea, nil
}

// GenerateTasks breaks the idea stored under ideaID into tasks and persists
// the list under the idea's task key.
func (s *Service) GenerateTasks(ctx context.Context, ideaID string) ([]string, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("no idea generator is configured")
	}

	idea, ok, err := s.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("idea %q does not exist", ideaID)
	}

	tasks, err := s.gen.GenerateTasks(ctx, idea.Text)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetItem(ctx, taskKeyPrefix+ideaID, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Tasks returns the stored task list for ideaID, if any.
func (s *Service) Tasks(ctx context.Context, ideaID string) ([]string, bool, error) {
	return storage.GetItemAs[[]string](ctx, s.store, taskKeyPrefix+ideaID)
}

// AddNote appends text to the note collection.
func (s *Service) AddNote(ctx context.Context, text string) error {
	notes, _, err := storage.GetItemAs[[]string](ctx, s.store, notesKey)
	if err != nil {
		return err
	}
	return s.store.SetItem(ctx, notesKey, append(notes, text))
}

// Notes returns the note collection. An absent collection is empty.
func (s *Service) Notes(ctx context.Context) ([]string, error) {
	notes, _, err := storage.GetItemAs[[]string](ctx, s.store, notesKey)
	return notes, err
}

// Score returns the running score, zero when absent.
func (s *Service) Score(ctx context.Context) (int, error) {
	score, _, err := storage.GetItemAs[int](ctx, s.store, scoreKey)
	return score, err
}

// AddScore adjusts the running score by delta and returns the new value.
func (s *Service) AddScore(ctx context.Context, delta int) (int, error) {
	score, err := s.Score(ctx)
	if err != nil {
		return 0, err
	}
	score += delta
	if err := s.store.SetItem(ctx, scoreKey, score); err != nil {
		return 0, err
	}
	return score, nil
}

// Settings returns the stored generator settings, zero-valued when absent.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	settings, _, err := storage.GetItemAs[Settings](ctx, s.store, settingsKey)
	return settings, err
}

// SetSettings stores the generator settings.
func (s *Service) SetSettings(ctx context.Context, settings Settings) error {
	return s.store.SetItem(ctx, settingsKey, settings)
}

// SetIdeaPrompt stores the prompt used for idea generation.
func (s *Service) SetIdeaPrompt(ctx context.Context, prompt string) error {
	return s.store.SetItem(ctx, ideaPromptKey, prompt)
}

// SetCategories stores the preferred idea categories.
func (s *Service) SetCategories(ctx context.Context, categories []string) error {
	return s.store.SetItem(ctx, categoriesKey, categories)
}
