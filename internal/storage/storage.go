package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"meal-planner/internal/meal"

	"go.uber.org/zap"
)

// StateFile is the file name of the persisted state inside the data directory.
const StateFile = "state.json"

type state struct {
	Favorites  []meal.ID       `json:"favorites"`
	WeeklyPlan meal.WeeklyPlan `json:"weekly_plan,omitempty"`
	Token      string          `json:"token,omitempty"`
}

// StateStore keeps the user's favorites, last weekly plan and access token
// in a JSON file. Every change is written through immediately.
type StateStore struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	state state
}

// Open loads the state kept in dir, creating the directory if needed. A
// missing or unreadable state file yields an empty state.
func Open(dir string, logger *zap.Logger) (*StateStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	s := &StateStore{
		path:   filepath.Join(dir, StateFile),
		logger: logger.Named("storage"),
		state:  state{Favorites: []meal.ID{}},
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		s.logger.Warn("could not read state file, starting empty", zap.String("path", s.path), zap.Error(err))
		return s, nil
	}

	var loaded state
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("state file is corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return s, nil
	}
	if loaded.Favorites == nil {
		loaded.Favorites = []meal.ID{}
	}
	s.state = loaded
	return s, nil
}

// Path returns the location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Favorites returns the favorite meal ids in the order they were added.
func (s *StateStore) Favorites() []meal.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Favorites)
}

// IsFavorite reports whether id is a favorite.
func (s *StateStore) IsFavorite(id meal.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.state.Favorites, id)
}

// AddFavorite marks id as a favorite. Adding an existing favorite is a no-op.
func (s *StateStore) AddFavorite(id meal.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.state.Favorites, id) {
		return nil
	}
	s.state.Favorites = append(s.state.Favorites, id)
	return s.save()
}

// RemoveFavorite unmarks id.
func (s *StateStore) RemoveFavorite(id meal.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.state.Favorites, id)
	if i < 0 {
		return nil
	}
	s.state.Favorites = slices.Delete(s.state.Favorites, i, i+1)
	return s.save()
}

// ToggleFavorite flips the favorite state of id and reports the new state.
func (s *StateStore) ToggleFavorite(id meal.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.state.Favorites, id); i >= 0 {
		s.state.Favorites = slices.Delete(s.state.Favorites, i, i+1)
		return false, s.save()
	}
	s.state.Favorites = append(s.state.Favorites, id)
	return true, s.save()
}

// WeeklyPlan returns the last saved plan, or nil when there is none.
func (s *StateStore) WeeklyPlan() meal.WeeklyPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.WeeklyPlan == nil {
		return nil
	}
	plan := make(meal.WeeklyPlan, len(s.state.WeeklyPlan))
	for day, menu := range s.state.WeeklyPlan {
		plan[day] = menu
	}
	return plan
}

// SaveWeeklyPlan replaces the saved plan.
func (s *StateStore) SaveWeeklyPlan(plan meal.WeeklyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.WeeklyPlan = plan
	return s.save()
}

// ClearWeeklyPlan forgets the saved plan.
func (s *StateStore) ClearWeeklyPlan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.WeeklyPlan = nil
	return s.save()
}

// Token returns the stored access token.
func (s *StateStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// SetToken stores the access token. An empty token logs out.
func (s *StateStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Token = token
	return s.save()
}

// save writes the state to a temporary file and renames it over the old one.
// Callers hold s.mu.
func (s *StateStore) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
