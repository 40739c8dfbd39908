package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe store used when a database is not configured.
type InMemoryStore struct {
	mu         sync.RWMutex
	fragrances []Fragrance
	profiles   map[string]TasteProfile
	layerings  []SavedLayering
	users      []User
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		fragrances: make([]Fragrance, 0),
		profiles:   make(map[string]TasteProfile),
		layerings:  make([]SavedLayering, 0),
		users:      make([]User, 0),
	}
}

// CreateFragrance appends a fragrance, assigning an id and timestamp when absent.
func (s *InMemoryStore) CreateFragrance(_ context.Context, input Fragrance) (Fragrance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}

	s.fragrances = append([]Fragrance{input}, s.fragrances...)
	return input, nil
}

// ListFragrances returns a filtered snapshot of the user's fragrances,
// newest first.
func (s *InMemoryStore) ListFragrances(_ context.Context, userID string, filter FragranceFilter) ([]Fragrance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Fragrance, 0, len(s.fragrances))
	for _, f := range s.fragrances {
		if f.UserID == userID && filter.matches(f) {
			result = append(result, f)
		}
	}
	return result, nil
}

// GetFragrance returns one fragrance scoped to its owner.
func (s *InMemoryStore) GetFragrance(_ context.Context, userID, id string) (Fragrance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.fragrances {
		if f.ID == id && f.UserID == userID {
			return f, nil
		}
	}
	return Fragrance{}, ErrNotFound
}

// SetFavorite flips the favorite flag, replacing the record atomically.
func (s *InMemoryStore) SetFavorite(_ context.Context, userID, id string, favorite bool) (Fragrance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, f := range s.fragrances {
		if f.ID == id && f.UserID == userID {
			s.fragrances[idx].Favorite = favorite
			return s.fragrances[idx], nil
		}
	}
	return Fragrance{}, ErrNotFound
}

// DeleteFragrance removes a fragrance and any saved layerings referencing it.
func (s *InMemoryStore) DeleteFragrance(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, f := range s.fragrances {
		if f.ID == id && f.UserID == userID {
			s.fragrances = append(s.fragrances[:idx], s.fragrances[idx+1:]...)
			kept := s.layerings[:0]
			for _, l := range s.layerings {
				if l.UserID == userID && (l.BaseID == id || l.LayerID == id) {
					continue
				}
				kept = append(kept, l)
			}
			s.layerings = kept
			return nil
		}
	}
	return ErrNotFound
}

// GetTasteProfile returns the user's stored profile, if any.
func (s *InMemoryStore) GetTasteProfile(_ context.Context, userID string) (TasteProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return TasteProfile{}, ErrNotFound
	}
	return profile, nil
}

// ReplaceTasteProfile swaps the whole profile document for the user.
func (s *InMemoryStore) ReplaceTasteProfile(_ context.Context, profile TasteProfile) (TasteProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now()
	}
	s.profiles[profile.UserID] = profile
	return profile, nil
}

// DeleteTasteProfile drops the stored profile for the user.
func (s *InMemoryStore) DeleteTasteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

// ListSavedLayerings returns the user's bookmarked pairs, newest first.
func (s *InMemoryStore) ListSavedLayerings(_ context.Context, userID string) ([]SavedLayering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]SavedLayering, 0)
	for _, l := range s.layerings {
		if l.UserID == userID {
			result = append(result, l)
		}
	}
	return result, nil
}

// SaveLayering upserts a bookmark on its (user, base, layer) key.
func (s *InMemoryStore) SaveLayering(_ context.Context, input SavedLayering) (SavedLayering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	for idx, l := range s.layerings {
		if l.UserID == input.UserID && l.BaseID == input.BaseID && l.LayerID == input.LayerID {
			input.CreatedAt = l.CreatedAt
			s.layerings[idx] = input
			return input, nil
		}
	}
	s.layerings = append([]SavedLayering{input}, s.layerings...)
	return input, nil
}

// DeleteSavedLayering removes one bookmark.
func (s *InMemoryStore) DeleteSavedLayering(_ context.Context, userID, baseID, layerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, l := range s.layerings {
		if l.UserID == userID && l.BaseID == baseID && l.LayerID == layerID {
			s.layerings = append(s.layerings[:idx], s.layerings[idx+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// CreateUser appends a user account.
func (s *InMemoryStore) CreateUser(_ context.Context, input User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	s.users = append(s.users, input)
	return input, nil
}

// GetUser returns a user by id.
func (s *InMemoryStore) GetUser(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// GetUserByEmail returns a user by email.
func (s *InMemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
