package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that a record could not be located in the backing store.
var ErrNotFound = errors.New("record not found")

// Fragrance is a cataloged perfume owned by a user, either in the wardrobe or
// on the wishlist. Note layers are stored comma-joined; use SplitNotes and
// JoinNotes at this boundary and work with real lists everywhere else.
type Fragrance struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Brand        string    `json:"brand"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url,omitempty"`
	Analogy      string    `json:"analogy,omitempty"`
	CoreFeeling  string    `json:"core_feeling,omitempty"`
	LocalContext string    `json:"local_context,omitempty"`
	TopNotes     string    `json:"top_notes,omitempty"`
	MiddleNotes  string    `json:"middle_notes,omitempty"`
	BaseNotes    string    `json:"base_notes,omitempty"`
	Wishlist     bool      `json:"wishlist"`
	Favorite     bool      `json:"favorite"`
	CreatedAt    time.Time `json:"created_at"`
}

// TasteProfile is the derived preference summary for one user. It is always
// replaced wholesale, never patched field by field.
type TasteProfile struct {
	UserID          string         `json:"user_id"`
	PreferredBrands []string       `json:"preferred_brands"`
	PreferredNotes  []string       `json:"preferred_notes"`
	Style           string         `json:"style"`
	Intensity       string         `json:"intensity"`
	Occasions       map[string]int `json:"occasions,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// SavedLayering is a bookmarked layering pair, keyed by (user, base, layer).
type SavedLayering struct {
	UserID       string    `json:"user_id"`
	BaseID       string    `json:"base_id"`
	LayerID      string    `json:"layer_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Occasion     string    `json:"occasion,omitempty"`
	HarmonyScore int       `json:"harmony_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is an account record for session auth.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FragranceFilter restricts a fragrance listing.
type FragranceFilter string

const (
	FilterAll       FragranceFilter = ""
	FilterWardrobe  FragranceFilter = "wardrobe"
	FilterWishlist  FragranceFilter = "wishlist"
	FilterFavorites FragranceFilter = "favorites"
)

func (f FragranceFilter) matches(item Fragrance) bool {
	switch f {
	case FilterWardrobe:
		return !item.Wishlist
	case FilterWishlist:
		return item.Wishlist
	case FilterFavorites:
		return item.Favorite
	default:
		return true
	}
}

// Store defines the persistence behaviors the application relies on.
type Store interface {
	CreateFragrance(ctx context.Context, input Fragrance) (Fragrance, error)
	ListFragrances(ctx context.Context, userID string, filter FragranceFilter) ([]Fragrance, error)
	GetFragrance(ctx context.Context, userID, id string) (Fragrance, error)
	SetFavorite(ctx context.Context, userID, id string, favorite bool) (Fragrance, error)
	DeleteFragrance(ctx context.Context, userID, id string) error

	GetTasteProfile(ctx context.Context, userID string) (TasteProfile, error)
	ReplaceTasteProfile(ctx context.Context, profile TasteProfile) (TasteProfile, error)
	DeleteTasteProfile(ctx context.Context, userID string) error

	ListSavedLayerings(ctx context.Context, userID string) ([]SavedLayering, error)
	SaveLayering(ctx context.Context, input SavedLayering) (SavedLayering, error)
	DeleteSavedLayering(ctx context.Context, userID, baseID, layerID string) error

	CreateUser(ctx context.Context, input User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	Close()
}

// NewStore selects a backing store based on whether a database URL is provided.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewInMemoryStore(), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS fragrances (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			brand TEXT NOT NULL,
			name TEXT NOT NULL,
			image_url TEXT,
			analogy TEXT,
			core_feeling TEXT,
			local_context TEXT,
			top_notes TEXT,
			middle_notes TEXT,
			base_notes TEXT,
			wishlist BOOLEAN NOT NULL DEFAULT false,
			favorite BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS fragrances_user_idx ON fragrances (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS taste_profiles (
			user_id TEXT PRIMARY KEY,
			preferred_brands TEXT[],
			preferred_notes TEXT[],
			style TEXT,
			intensity TEXT,
			occasions JSONB DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS saved_layerings (
			user_id TEXT NOT NULL,
			base_id TEXT NOT NULL,
			layer_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			occasion TEXT,
			harmony_score INTEGER NOT NULL DEFAULT 80,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, base_id, layer_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
