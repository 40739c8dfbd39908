package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the wardrobe in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// CreateFragrance stores the provided fragrance.
func (s *PostgresStore) CreateFragrance(ctx context.Context, input Fragrance) (Fragrance, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO fragrances (id, user_id, brand, name, image_url, analogy, core_feeling, local_context, top_notes, middle_notes, base_notes, wishlist, favorite, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		input.ID, input.UserID, input.Brand, input.Name, input.ImageURL, input.Analogy, input.CoreFeeling,
		input.LocalContext, input.TopNotes, input.MiddleNotes, input.BaseNotes, input.Wishlist, input.Favorite, input.CreatedAt,
	); err != nil {
		return Fragrance{}, fmt.Errorf("insert fragrance: %w", err)
	}

	return input, nil
}

const fragranceColumns = `id, user_id, brand, name, COALESCE(image_url,''), COALESCE(analogy,''), COALESCE(core_feeling,''), COALESCE(local_context,''), COALESCE(top_notes,''), COALESCE(middle_notes,''), COALESCE(base_notes,''), wishlist, favorite, created_at`

// ListFragrances returns the user's fragrances, newest first.
func (s *PostgresStore) ListFragrances(ctx context.Context, userID string, filter FragranceFilter) ([]Fragrance, error) {
	query := `SELECT ` + fragranceColumns + ` FROM fragrances WHERE user_id = $1`
	switch filter {
	case FilterWardrobe:
		query += ` AND wishlist = false`
	case FilterWishlist:
		query += ` AND wishlist = true`
	case FilterFavorites:
		query += ` AND favorite = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query fragrances: %w", err)
	}
	defer rows.Close()

	fragrances := []Fragrance{}
	for rows.Next() {
		item, err := scanFragrance(rows)
		if err != nil {
			return nil, err
		}
		fragrances = append(fragrances, item)
	}
	return fragrances, rows.Err()
}

// GetFragrance returns one fragrance scoped to its owner.
func (s *PostgresStore) GetFragrance(ctx context.Context, userID, id string) (Fragrance, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+fragranceColumns+` FROM fragrances WHERE id = $1 AND user_id = $2`, id, userID)
	item, err := scanFragrance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fragrance{}, ErrNotFound
	}
	return item, err
}

// SetFavorite flips the favorite flag and returns the updated record.
func (s *PostgresStore) SetFavorite(ctx context.Context, userID, id string, favorite bool) (Fragrance, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE fragrances SET favorite = $1 WHERE id = $2 AND user_id = $3`, favorite, id, userID)
	if err != nil {
		return Fragrance{}, fmt.Errorf("update favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Fragrance{}, ErrNotFound
	}
	return s.GetFragrance(ctx, userID, id)
}

// DeleteFragrance removes the record and any saved layerings referencing it.
func (s *PostgresStore) DeleteFragrance(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM fragrances WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete fragrance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM saved_layerings WHERE user_id = $1 AND (base_id = $2 OR layer_id = $2)`, userID, id); err != nil {
		return fmt.Errorf("delete orphaned layerings: %w", err)
	}
	return nil
}

// GetTasteProfile returns the user's stored profile, if any.
func (s *PostgresStore) GetTasteProfile(ctx context.Context, userID string) (TasteProfile, error) {
	var (
		profile   TasteProfile
		occasions []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, COALESCE(preferred_brands, '{}'), COALESCE(preferred_notes, '{}'), COALESCE(style,''), COALESCE(intensity,''), COALESCE(occasions, '{}'::jsonb), updated_at
		 FROM taste_profiles WHERE user_id = $1`, userID,
	).Scan(&profile.UserID, &profile.PreferredBrands, &profile.PreferredNotes, &profile.Style, &profile.Intensity, &occasions, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TasteProfile{}, ErrNotFound
	}
	if err != nil {
		return TasteProfile{}, fmt.Errorf("query taste profile: %w", err)
	}

	if len(occasions) > 0 {
		if err := json.Unmarshal(occasions, &profile.Occasions); err != nil {
			return TasteProfile{}, fmt.Errorf("decode occasions: %w", err)
		}
	}
	return profile, nil
}

// ReplaceTasteProfile swaps the whole profile document for the user.
func (s *PostgresStore) ReplaceTasteProfile(ctx context.Context, profile TasteProfile) (TasteProfile, error) {
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now()
	}
	occasions, err := json.Marshal(profile.Occasions)
	if err != nil {
		return TasteProfile{}, fmt.Errorf("encode occasions: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO taste_profiles (user_id, preferred_brands, preferred_notes, style, intensity, occasions, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   preferred_brands = EXCLUDED.preferred_brands,
		   preferred_notes = EXCLUDED.preferred_notes,
		   style = EXCLUDED.style,
		   intensity = EXCLUDED.intensity,
		   occasions = EXCLUDED.occasions,
		   updated_at = EXCLUDED.updated_at`,
		profile.UserID, profile.PreferredBrands, profile.PreferredNotes, profile.Style, profile.Intensity, occasions, profile.UpdatedAt,
	); err != nil {
		return TasteProfile{}, fmt.Errorf("upsert taste profile: %w", err)
	}
	return profile, nil
}

// DeleteTasteProfile drops the stored profile for the user.
func (s *PostgresStore) DeleteTasteProfile(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM taste_profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete taste profile: %w", err)
	}
	return nil
}

// ListSavedLayerings returns the user's bookmarked pairs, newest first.
func (s *PostgresStore) ListSavedLayerings(ctx context.Context, userID string) ([]SavedLayering, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, base_id, layer_id, name, COALESCE(description,''), COALESCE(occasion,''), harmony_score, created_at
		 FROM saved_layerings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query saved layerings: %w", err)
	}
	defer rows.Close()

	layerings := []SavedLayering{}
	for rows.Next() {
		var item SavedLayering
		if err := rows.Scan(&item.UserID, &item.BaseID, &item.LayerID, &item.Name, &item.Description, &item.Occasion, &item.HarmonyScore, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved layering: %w", err)
		}
		layerings = append(layerings, item)
	}
	return layerings, rows.Err()
}

// SaveLayering upserts a bookmark on its (user, base, layer) key.
func (s *PostgresStore) SaveLayering(ctx context.Context, input SavedLayering) (SavedLayering, error) {
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO saved_layerings (user_id, base_id, layer_id, name, description, occasion, harmony_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, base_id, layer_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   occasion = EXCLUDED.occasion,
		   harmony_score = EXCLUDED.harmony_score`,
		input.UserID, input.BaseID, input.LayerID, input.Name, input.Description, input.Occasion, input.HarmonyScore, input.CreatedAt,
	); err != nil {
		return SavedLayering{}, fmt.Errorf("upsert saved layering: %w", err)
	}
	return input, nil
}

// DeleteSavedLayering removes one bookmark.
func (s *PostgresStore) DeleteSavedLayering(ctx context.Context, userID, baseID, layerID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_layerings WHERE user_id = $1 AND base_id = $2 AND layer_id = $3`, userID, baseID, layerID)
	if err != nil {
		return fmt.Errorf("delete saved layering: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser stores a new account.
func (s *PostgresStore) CreateUser(ctx context.Context, input User) (User, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		input.ID, input.Email, input.PasswordHash, input.CreatedAt); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return input, nil
}

// GetUser returns a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func scanFragrance(row pgx.Row) (Fragrance, error) {
	var item Fragrance
	err := row.Scan(&item.ID, &item.UserID, &item.Brand, &item.Name, &item.ImageURL, &item.Analogy,
		&item.CoreFeeling, &item.LocalContext, &item.TopNotes, &item.MiddleNotes, &item.BaseNotes,
		&item.Wishlist, &item.Favorite, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fragrance{}, err
		}
		return Fragrance{}, fmt.Errorf("scan fragrance: %w", err)
	}
	return item, nil
}
