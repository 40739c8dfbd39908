package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreFragranceLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	created, err := store.CreateFragrance(ctx, Fragrance{
		UserID:   "u1",
		Brand:    "Dior",
		Name:     "Sauvage",
		TopNotes: "bergamot,pepper",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	wish, err := store.CreateFragrance(ctx, Fragrance{UserID: "u1", Brand: "Chanel", Name: "No 5", Wishlist: true})
	require.NoError(t, err)

	_, err = store.CreateFragrance(ctx, Fragrance{UserID: "u2", Brand: "Creed", Name: "Aventus"})
	require.NoError(t, err)

	all, err := store.ListFragrances(ctx, "u1", FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	wardrobe, err := store.ListFragrances(ctx, "u1", FilterWardrobe)
	require.NoError(t, err)
	require.Len(t, wardrobe, 1)
	assert.Equal(t, created.ID, wardrobe[0].ID)

	wishlist, err := store.ListFragrances(ctx, "u1", FilterWishlist)
	require.NoError(t, err)
	require.Len(t, wishlist, 1)
	assert.Equal(t, wish.ID, wishlist[0].ID)

	updated, err := store.SetFavorite(ctx, "u1", created.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Favorite)

	favorites, err := store.ListFragrances(ctx, "u1", FilterFavorites)
	require.NoError(t, err)
	assert.Len(t, favorites, 1)

	// Ownership is enforced on reads and writes.
	_, err = store.GetFragrance(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	err = store.DeleteFragrance(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteFragrance(ctx, "u1", created.ID))
	_, err = store.GetFragrance(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreTasteProfileReplace(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.GetTasteProfile(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := store.ReplaceTasteProfile(ctx, TasteProfile{
		UserID:          "u1",
		PreferredBrands: []string{"Dior"},
		Style:           "Fresh",
		Intensity:       "Moderate",
		Occasions:       map[string]int{"office": 3},
	})
	require.NoError(t, err)
	assert.False(t, first.UpdatedAt.IsZero())

	second, err := store.ReplaceTasteProfile(ctx, TasteProfile{
		UserID:    "u1",
		Style:     "Woody",
		Intensity: "Strong",
	})
	require.NoError(t, err)

	got, err := store.GetTasteProfile(ctx, "u1")
	require.NoError(t, err)
	// Whole-document replacement: no fields survive from the first write.
	assert.Equal(t, second.Style, got.Style)
	assert.Empty(t, got.PreferredBrands)
	assert.Empty(t, got.Occasions)

	require.NoError(t, store.DeleteTasteProfile(ctx, "u1"))
	_, err = store.GetTasteProfile(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreSavedLayerings(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	base, err := store.CreateFragrance(ctx, Fragrance{UserID: "u1", Brand: "Dior", Name: "Sauvage"})
	require.NoError(t, err)
	layer, err := store.CreateFragrance(ctx, Fragrance{UserID: "u1", Brand: "Chanel", Name: "No 5"})
	require.NoError(t, err)

	saved, err := store.SaveLayering(ctx, SavedLayering{
		UserID: "u1", BaseID: base.ID, LayerID: layer.ID, Name: "Citrus Veil", HarmonyScore: 88,
	})
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())

	// Saving the same pair again updates in place.
	_, err = store.SaveLayering(ctx, SavedLayering{
		UserID: "u1", BaseID: base.ID, LayerID: layer.ID, Name: "Citrus Veil II", HarmonyScore: 90,
	})
	require.NoError(t, err)

	list, err := store.ListSavedLayerings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Citrus Veil II", list[0].Name)

	// Deleting a fragrance clears bookmarks that reference it.
	require.NoError(t, store.DeleteFragrance(ctx, "u1", base.ID))
	list, err = store.ListSavedLayerings(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
