package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitNotes(t *testing.T) {
	assert.Equal(t, []string{"bergamot", "citrus", "mint"}, SplitNotes("bergamot, citrus ,mint"))
	assert.Equal(t, []string{}, SplitNotes(""))
	assert.Equal(t, []string{}, SplitNotes("  ,  , "))
	assert.Equal(t, []string{"rose"}, SplitNotes("rose,"))
}

func TestJoinNotes(t *testing.T) {
	assert.Equal(t, "bergamot,citrus", JoinNotes([]string{" bergamot", "citrus ", "Bergamot", ""}))
	assert.Equal(t, "", JoinNotes(nil))
	assert.Equal(t, "rose,jasmine", JoinNotes([]string{"rose", "jasmine"}))
}

func TestNotesRoundTrip(t *testing.T) {
	notes := []string{"oud", "amber", "vanilla"}
	assert.Equal(t, notes, SplitNotes(JoinNotes(notes)))
}
