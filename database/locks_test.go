package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewExists(t *testing.T) {
	db := setupTestDB(t)
	ana := createTestUser(db, "ana@x.com")
	review := createTestReview(db, ana.ID, "OL1W")

	ok, err := ReviewExists(db, review.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ReviewExists(db, review.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsersExist(t *testing.T) {
	db := setupTestDB(t)
	ana := createTestUser(db, "ana@x.com")
	bia := createTestUser(db, "bia@x.com")

	tests := []struct {
		name string
		ids  []uint
		want bool
	}{
		{"One", []uint{ana.ID}, true},
		{"Both", []uint{bia.ID, ana.ID}, true},
		{"Repeated", []uint{ana.ID, ana.ID}, true},
		{"OneMissing", []uint{ana.ID, 9999}, false},
		{"Missing", []uint{9999}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := UsersExist(db, tt.ids...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
