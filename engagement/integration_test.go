//go:build integration
// +build integration

package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estante/common"
	"estante/database"
	"estante/database/dbtest"
	"estante/models"
)

func setupPostgresModule(t *testing.T) *EngagementModule {
	db := dbtest.Postgres(t)
	logger, _ := test.NewNullLogger()
	require.NoError(t, database.RunMigrations(db, logger))
	return NewEngagementModule(db, logger)
}

func TestPostgres_ToggleLikeLosesInsertRace(t *testing.T) {
	m := setupPostgresModule(t)
	ana := createTestUser(t, m.db, "ana")
	bob := createTestUser(t, m.db, "bob")
	review := createTestReview(t, m.db, ana.ID, "OL1W")

	// another toggle has inserted the like but not committed yet
	tx := m.db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, tx.Create(&models.ReviewLike{ReviewID: review.ID, UserID: bob.ID}).Error)

	type result struct {
		liked bool
		err   error
	}
	toggled := make(chan result, 1)
	go func() {
		liked, err := m.ToggleLike(context.Background(), bob, review.ID)
		toggled <- result{liked, err}
	}()

	select {
	case r := <-toggled:
		t.Fatalf("toggle finished before the competing insert committed: %+v", r)
	case <-time.After(300 * time.Millisecond):
	}
	require.NoError(t, tx.Commit().Error)

	r := <-toggled
	require.NoError(t, r.err)
	assert.False(t, r.liked)

	count, err := m.CountLikes(context.Background(), review.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPostgres_ToggleLikeConcurrent(t *testing.T) {
	m := setupPostgresModule(t)
	ana := createTestUser(t, m.db, "ana")
	bob := createTestUser(t, m.db, "bob")
	review := createTestReview(t, m.db, ana.ID, "OL1W")

	for round := 0; round < 20; round++ {
		liked, errs := toggleTwice(m, bob, review.ID)
		for _, err := range errs {
			require.NoError(t, err)
		}
		require.ElementsMatch(t, []bool{true, false}, liked, "round %d", round)

		count, err := m.CountLikes(context.Background(), review.ID)
		require.NoError(t, err)
		require.Zero(t, count, "round %d", round)
	}
}

func TestPostgres_CommentOnDeletedReview(t *testing.T) {
	m := setupPostgresModule(t)
	ana := createTestUser(t, m.db, "ana")
	bob := createTestUser(t, m.db, "bob")
	review := createTestReview(t, m.db, ana.ID, "OL1W")

	tx := m.db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, database.DeleteReviews(tx, review.ID))

	added := make(chan error, 1)
	go func() {
		_, err := m.AddComment(context.Background(), bob, review.ID, "late")
		added <- err
	}()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, tx.Commit().Error)

	assert.ErrorIs(t, <-added, common.ErrNotFound)

	var n int64
	m.db.Model(&models.Comment{}).Count(&n)
	assert.Zero(t, n)
}
