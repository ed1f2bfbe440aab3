//go:build integration
// +build integration

package database

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"estante/database/dbtest"
	"estante/models"
)

// blockedFor is how long a statement waiting on a row lock is watched before
// the holder releases it.
const blockedFor = 300 * time.Millisecond

func setupPostgres(t *testing.T) *gorm.DB {
	db := dbtest.Postgres(t)
	logger, _ := test.NewNullLogger()
	require.NoError(t, RunMigrations(db, logger))
	return db
}

func assertBlocked(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("finished while the row was locked: %v", err)
	case <-time.After(blockedFor):
	}
}

func TestPostgres_UniqueAndCascade(t *testing.T) {
	db := setupPostgres(t)

	ana := createTestUser(db, "ana@x.com")
	bia := createTestUser(db, "bia@x.com")
	review := createTestReview(db, ana.ID, "OL1W")

	err := db.Omit("Book").Create(&models.Review{UserID: ana.ID, BookID: "OL1W", Rating: 2}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	db.Create(&models.Comment{ReviewID: review.ID, UserID: bia.ID, Content: "hi"})
	db.Create(&models.ReviewLike{ReviewID: review.ID, UserID: bia.ID})
	db.Create(&models.Follow{FollowerID: bia.ID, FollowingID: ana.ID})

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return DeleteUser(tx, ana.ID)
	}))

	assert.Equal(t, int64(0), count(db, &models.Review{}, ""))
	assert.Equal(t, int64(0), count(db, &models.Comment{}, ""))
	assert.Equal(t, int64(0), count(db, &models.ReviewLike{}, ""))
	assert.Equal(t, int64(0), count(db, &models.Follow{}, ""))
}

func TestPostgres_DeleteReviewWaitsForComment(t *testing.T) {
	db := setupPostgres(t)
	ana := createTestUser(db, "ana@x.com")
	bia := createTestUser(db, "bia@x.com")
	review := createTestReview(db, ana.ID, "OL1W")

	tx := db.Begin()
	require.NoError(t, tx.Error)
	ok, err := ReviewExists(tx, review.ID)
	require.NoError(t, err)
	require.True(t, ok)

	deleted := make(chan error, 1)
	go func() {
		deleted <- db.Transaction(func(tx *gorm.DB) error {
			return DeleteReviews(tx, review.ID)
		})
	}()
	assertBlocked(t, deleted)

	require.NoError(t, tx.Create(&models.Comment{ReviewID: review.ID, UserID: bia.ID, Content: "hi"}).Error)
	require.NoError(t, tx.Commit().Error)

	require.NoError(t, <-deleted)
	assert.Equal(t, int64(0), count(db, &models.Review{}, ""))
	assert.Equal(t, int64(0), count(db, &models.Comment{}, ""), "comment outlived its review")
}

func TestPostgres_CheckWaitsForDeletedReview(t *testing.T) {
	db := setupPostgres(t)
	ana := createTestUser(db, "ana@x.com")
	review := createTestReview(db, ana.ID, "OL1W")

	tx := db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, DeleteReviews(tx, review.ID))

	type result struct {
		ok  bool
		err error
	}
	checked := make(chan result, 1)
	go func() {
		var r result
		r.err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			r.ok, err = ReviewExists(tx, review.ID)
			return err
		})
		checked <- r
	}()

	select {
	case r := <-checked:
		t.Fatalf("check finished while the review was being deleted: %+v", r)
	case <-time.After(blockedFor):
	}

	require.NoError(t, tx.Commit().Error)

	r := <-checked
	require.NoError(t, r.err)
	assert.False(t, r.ok)
}

func TestPostgres_DeleteUserWaitsForReview(t *testing.T) {
	db := setupPostgres(t)
	ana := createTestUser(db, "ana@x.com")
	db.Save(&models.Book{ID: "OL1W", Title: "Book OL1W"})

	tx := db.Begin()
	require.NoError(t, tx.Error)
	ok, err := UsersExist(tx, ana.ID)
	require.NoError(t, err)
	require.True(t, ok)

	deleted := make(chan error, 1)
	go func() {
		deleted <- db.Transaction(func(tx *gorm.DB) error {
			return DeleteUser(tx, ana.ID)
		})
	}()
	assertBlocked(t, deleted)

	require.NoError(t, tx.Omit("Book").Create(&models.Review{UserID: ana.ID, BookID: "OL1W", Rating: 3}).Error)
	require.NoError(t, tx.Commit().Error)

	require.NoError(t, <-deleted)
	assert.Equal(t, int64(0), count(db, &models.User{}, ""))
	assert.Equal(t, int64(0), count(db, &models.Review{}, ""), "review outlived its author")
}
