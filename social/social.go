package social

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estante/common"
	"estante/database"
	"estante/metrics"
	"estante/models"
)

type SocialModule struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewSocialModule(db *gorm.DB, log logrus.FieldLogger) *SocialModule {
	return &SocialModule{
		db:  db,
		log: log.WithField("module", "social"),
	}
}

// Follow makes actor follow target. Following someone twice is a no-op.
func (m *SocialModule) Follow(ctx context.Context, actor *models.User, targetID uint) error {
	if actor.ID == targetID {
		return common.ErrSelfFollow
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := database.UsersExist(tx, actor.ID, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %d: %w", targetID, common.ErrNotFound)
		}

		edge := models.Follow{FollowerID: actor.ID, FollowingID: targetID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
	})
	if err != nil {
		return err
	}

	metrics.RecordEvent("user_followed")
	return nil
}

// Unfollow removes the edge if there is one.
func (m *SocialModule) Unfollow(ctx context.Context, actor *models.User, targetID uint) error {
	err := m.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", actor.ID, targetID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return err
	}

	metrics.RecordEvent("user_unfollowed")
	return nil
}

func (m *SocialModule) FollowStatus(ctx context.Context, actor *models.User, targetID uint) (bool, error) {
	var n int64
	err := m.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", actor.ID, targetID).
		Count(&n).Error
	return n > 0, err
}

// ListFollowing returns the users actor follows, in the order they were followed.
func (m *SocialModule) ListFollowing(ctx context.Context, actor *models.User, page common.Page) ([]models.User, error) {
	return m.listUsers(ctx, page, "follows.following_id = users.id", "follows.follower_id = ?", actor.ID)
}

// ListFollowers returns the users following actor, in the order they followed.
func (m *SocialModule) ListFollowers(ctx context.Context, actor *models.User, page common.Page) ([]models.User, error) {
	return m.listUsers(ctx, page, "follows.follower_id = users.id", "follows.following_id = ?", actor.ID)
}

func (m *SocialModule) listUsers(ctx context.Context, page common.Page, on, where string, userID uint) ([]models.User, error) {
	page = page.Normalize(common.DefaultPageSize)

	var users []models.User
	err := m.db.WithContext(ctx).
		Joins("JOIN follows ON "+on).
		Where(where, userID).
		Order("follows.id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// FeedForFollowing returns reviews written by the users actor follows,
// newest first.
func (m *SocialModule) FeedForFollowing(ctx context.Context, actor *models.User, page common.Page) ([]models.Review, error) {
	page = page.Normalize(common.DefaultPageSize)

	var reviews []models.Review
	err := m.db.WithContext(ctx).
		Preload("Book").
		Joins("JOIN follows ON follows.following_id = reviews.user_id").
		Where("follows.follower_id = ?", actor.ID).
		Order("reviews.created_at DESC, reviews.id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}
