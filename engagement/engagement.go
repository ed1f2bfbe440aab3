package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estante/common"
	"estante/database"
	"estante/metrics"
	"estante/models"
)

const DefaultCommentPageSize = 10

type EngagementModule struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// CommentView is a comment together with its author's display name.
type CommentView struct {
	ID        uint      `json:"id"`
	ReviewID  uint      `json:"review_id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEngagementModule(db *gorm.DB, log logrus.FieldLogger) *EngagementModule {
	return &EngagementModule{
		db:  db,
		log: log.WithField("module", "engagement"),
	}
}

func requireReview(tx *gorm.DB, reviewID uint) error {
	ok, err := database.ReviewExists(tx, reviewID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("review %d: %w", reviewID, common.ErrNotFound)
	}
	return nil
}

// lockParents holds the acting user and the review in place until tx ends.
func lockParents(tx *gorm.DB, actor *models.User, reviewID uint) error {
	ok, err := database.UsersExist(tx, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", actor.ID, common.ErrNotFound)
	}
	return requireReview(tx, reviewID)
}

func (m *EngagementModule) AddComment(ctx context.Context, actor *models.User, reviewID uint, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, common.Invalid("content is required")
	}

	comment := models.Comment{
		ReviewID: reviewID,
		UserID:   actor.ID,
		Content:  content,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockParents(tx, actor, reviewID); err != nil {
			return err
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEvent("comment_added")
	return &comment, nil
}

// ListComments returns the comments on a review in the order they were made.
func (m *EngagementModule) ListComments(ctx context.Context, reviewID uint, page common.Page) ([]CommentView, error) {
	page = page.Normalize(DefaultCommentPageSize)
	db := m.db.WithContext(ctx)

	if err := requireReview(db, reviewID); err != nil {
		return nil, err
	}

	views := []CommentView{}
	err := db.Model(&models.Comment{}).
		Select("comments.id, comments.review_id, comments.user_id, users.name AS user_name, comments.content, comments.created_at").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.review_id = ?", reviewID).
		Order("comments.id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (m *EngagementModule) DeleteComment(ctx context.Context, actor *models.User, commentID uint) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("comment %d: %w", commentID, common.ErrNotFound)
			}
			return err
		}
		if comment.UserID != actor.ID {
			return fmt.Errorf("comment %d: %w", commentID, common.ErrForbidden)
		}
		return tx.Delete(&comment).Error
	})
}

// ToggleLike flips actor's like on a review and reports whether the review is
// liked afterwards. If a concurrent toggle inserts the like between this
// toggle's delete and insert, this toggle takes the other side and removes it,
// so two racing toggles behave like two serial ones.
func (m *EngagementModule) ToggleLike(ctx context.Context, actor *models.User, reviewID uint) (bool, error) {
	var liked bool
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockParents(tx, actor, reviewID); err != nil {
			return err
		}

		result := tx.Where("review_id = ? AND user_id = ?", reviewID, actor.ID).Delete(&models.ReviewLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			liked = false
			return nil
		}

		like := models.ReviewLike{ReviewID: reviewID, UserID: actor.ID}
		result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			liked = false
			return tx.Where("review_id = ? AND user_id = ?", reviewID, actor.ID).Delete(&models.ReviewLike{}).Error
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if liked {
		metrics.RecordEvent("review_liked")
	} else {
		metrics.RecordEvent("review_unliked")
	}
	return liked, nil
}

// CountLikes returns the number of likes on a review; unknown reviews have none.
func (m *EngagementModule) CountLikes(ctx context.Context, reviewID uint) (int64, error) {
	var n int64
	err := m.db.WithContext(ctx).Model(&models.ReviewLike{}).Where("review_id = ?", reviewID).Count(&n).Error
	return n, err
}
