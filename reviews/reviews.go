package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"estante/common"
	"estante/database"
	"estante/metrics"
	"estante/models"
)

// BookResolver resolves an external book id into a cached book record.
type BookResolver interface {
	GetOrFetch(ctx context.Context, id string) (*models.Book, error)
}

type ReviewsModule struct {
	db    *gorm.DB
	books BookResolver
	log   logrus.FieldLogger
}

// EditInput carries optional review changes; nil fields are left alone.
type EditInput struct {
	Content *string `json:"content"`
	Rating  *int    `json:"rating"`
}

func NewReviewsModule(db *gorm.DB, books BookResolver, log logrus.FieldLogger) *ReviewsModule {
	return &ReviewsModule{
		db:    db,
		books: books,
		log:   log.WithField("module", "reviews"),
	}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return common.ErrInvalidRating
	}
	return nil
}

// Create records actor's review of the book with the given external id. The
// book is fetched from the catalog if it is not cached yet.
func (m *ReviewsModule) Create(ctx context.Context, actor *models.User, bookID string, content *string, rating int) (*models.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	book, err := m.books.GetOrFetch(ctx, bookID)
	if err != nil {
		return nil, err
	}

	review := models.Review{
		UserID:  actor.ID,
		BookID:  book.ID,
		Content: content,
		Rating:  rating,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := database.UsersExist(tx, actor.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %d: %w", actor.ID, common.ErrNotFound)
		}
		// the (user_id, book_id) unique index decides between concurrent creates
		return tx.Omit("Book").Create(&review).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.ErrDuplicateReview
		}
		return nil, err
	}
	review.Book = *book

	metrics.RecordEvent("review_created")
	m.log.WithFields(logrus.Fields{
		"review_id": review.ID,
		"user_id":   actor.ID,
		"book_id":   book.ID,
	}).Info("review created")
	return &review, nil
}

func (m *ReviewsModule) Get(ctx context.Context, reviewID uint) (*models.Review, error) {
	return findReview(m.db.WithContext(ctx), reviewID)
}

// Edit applies input to a review owned by actor. An empty input returns the
// review unchanged without writing.
func (m *ReviewsModule) Edit(ctx context.Context, actor *models.User, reviewID uint, input EditInput) (*models.Review, error) {
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
	}

	var review *models.Review
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		review, err = ownedReview(tx, actor, reviewID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if input.Content != nil {
			updates["content"] = *input.Content
		}
		if input.Rating != nil {
			updates["rating"] = *input.Rating
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Review{}).Where("id = ?", reviewID).Updates(updates).Error; err != nil {
			return err
		}
		review, err = findReview(tx, reviewID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEvent("review_edited")
	return review, nil
}

// Delete removes a review owned by actor together with its comments and likes.
func (m *ReviewsModule) Delete(ctx context.Context, actor *models.User, reviewID uint) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedReview(tx, actor, reviewID); err != nil {
			return err
		}
		return database.DeleteReviews(tx, reviewID)
	})
	if err != nil {
		return err
	}

	metrics.RecordEvent("review_deleted")
	m.log.WithFields(logrus.Fields{"review_id": reviewID, "user_id": actor.ID}).Info("review deleted")
	return nil
}

// ListByBook returns the reviews of one book, newest first. Unknown books
// have no reviews.
func (m *ReviewsModule) ListByBook(ctx context.Context, bookID string, page common.Page) ([]models.Review, error) {
	return m.list(ctx, page, func(q *gorm.DB) *gorm.DB {
		return q.Where("book_id = ?", bookID)
	})
}

// FeedRecent returns the newest reviews across all users.
func (m *ReviewsModule) FeedRecent(ctx context.Context, page common.Page) ([]models.Review, error) {
	return m.list(ctx, page, func(q *gorm.DB) *gorm.DB { return q })
}

func (m *ReviewsModule) ListByUser(ctx context.Context, userID uint, page common.Page) ([]models.Review, error) {
	return m.list(ctx, page, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	})
}

func (m *ReviewsModule) list(ctx context.Context, page common.Page, scope func(*gorm.DB) *gorm.DB) ([]models.Review, error) {
	page = page.Normalize(common.DefaultPageSize)

	var reviews []models.Review
	err := m.db.WithContext(ctx).
		Scopes(scope).
		Preload("Book").
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func findReview(db *gorm.DB, reviewID uint) (*models.Review, error) {
	var review models.Review
	if err := db.Preload("Book").First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review %d: %w", reviewID, common.ErrNotFound)
		}
		return nil, err
	}
	return &review, nil
}

func ownedReview(tx *gorm.DB, actor *models.User, reviewID uint) (*models.Review, error) {
	review, err := findReview(tx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != actor.ID {
		return nil, fmt.Errorf("review %d: %w", reviewID, common.ErrForbidden)
	}
	return review, nil
}
