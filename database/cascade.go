package database

import (
	"gorm.io/gorm"

	"estante/models"
)

// Foreign keys are not declared on the tables, so dependents are removed
// explicitly. Every function here expects to run inside a transaction, and
// each deletes the parent row before its dependents (see locks.go).

// DeleteReviews removes the given reviews together with their comments and likes.
func DeleteReviews(tx *gorm.DB, reviewIDs ...uint) error {
	if len(reviewIDs) == 0 {
		return nil
	}
	if err := tx.Where("id IN ?", reviewIDs).Delete(&models.Review{}).Error; err != nil {
		return err
	}
	if err := tx.Where("review_id IN ?", reviewIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("review_id IN ?", reviewIDs).Delete(&models.ReviewLike{}).Error
}

// DeleteUser removes a user and everything that only exists in reference to
// them: their reviews (with the reviews' comments and likes), the comments
// and likes they left elsewhere, and follow edges in both directions.
func DeleteUser(tx *gorm.DB, userID uint) error {
	if err := tx.Delete(&models.User{}, userID).Error; err != nil {
		return err
	}

	var reviewIDs []uint
	if err := tx.Model(&models.Review{}).Where("user_id = ?", userID).Pluck("id", &reviewIDs).Error; err != nil {
		return err
	}
	if err := DeleteReviews(tx, reviewIDs...); err != nil {
		return err
	}

	if err := tx.Where("user_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.ReviewLike{}).Error; err != nil {
		return err
	}
	return tx.Where("follower_id = ? OR following_id = ?", userID, userID).Delete(&models.Follow{}).Error
}
