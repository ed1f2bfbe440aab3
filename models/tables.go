package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Bio          *string   `json:"bio"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Book is the local mirror of a catalog entry. ID is the catalog's external
// identifier (e.g. OpenLibrary work id "OL82563W").
type Book struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title     string    `gorm:"not null;index" json:"title"`
	Author    *string   `gorm:"index" json:"author"`
	CoverURL  *string   `json:"cover_url"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uq_review_user_book,priority:1" json:"user_id"`
	BookID    string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_review_user_book,priority:2;index" json:"book_id"`
	Content   *string   `gorm:"type:text" json:"content"`
	Rating    int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Book Book `gorm:"foreignKey:BookID;references:ID" json:"book"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReviewID  uint      `gorm:"not null;index" json:"review_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ReviewLike struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReviewID  uint      `gorm:"not null;uniqueIndex:uq_like_review_user,priority:1" json:"review_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uq_like_review_user,priority:2;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:uq_follow_pair,priority:1" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:uq_follow_pair,priority:2;index;check:chk_follows_no_self,follower_id <> following_id" json:"following_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// All lists every table in dependency order, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Book{},
		&Review{},
		&Comment{},
		&ReviewLike{},
		&Follow{},
	}
}
