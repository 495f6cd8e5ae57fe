package model

import "time"

// Review is a user's rating and comment on a book. Rating is 1..5.
type Review struct {
	ID        uint64    `db:"id" json:"id"`
	BookID    uint64    `db:"book_id" json:"book_id"`
	UserID    uint64    `db:"user_id" json:"user_id"`
	Comment   string    `db:"comment" json:"comment"`
	Rating    int       `db:"rating" json:"rating"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewWithUser is a review joined with the reviewer's display name.
type ReviewWithUser struct {
	Review
	UserName string `db:"user_name" json:"user_name"`
}
