package model

import "time"

// BookStatus is the availability state of a book. Only the lifecycle
// engine changes it once the book exists.
type BookStatus string

const (
	BookAvailable BookStatus = "Available"
	BookBorrowed  BookStatus = "Borrowed"
)

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool { return s == BookAvailable || s == BookBorrowed }

// Book represents a catalog entry in the `books` table.
//
// Fields:
//
//	ID            – primary key identifier.
//	Title         – display title.
//	ISBN          – unique ISBN string.
//	AuthorID      – references authors.id.
//	PublishedDate – publication date (DATE column).
//	Status        – Available or Borrowed.
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type Book struct {
	ID            uint64     `db:"id" json:"id"`                         // books.id
	Title         string     `db:"title" json:"title"`                   // books.title
	ISBN          string     `db:"isbn" json:"isbn"`                     // books.isbn
	AuthorID      uint64     `db:"author_id" json:"author_id"`           // books.author_id
	PublishedDate time.Time  `db:"published_date" json:"published_date"` // books.published_date
	Status        BookStatus `db:"status" json:"status"`                 // books.status
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`         // books.created_at
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`         // books.updated_at
}

// BookWithAuthor is a book joined with its author's name for listings.
type BookWithAuthor struct {
	Book
	AuthorName string `db:"author_name" json:"author_name"`
}
