package model

import "time"

// Author represents a row in the `authors` table. An author owns zero or
// more books; deleting an author that still has books is rejected by the
// foreign key on books.author_id.
type Author struct {
	ID        uint64     `db:"id" json:"id"`                 // authors.id
	Name      string     `db:"name" json:"name"`             // authors.name
	Bio       string     `db:"bio" json:"bio"`               // authors.bio
	Birthdate *time.Time `db:"birthdate" json:"birthdate"`   // authors.birthdate (nullable)
	CreatedAt time.Time  `db:"created_at" json:"created_at"` // authors.created_at
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"` // authors.updated_at
}
