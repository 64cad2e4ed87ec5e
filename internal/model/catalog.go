package model

import "time"

// AuthorRef is the short form of an author embedded in a Book.
type AuthorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Book is a title in the library catalog. Authors are loaded with an
// application-level join over the book_authors table.
type Book struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	ISBN        string      `json:"isbn"`
	PublishedAt time.Time   `json:"publishedAt"`
	Authors     []AuthorRef `json:"authors"`
}

// Author writes books. Bio and BirthDate are optional.
type Author struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Bio       *string    `json:"bio,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}
