package author

import "errors"

var ErrNotFound = errors.New("author not found")

type Author struct {
	ID       string
	Nickname string
}

type AuthorStorage interface {
	// GetOrCreateAuthor inserts the author if the external id is unseen and
	// returns the stored row either way. The first caller's nickname wins:
	// an existing row is never rewritten. Must be atomic (insert-on-conflict),
	// concurrent first logins of the same identity produce exactly one row.
	GetOrCreateAuthor(externalID, nickname string) (*Author, error)
	GetAuthor(externalID string) (*Author, error)
}
