package memory

import (
	"sync"

	"github.com/dsavelev/reviewpress/internal/author"
)

type AuthorMemoryStorage struct {
	mu      sync.Mutex
	authors map[string]*author.Author
}

func NewAuthorMemoryStorage() *AuthorMemoryStorage {
	return &AuthorMemoryStorage{
		authors: make(map[string]*author.Author),
	}
}

func (s *AuthorMemoryStorage) GetOrCreateAuthor(externalID, nickname string) (*author.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Insert and lookup under one lock, matching the insert-on-conflict
	// semantics of the database implementation.
	existing, ok := s.authors[externalID]
	if ok {
		return &author.Author{ID: existing.ID, Nickname: existing.Nickname}, nil
	}

	created := &author.Author{ID: externalID, Nickname: nickname}
	s.authors[externalID] = created
	return &author.Author{ID: created.ID, Nickname: created.Nickname}, nil
}

func (s *AuthorMemoryStorage) GetAuthor(externalID string) (*author.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.authors[externalID]
	if !ok {
		return nil, author.ErrNotFound
	}

	return &author.Author{ID: existing.ID, Nickname: existing.Nickname}, nil
}
