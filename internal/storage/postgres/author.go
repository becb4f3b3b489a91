package postgres

import (
	"fmt"

	"github.com/jinzhu/gorm"

	"github.com/dsavelev/reviewpress/internal/author"
	"github.com/dsavelev/reviewpress/models"
)

type AuthorPostgresStorage struct{}

func NewAuthorPostgresStorage() *AuthorPostgresStorage {
	return &AuthorPostgresStorage{}
}

// GetOrCreateAuthor inserts the author row on first login. The insert is a
// single ON CONFLICT DO NOTHING statement, not a read-then-write, so two
// concurrent first logins of the same identity cannot race into a duplicate
// key error. An existing row keeps its original nickname.
func (s *AuthorPostgresStorage) GetOrCreateAuthor(externalID, nickname string) (*author.Author, error) {
	err := DB.Exec(
		"INSERT INTO authors (id, nickname) VALUES (?, ?) ON CONFLICT (id) DO NOTHING",
		externalID, nickname,
	).Error
	if err != nil {
		return nil, fmt.Errorf("could not create author: %w", err)
	}

	return s.GetAuthor(externalID)
}

func (s *AuthorPostgresStorage) GetAuthor(externalID string) (*author.Author, error) {
	var row models.Author
	err := DB.Where("id = ?", externalID).First(&row).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, author.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get author: %w", err)
	}

	return &author.Author{
		ID:       row.ID,
		Nickname: row.Nickname,
	}, nil
}
