package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dsavelev/reviewpress/internal/article"
	"github.com/dsavelev/reviewpress/internal/author"
)

type ArticleMemoryStorage struct {
	mu            sync.Mutex
	articles      map[uint]*article.ArticleWithAuthor
	nextID        uint
	authorStorage author.AuthorStorage // for joining the nickname (DI)
}

func NewArticleMemoryStorage(authorStore author.AuthorStorage) *ArticleMemoryStorage {
	return &ArticleMemoryStorage{
		articles:      make(map[uint]*article.ArticleWithAuthor),
		nextID:        1,
		authorStorage: authorStore,
	}
}

func (s *ArticleMemoryStorage) CreateArticle(ctx context.Context, title, content, authorID string) (*article.ArticleWithAuthor, error) {
	owner, err := s.authorStorage.GetAuthor(authorID)
	if err != nil {
		return nil, fmt.Errorf("could not get article author: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	row := &article.ArticleWithAuthor{
		ID:             id,
		Title:          title,
		Content:        content,
		AuthorID:       owner.ID,
		AuthorNickname: owner.Nickname,
	}

	s.articles[id] = row
	copied := *row
	return &copied, nil
}

func (s *ArticleMemoryStorage) GetArticleWithAuthor(id uint) (*article.ArticleWithAuthor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.articles[id]
	if !ok {
		return nil, article.ErrNotFound
	}

	copied := *row
	return &copied, nil
}

func (s *ArticleMemoryStorage) ListArticlesWithAuthors() ([]*article.ArticleWithAuthor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*article.ArticleWithAuthor
	for _, row := range s.articles {
		copied := *row
		results = append(results, &copied)
	}

	// newest first, same as the database implementation
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID > results[j].ID
	})

	return results, nil
}
