package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dsavelev/reviewpress/internal/article"
	"github.com/dsavelev/reviewpress/internal/author"
	"github.com/dsavelev/reviewpress/internal/review"
)

type ReviewMemoryStorage struct {
	mu             sync.Mutex
	reviews        map[uint]*review.ReviewWithAuthor
	nextID         uint
	articleStorage article.ArticleStorage // target existence check (DI)
	authorStorage  author.AuthorStorage
}

func NewReviewMemoryStorage(articleStore article.ArticleStorage, authorStore author.AuthorStorage) *ReviewMemoryStorage {
	return &ReviewMemoryStorage{
		reviews:        make(map[uint]*review.ReviewWithAuthor),
		nextID:         1,
		articleStorage: articleStore,
		authorStorage:  authorStore,
	}
}

func (s *ReviewMemoryStorage) CreateReview(ctx context.Context, articleID uint, authorID, content string) (*review.ReviewWithAuthor, error) {
	_, err := s.articleStorage.GetArticleWithAuthor(articleID)
	if err != nil {
		return nil, review.ErrArticleNotFound
	}

	reviewer, err := s.authorStorage.GetAuthor(authorID)
	if err != nil {
		return nil, fmt.Errorf("could not get review author: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	row := &review.ReviewWithAuthor{
		ID:             id,
		ArticleID:      articleID,
		Content:        content,
		AuthorID:       reviewer.ID,
		AuthorNickname: reviewer.Nickname,
	}

	s.reviews[id] = row
	copied := *row
	return &copied, nil
}

func (s *ReviewMemoryStorage) ListReviewsForArticle(articleID uint) ([]*review.ReviewWithAuthor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*review.ReviewWithAuthor
	for _, row := range s.reviews {
		if row.ArticleID == articleID {
			copied := *row
			results = append(results, &copied)
		}
	}

	// oldest first, same as the database implementation
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})

	return results, nil
}
