package article

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("article not found")

// ArticleWithAuthor is the join result served to the views: one article row
// together with its owning author's display data.
type ArticleWithAuthor struct {
	ID             uint
	Title          string
	Content        string
	AuthorID       string
	AuthorNickname string
}

type ArticleStorage interface {
	CreateArticle(ctx context.Context, title, content, authorID string) (*ArticleWithAuthor, error)
	GetArticleWithAuthor(id uint) (*ArticleWithAuthor, error)
	// ListArticlesWithAuthors returns every article joined with its author,
	// newest first.
	ListArticlesWithAuthors() ([]*ArticleWithAuthor, error)
}
