package review

import (
	"context"
	"errors"
)

// ErrArticleNotFound is returned when a review targets an article that does
// not exist. Reviews are never accepted against missing articles.
var ErrArticleNotFound = errors.New("article not found")

// ReviewWithAuthor is the join result served to the views: one review row
// together with its author's display data.
type ReviewWithAuthor struct {
	ID             uint
	ArticleID      uint
	Content        string
	AuthorID       string
	AuthorNickname string
}

type ReviewStorage interface {
	CreateReview(ctx context.Context, articleID uint, authorID, content string) (*ReviewWithAuthor, error)
	// ListReviewsForArticle returns the reviews of one article joined with
	// their authors, oldest first.
	ListReviewsForArticle(articleID uint) ([]*ReviewWithAuthor, error)
}
