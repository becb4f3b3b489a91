package postgres

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"

	"github.com/dsavelev/reviewpress/internal/review"
	"github.com/dsavelev/reviewpress/models"
)

type ReviewPostgresStorage struct{}

func NewReviewPostgresStorage() *ReviewPostgresStorage {
	return &ReviewPostgresStorage{}
}

type reviewAuthorRow struct {
	ID        uint
	ArticleID uint
	Content   string
	AuthorID  string
	Nickname  string
}

func (r reviewAuthorRow) toResult() *review.ReviewWithAuthor {
	return &review.ReviewWithAuthor{
		ID:             r.ID,
		ArticleID:      r.ArticleID,
		Content:        r.Content,
		AuthorID:       r.AuthorID,
		AuthorNickname: r.Nickname,
	}
}

func (s *ReviewPostgresStorage) CreateReview(ctx context.Context, articleID uint, authorID, content string) (*review.ReviewWithAuthor, error) {
	// Reviews against missing articles are rejected here rather than left to
	// the foreign key, so callers get a distinct not-found error instead of a
	// constraint violation.
	var target models.Article
	err := DB.First(&target, articleID).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, review.ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get article: %w", err)
	}

	row := &models.Review{
		ArticleID: articleID,
		AuthorID:  authorID,
		Content:   content,
	}

	err = DB.Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("could not create review: %w", err)
	}

	var nickname struct{ Nickname string }
	err = DB.Table("authors").Select("nickname").Where("id = ?", authorID).Scan(&nickname).Error
	if err != nil {
		return nil, fmt.Errorf("could not get review author: %w", err)
	}

	return &review.ReviewWithAuthor{
		ID:             row.ID,
		ArticleID:      row.ArticleID,
		Content:        row.Content,
		AuthorID:       row.AuthorID,
		AuthorNickname: nickname.Nickname,
	}, nil
}

func (s *ReviewPostgresStorage) ListReviewsForArticle(articleID uint) ([]*review.ReviewWithAuthor, error) {
	var rows []reviewAuthorRow
	err := DB.Table("reviews").
		Select("reviews.id, reviews.article_id, reviews.content, reviews.author_id, authors.nickname").
		Joins("JOIN authors ON authors.id = reviews.author_id").
		Where("reviews.article_id = ?", articleID).
		Order("reviews.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not get reviews: %w", err)
	}

	var results []*review.ReviewWithAuthor
	for _, row := range rows {
		results = append(results, row.toResult())
	}

	return results, nil
}
