package postgres

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"

	"github.com/dsavelev/reviewpress/internal/article"
	"github.com/dsavelev/reviewpress/models"
)

type ArticlePostgresStorage struct{}

func NewArticlePostgresStorage() *ArticlePostgresStorage {
	return &ArticlePostgresStorage{}
}

// articleAuthorRow is the scan target for the articles/authors join.
type articleAuthorRow struct {
	ID       uint
	Title    string
	Content  string
	AuthorID string
	Nickname string
}

func (r articleAuthorRow) toResult() *article.ArticleWithAuthor {
	return &article.ArticleWithAuthor{
		ID:             r.ID,
		Title:          r.Title,
		Content:        r.Content,
		AuthorID:       r.AuthorID,
		AuthorNickname: r.Nickname,
	}
}

func (s *ArticlePostgresStorage) CreateArticle(ctx context.Context, title, content, authorID string) (*article.ArticleWithAuthor, error) {
	row := &models.Article{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}

	err := DB.Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("could not create article: %w", err)
	}

	return s.GetArticleWithAuthor(row.ID)
}

func (s *ArticlePostgresStorage) GetArticleWithAuthor(id uint) (*article.ArticleWithAuthor, error) {
	var row articleAuthorRow
	err := DB.Table("articles").
		Select("articles.id, articles.title, articles.content, articles.author_id, authors.nickname").
		Joins("JOIN authors ON authors.id = articles.author_id").
		Where("articles.id = ?", id).
		Scan(&row).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, article.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get article by id: %w", err)
	}

	return row.toResult(), nil
}

func (s *ArticlePostgresStorage) ListArticlesWithAuthors() ([]*article.ArticleWithAuthor, error) {
	var rows []articleAuthorRow
	err := DB.Table("articles").
		Select("articles.id, articles.title, articles.content, articles.author_id, authors.nickname").
		Joins("JOIN authors ON authors.id = articles.author_id").
		Order("articles.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not get articles: %w", err)
	}

	var results []*article.ArticleWithAuthor
	for _, row := range rows {
		results = append(results, row.toResult())
	}

	return results, nil
}
