package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsavelev/reviewpress/internal/article"
)

func newArticleFixture(t *testing.T) (*ArticleMemoryStorage, string) {
	authors := NewAuthorMemoryStorage()
	_, err := authors.GetOrCreateAuthor("alice@example.com", "Alice")
	require.NoError(t, err)

	return NewArticleMemoryStorage(authors), "alice@example.com"
}

func TestArticleMemoryStorage_CreateArticle(t *testing.T) {
	t.Run("Success article creation", func(t *testing.T) {
		storage, authorID := newArticleFixture(t)

		created, err := storage.CreateArticle(context.Background(), "Hello", "World", authorID)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Hello", created.Title)
		assert.Equal(t, "World", created.Content)
		assert.Equal(t, authorID, created.AuthorID)
		assert.Equal(t, "Alice", created.AuthorNickname)

		got, err := storage.GetArticleWithAuthor(created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Hello", got.Title)
	})

	t.Run("Unknown author is rejected", func(t *testing.T) {
		storage, _ := newArticleFixture(t)

		_, err := storage.CreateArticle(context.Background(), "Hello", "World", "ghost@example.com")
		assert.Error(t, err)
	})
}

func TestArticleMemoryStorage_GetArticleWithAuthor(t *testing.T) {
	storage, _ := newArticleFixture(t)

	t.Run("Trying to get not exist article", func(t *testing.T) {
		_, err := storage.GetArticleWithAuthor(999)
		assert.ErrorIs(t, err, article.ErrNotFound)
	})
}

func TestArticleMemoryStorage_ListArticlesWithAuthors(t *testing.T) {
	t.Run("Newest first", func(t *testing.T) {
		storage, authorID := newArticleFixture(t)

		first, err := storage.CreateArticle(context.Background(), "Article 1", "Content 1", authorID)
		require.NoError(t, err)
		second, err := storage.CreateArticle(context.Background(), "Article 2", "Content 2", authorID)
		require.NoError(t, err)

		articles, err := storage.ListArticlesWithAuthors()
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, second.ID, articles[0].ID)
		assert.Equal(t, first.ID, articles[1].ID)
	})

	t.Run("Empty storage yields empty list", func(t *testing.T) {
		storage, _ := newArticleFixture(t)

		articles, err := storage.ListArticlesWithAuthors()
		require.NoError(t, err)
		assert.Empty(t, articles)
	})
}
