package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/dsavelev/reviewpress/internal/article"
	"github.com/dsavelev/reviewpress/internal/auth"
	"github.com/dsavelev/reviewpress/internal/authflow"
	"github.com/dsavelev/reviewpress/internal/author"
	"github.com/dsavelev/reviewpress/internal/review"
	"github.com/dsavelev/reviewpress/internal/session"
)

type indexData struct {
	Author   *author.Author
	Articles []*article.ArticleWithAuthor
}

type articleData struct {
	Article *article.ArticleWithAuthor
	Reviews []*review.ReviewWithAuthor
}

type loginData struct {
	AuthURL string
}

type authErrorData struct {
	Code        string
	Description string
}

// currentAuthor makes sure the logged-in user has an author row, creating it
// on first visit.
func (a *App) currentAuthor(r *http.Request) (*author.Author, error) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		return nil, err
	}

	return a.authors.GetOrCreateAuthor(claims.PreferredUsername, claims.Name)
}

func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	current, err := a.currentAuthor(r)
	if err != nil {
		a.serverError(w, "could not resolve current author", err)
		return
	}

	articles, err := a.articles.ListArticlesWithAuthors()
	if err != nil {
		a.serverError(w, "could not list articles", err)
		return
	}

	a.render(w, r, "index.html", indexData{Author: current, Articles: articles})
}

func (a *App) ShowArticle(w http.ResponseWriter, r *http.Request) {
	id, err := parseArticleID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	art, err := a.articles.GetArticleWithAuthor(id)
	if errors.Is(err, article.ErrNotFound) {
		a.logger.Warnw("article not found", "id", id)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		a.serverError(w, "could not get article", err)
		return
	}

	reviews, err := a.reviews.ListReviewsForArticle(id)
	if err != nil {
		a.serverError(w, "could not list reviews", err)
		return
	}

	a.render(w, r, "article.html", articleData{Article: art, Reviews: reviews})
}

func (a *App) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseArticleID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	current, err := a.currentAuthor(r)
	if err != nil {
		a.serverError(w, "could not resolve current author", err)
		return
	}

	_, err = a.reviews.CreateReview(r.Context(), id, current.ID, r.PostFormValue("content"))
	if errors.Is(err, review.ErrArticleNotFound) {
		a.logger.Warnw("review rejected, article does not exist", "article_id", id)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		a.serverError(w, "could not create review", err)
		return
	}

	a.logger.Infow("review added", "author", current.Nickname, "article_id", id)
	http.Redirect(w, r, fmt.Sprintf("/article/%d", id), http.StatusSeeOther)
}

func (a *App) ShowAddArticle(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, "add_article.html", nil)
}

func (a *App) AddArticle(w http.ResponseWriter, r *http.Request) {
	current, err := a.currentAuthor(r)
	if err != nil {
		a.serverError(w, "could not resolve current author", err)
		return
	}

	_, err = a.articles.CreateArticle(r.Context(), r.PostFormValue("title"), r.PostFormValue("content"), current.ID)
	if err != nil {
		a.serverError(w, "could not create article", err)
		return
	}

	a.logger.Infow("article added", "author", current.Nickname)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	flow, authURL, err := a.flow.BeginLogin()
	if err != nil {
		a.serverError(w, "could not begin login flow", err)
		return
	}

	s := a.sessions.Get(r)
	if err := a.sessions.SaveFlow(s, flow); err != nil {
		a.serverError(w, "could not store login flow", err)
		return
	}
	if err := a.sessions.Save(r, w, s); err != nil {
		a.serverError(w, "could not save session", err)
		return
	}

	a.render(w, r, "login.html", loginData{AuthURL: authURL})
}

// Callback finishes the authorization-code flow. Provider errors and flow
// validation failures are always shown to the user on the auth-error view,
// never swallowed; the session user stays unset on every failure path.
func (a *App) Callback(w http.ResponseWriter, r *http.Request) {
	s := a.sessions.Get(r)

	var flow authflow.Flow
	if err := a.sessions.TakeFlow(s, &flow); err != nil {
		a.logger.Warnw("callback without login flow", "error", err)
		a.saveSession(r, w, s)
		a.render(w, r, "auth_error.html", authErrorData{Description: "No login in progress. Please sign in again."})
		return
	}

	result, err := a.flow.CompleteLogin(r.Context(), &flow, r.URL.Query())
	if err != nil {
		a.saveSession(r, w, s)

		var provErr *authflow.ProviderError
		if errors.As(err, &provErr) {
			a.logger.Warnw("provider reported login error", "code", provErr.Code, "description", provErr.Description)
			a.render(w, r, "auth_error.html", authErrorData{Code: provErr.Code, Description: provErr.Description})
			return
		}

		a.logger.Warnw("login flow validation failed", "error", err)
		a.render(w, r, "auth_error.html", authErrorData{Description: "Sign-in could not be completed. Please try again."})
		return
	}

	cache := session.LoadCache(s)
	cache.Put(result.Token)
	if err := session.SaveCache(s, cache); err != nil {
		a.serverError(w, "could not save token cache", err)
		return
	}

	if err := a.sessions.SetUser(s, result.Claims); err != nil {
		a.serverError(w, "could not store session user", err)
		return
	}

	if err := a.sessions.Save(r, w, s); err != nil {
		a.serverError(w, "could not save session", err)
		return
	}

	a.logger.Infow("user logged in", "user", result.Claims.PreferredUsername)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	s := a.sessions.Get(r)
	a.sessions.Clear(s)
	a.saveSession(r, w, s)

	http.Redirect(w, r, a.flow.LogoutURL(a.cfg.BaseURL+"/"), http.StatusFound)
}

// TokenSilently returns a usable access token for the current session,
// refreshing it through the provider when the cached one expired. A rotated
// token is written back to the session cache immediately so the refresh
// survives even when the caller's own work fails afterwards.
func (a *App) TokenSilently(w http.ResponseWriter, r *http.Request) (*oauth2.Token, error) {
	s := a.sessions.Get(r)

	cache := session.LoadCache(s)
	tok, rotated, err := a.flow.TokenSilently(r.Context(), cache.Token())
	if err != nil {
		return nil, err
	}

	if rotated {
		cache.Put(tok)
		if err := session.SaveCache(s, cache); err != nil {
			return nil, err
		}
		a.saveSession(r, w, s)
	}

	return tok, nil
}

// saveSession is for paths where a save failure should not preempt the
// response already being built.
func (a *App) saveSession(r *http.Request, w http.ResponseWriter, s *sessions.Session) {
	if err := a.sessions.Save(r, w, s); err != nil {
		a.logger.Errorw("could not save session", "error", err)
	}
}

func parseArticleID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid article id: %w", err)
	}
	return uint(id), nil
}
