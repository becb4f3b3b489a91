package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dsavelev/reviewpress/internal/article"
	"github.com/dsavelev/reviewpress/internal/auth"
	"github.com/dsavelev/reviewpress/internal/authflow"
	"github.com/dsavelev/reviewpress/internal/author"
	"github.com/dsavelev/reviewpress/internal/review"
	"github.com/dsavelev/reviewpress/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config carries the routing knobs that come from the environment.
type Config struct {
	// BaseURL is the externally visible origin, used for post-logout return.
	BaseURL string
	// RedirectPath is the OAuth callback route, must match the app
	// registration at the provider.
	RedirectPath string
}

// App wires sessions, the auth flow and the storage layer into HTTP handlers.
type App struct {
	logger   *zap.SugaredLogger
	sessions *session.Manager
	flow     *authflow.Client
	authors  author.AuthorStorage
	articles article.ArticleStorage
	reviews  review.ReviewStorage
	cfg      Config
	tmpl     *template.Template
}

func New(
	logger *zap.SugaredLogger,
	sessions *session.Manager,
	flow *authflow.Client,
	authors author.AuthorStorage,
	articles article.ArticleStorage,
	reviews review.ReviewStorage,
	cfg Config,
) (*App, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("could not parse templates: %w", err)
	}

	if cfg.RedirectPath == "" {
		cfg.RedirectPath = "/getAToken"
	}

	return &App{
		logger:   logger,
		sessions: sessions,
		flow:     flow,
		authors:  authors,
		articles: articles,
		reviews:  reviews,
		cfg:      cfg,
		tmpl:     tmpl,
	}, nil
}

func (a *App) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	// trust the reverse proxy's forwarding headers
	r.Use(middleware.RealIP)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/login", a.Login)
	r.Get(a.cfg.RedirectPath, a.Callback)
	r.Get("/logout", a.Logout)

	r.Group(func(r chi.Router) {
		r.Use(a.requireUser)
		r.Get("/", a.Index)
		r.Get("/article/{id}", a.ShowArticle)
		r.Post("/article/{id}", a.AddReview)
		r.Get("/add_article", a.ShowAddArticle)
		r.Post("/add_article", a.AddArticle)
	})

	return r
}

// requireUser loads the session identity into the request context and sends
// anonymous visitors to the login page.
func (a *App) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.sessions.CurrentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

// render executes a view into a buffer first, so a template failure over
// missing data turns into a logged redirect home instead of a half-written
// response.
func (a *App) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Errorw("template render failed", "view", name, "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	if err != nil {
		a.logger.Errorw("could not write response", "error", err)
	}
}

func (a *App) serverError(w http.ResponseWriter, msg string, err error) {
	a.logger.Errorw(msg, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
