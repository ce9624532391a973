package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/eknkc/pug"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"media-portfolio/pkg/auth"
	"media-portfolio/pkg/models"
	"media-portfolio/pkg/services"
)

// Handler serves the portfolio pages and the JSON API
type Handler struct {
	svc      *services.Service
	auth     *auth.Authenticator
	logger   *zap.SugaredLogger
	viewsDir string
	objects  http.Handler
	now      func() time.Time
}

// New returns a Handler rendering templates from viewsDir
func New(svc *services.Service, authn *auth.Authenticator, logger *zap.SugaredLogger, viewsDir string) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	// pug refuses template paths that climb out of the working directory
	if abs, err := filepath.Abs(viewsDir); err == nil {
		viewsDir = abs
	}
	return &Handler{
		svc:      svc,
		auth:     authn,
		logger:   logger,
		viewsDir: viewsDir,
		now:      time.Now,
	}
}

// ServeObjects mounts a handler serving stored objects under /memory, used
// with the in-process store
func (h *Handler) ServeObjects(objects http.Handler) {
	h.objects = objects
}

// Routes builds the router. Static files are served from publicDir under /static/.
func (h *Handler) Routes(publicDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/", h.AboutHandler)
	r.Get("/videos", h.MediaPageHandler(models.Videos))
	r.Get("/pictures", h.MediaPageHandler(models.Pictures))
	r.Get("/login", h.LoginPageHandler)
	r.Get("/admin", h.AdminHandler)
	if publicDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(publicDir))))
	}
	if h.objects != nil {
		r.Handle("/memory/*", http.StripPrefix("/memory", h.objects))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.Get("/videos", h.ListHandler(models.Videos))
		r.Get("/pictures", h.ListHandler(models.Pictures))
		r.Get("/url", h.URLHandler)
		r.Post("/login", h.LoginHandler)
		r.Post("/logout", h.LogoutHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/metadata", h.GetMetadataHandler)
			r.Put("/metadata", h.PutMetadataHandler)
			r.Post("/videos", h.UploadHandler(models.Videos))
			r.Post("/pictures", h.UploadHandler(models.Pictures))
			r.Patch("/media", h.UpdateEntryHandler)
			r.Delete("/media", h.DeleteMediaHandler)
			r.Post("/admin/scan", h.ScanHandler)
			r.Post("/admin/thumbnail/generate", h.GenerateThumbnailHandler)
			r.Post("/admin/thumbnail/clear", h.ClearThumbnailHandler)
			r.Post("/admin/thumbnails/generate", h.BulkGenerateThumbnailsHandler)
			r.Post("/admin/thumbnails/clear", h.BulkClearThumbnailsHandler)
		})
	})

	return r
}

// AboutHandler renders the landing page
func (h *Handler) AboutHandler(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "index", models.Page{Title: "About"})
}

// MediaPageHandler renders the gallery page of a collection
func (h *Handler) MediaPageHandler(c models.Collection) http.HandlerFunc {
	title := "Videos"
	if c == models.Pictures {
		title = "Pictures"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debugw("Generating media page", "collection", c)

		page := models.Page{Title: title}
		items, err := h.svc.ListWithURLs(r.Context(), c)
		if err != nil {
			h.logger.Errorw("Listing failed", "collection", c, "error", err)
			page.Error = "Failed to load " + string(c) + ". Please check the storage configuration."
		}
		page.Items = items
		h.render(w, string(c), page)
	}
}

// LoginPageHandler renders the admin sign-in form
func (h *Handler) LoginPageHandler(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "login", models.Page{Title: "Admin Login"})
}

// AdminHandler renders the admin panel, redirecting to the login page
// without a valid session
func (h *Handler) AdminHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessionFromRequest(r); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var admin models.Admin
	var err error
	if admin.Videos, err = h.svc.ListVideos(r.Context()); err != nil {
		h.logger.Errorw("Listing videos failed", "error", err)
	}
	if admin.Pictures, err = h.svc.ListPictures(r.Context()); err != nil {
		h.logger.Errorw("Listing pictures failed", "error", err)
	}
	h.render(w, "admin", admin)
}

func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	template, err := pug.CompileFile(filepath.Join(h.viewsDir, name+".pug"), pug.Options{})
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		h.logger.Errorw("Template error", "template", name, "error", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := template.Execute(w, data); err != nil {
		h.logger.Errorw("Template execution error", "template", name, "error", err)
	}
}
