package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/dailyposts/blog-api/cmd/internal/middleware"
	"github.com/dailyposts/blog-api/cmd/internal/service"
	"github.com/dailyposts/blog-api/cmd/internal/upload"
	"github.com/dailyposts/blog-api/cmd/internal/web"
)

// Deps are the collaborators needed to build the HTTP handler.
// Limiter and Pages are optional.
type Deps struct {
	Posts          *service.PostService
	Importer       *service.Importer
	Images         *upload.ImageStore
	Pages          *web.Pages
	Metrics        *middleware.Metrics
	Limiter        *middleware.RateLimiter
	Logger         *slog.Logger
	MaxUploadBytes int64
	AllowedOrigins []string
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("panic recovered", "error", fmt.Sprint(v...))
}

// NewRouter wires every route and wraps it in recovery, CORS and request logging.
func NewRouter(d Deps) http.Handler {
	postHandler := NewPostHandler(d.Posts, d.Logger)
	uploadHandler := NewUploadHandler(d.Images, d.Importer, d.MaxUploadBytes, d.Logger)

	r := mux.NewRouter()
	r.Use(d.Metrics.Middleware)
	// the limiter ignores reads, so this covers the API and the editor forms
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.HandleFunc("/health", postHandler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/posts", postHandler.ListPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts", postHandler.CreatePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{slugOrId}", postHandler.GetPost).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", postHandler.UpdatePost).Methods(http.MethodPut)
	api.HandleFunc("/posts/{id}", postHandler.DeletePost).Methods(http.MethodDelete)
	api.HandleFunc("/upload", uploadHandler.UploadImage).Methods(http.MethodPost)
	api.HandleFunc("/bulk-upload", uploadHandler.BulkUpload).Methods(http.MethodPost)

	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.Images.Dir))),
	).Methods(http.MethodGet, http.MethodHead)

	if d.Pages != nil {
		d.Pages.Register(r)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", middleware.RequestIDHeader}),
	)
	recovery := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{logger: d.Logger}),
	)

	return middleware.RequestLogger(d.Logger)(recovery(cors(r)))
}
