// Package web renders the public HTML pages of the blog.
package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dailyposts/blog-api/cmd/internal/logging"
	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/service"
	"github.com/dailyposts/blog-api/cmd/internal/upload"
)

// PostsPerPage is the number of posts shown on one page of the home listing.
const PostsPerPage = 10

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
	"inc": func(n int) int { return n + 1 },
	"dec": func(n int) int { return n - 1 },
	"pageURL": func(category, query string, page int) string {
		v := url.Values{}
		if category != "" {
			v.Set("category", category)
		}
		if query != "" {
			v.Set("q", query)
		}
		if page > 1 {
			v.Set("page", strconv.Itoa(page))
		}
		if len(v) == 0 {
			return "/"
		}
		return "/?" + v.Encode()
	},
	"paragraphs": func(text string) template.HTML {
		var b strings.Builder
		for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				b.WriteString("<p>")
				b.WriteString(template.HTMLEscapeString(p))
				b.WriteString("</p>\n")
			}
		}
		return template.HTML(b.String())
	},
}

type Pages struct {
	posts  *service.PostService
	tmpl   *template.Template
	logger *slog.Logger

	// set by WithEditor
	importer *service.Importer
	images   *upload.ImageStore
	maxBytes int64
}

func NewPages(posts *service.PostService, logger *slog.Logger, opts ...Option) (*Pages, error) {
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	p := &Pages{posts: posts, tmpl: tmpl, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Register adds the page routes to r. Editor routes are registered ahead of
// /posts/{slug} so their fixed paths take precedence.
func (p *Pages) Register(r *mux.Router) {
	r.HandleFunc("/", p.Home).Methods(http.MethodGet)
	if p.importer != nil {
		p.registerEditor(r)
	}
	r.HandleFunc("/posts/{slug}", p.Post).Methods(http.MethodGet)
}

type categoryCount struct {
	Name  string
	Count int
}

type homeView struct {
	Title      string
	Posts      []models.Post
	Categories []categoryCount
	AllCount   int
	Category   string
	Query      string
	Page       int
	TotalPages int
}

type postView struct {
	Title string
	Post  *models.Post
}

// Home lists posts newest first. The whole list is loaded and sliced in memory.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	all, err := p.posts.List(r.Context())
	if err != nil {
		p.fail(w, r, err)
		return
	}

	category := r.URL.Query().Get("category")
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	filtered := Filter(all, category, query)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	start, end, page, totalPages := Paginate(len(filtered), page, PostsPerPage)

	p.render(w, r, http.StatusOK, "home.html", homeView{
		Title:      "Home",
		Posts:      filtered[start:end],
		Categories: countCategories(all),
		AllCount:   len(all),
		Category:   category,
		Query:      query,
		Page:       page,
		TotalPages: totalPages,
	})
}

// Post shows one post by slug.
func (p *Pages) Post(w http.ResponseWriter, r *http.Request) {
	post, err := p.posts.Get(r.Context(), mux.Vars(r)["slug"])
	if errors.Is(err, service.ErrNotFound) {
		p.render(w, r, http.StatusNotFound, "post.html", postView{Title: "Not found"})
		return
	}
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "post.html", postView{Title: post.Title, Post: post})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		p.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context(), p.logger).ErrorContext(r.Context(), "failed to render page", "path", r.URL.Path, "error", err)
	http.Error(w, "Something went wrong", http.StatusInternalServerError)
}

// Filter keeps posts in category (when set) whose title or author contains query,
// ignoring case.
func Filter(posts []models.Post, category, query string) []models.Post {
	query = strings.ToLower(query)
	out := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if category != "" && post.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(post.Title), query) &&
			!strings.Contains(strings.ToLower(post.Author), query) {
			continue
		}
		out = append(out, post)
	}
	return out
}

// Paginate clamps page into range and returns the slice bounds for it.
// An empty list still has one page.
func Paginate(total, page, perPage int) (start, end, current, pages int) {
	pages = (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	current = page
	if current < 1 {
		current = 1
	}
	if current > pages {
		current = pages
	}
	start = (current - 1) * perPage
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end, current, pages
}

// countCategories counts posts for every known category plus any free-form
// category found in the data.
func countCategories(posts []models.Post) []categoryCount {
	counts := make(map[string]int)
	for _, post := range posts {
		counts[post.Category]++
	}

	out := make([]categoryCount, 0, len(models.Categories))
	for _, name := range models.Categories {
		out = append(out, categoryCount{Name: name, Count: counts[name]})
		delete(counts, name)
	}
	for _, post := range posts {
		if n, ok := counts[post.Category]; ok {
			out = append(out, categoryCount{Name: post.Category, Count: n})
			delete(counts, post.Category)
		}
	}
	return out
}
