package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/service"
	"github.com/dailyposts/blog-api/cmd/internal/upload"
)

// formOverhead allows for the text fields and multipart framing around an upload.
const formOverhead = 1 << 20

const (
	msgRequired     = "Please fill in all required fields"
	msgDuplicate    = "A post with this title already exists"
	msgBadImage     = "Please upload a valid image file (JPEG, PNG, GIF, or WebP)"
	msgImageTooBig  = "The image is larger than the upload limit"
	msgInvalidForm  = "The form could not be read"
	msgNoFile       = "Please select a file to upload"
	msgInvalidCSV   = "Invalid CSV format"
	msgFileTooLarge = "The file is larger than the upload limit"
)

type Option func(*Pages)

// WithEditor enables the pages that create, edit, delete and bulk import posts.
func WithEditor(importer *service.Importer, images *upload.ImageStore, maxBytes int64) Option {
	return func(p *Pages) {
		p.importer = importer
		p.images = images
		p.maxBytes = maxBytes
	}
}

type formValues struct {
	Title     string
	Excerpt   string
	Content   string
	Author    string
	Category  string
	Thumbnail string
}

func readForm(r *http.Request) formValues {
	return formValues{
		Title:     r.FormValue("title"),
		Excerpt:   r.FormValue("excerpt"),
		Content:   r.FormValue("content"),
		Author:    r.FormValue("author"),
		Category:  r.FormValue("category"),
		Thumbnail: strings.TrimSpace(r.FormValue("thumbnail")),
	}
}

func formFromPost(post *models.Post) formValues {
	return formValues{
		Title:     post.Title,
		Excerpt:   post.Excerpt,
		Content:   post.Content,
		Author:    post.Author,
		Category:  post.Category,
		Thumbnail: post.Thumbnail,
	}
}

func (f formValues) createRequest() models.CreatePostRequest {
	return models.CreatePostRequest{
		Title:     f.Title,
		Excerpt:   f.Excerpt,
		Content:   f.Content,
		Author:    f.Author,
		Category:  f.Category,
		Thumbnail: f.Thumbnail,
	}
}

// updateRequest sends every field, since a form always submits all of them.
func (f formValues) updateRequest() models.UpdatePostRequest {
	return models.UpdatePostRequest{
		Title:     &f.Title,
		Excerpt:   &f.Excerpt,
		Content:   &f.Content,
		Author:    &f.Author,
		Category:  &f.Category,
		Thumbnail: &f.Thumbnail,
	}
}

type formView struct {
	Title      string
	Heading    string
	Action     string
	Submit     string
	Upload     bool
	Form       formValues
	Categories []string
	Error      string
}

type sortOption struct {
	Value    string
	Label    string
	Selected bool
}

type manageView struct {
	Title   string
	Posts   []models.Post
	Query   string
	Sort    []sortOption
	Notice  string
	Error   string
	Total   int
	Showing int
}

type bulkView struct {
	Title        string
	Done         bool
	SuccessCount int
	Errors       []string
	Error        string
	Details      []string
}

func (p *Pages) registerEditor(r *mux.Router) {
	r.HandleFunc("/posts/new", p.NewPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/new", p.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/posts/edit", p.Manage).Methods(http.MethodGet)
	r.HandleFunc("/posts/bulk-upload", p.BulkUploadForm).Methods(http.MethodGet)
	r.HandleFunc("/posts/bulk-upload", p.BulkUpload).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id:[0-9]+}/edit", p.EditPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}/edit", p.UpdatePost).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id:[0-9]+}/delete", p.DeletePost).Methods(http.MethodPost)
}

// categoryOptions lists the known categories plus current when it is free-form.
func categoryOptions(current string) []string {
	opts := slices.Clone(models.Categories)
	if current != "" && !slices.Contains(opts, current) {
		opts = append(opts, current)
	}
	return opts
}

func (p *Pages) newPostView(form formValues, message string) formView {
	return formView{
		Title:      "New post",
		Heading:    "Create a new post",
		Action:     "/posts/new",
		Submit:     "Publish",
		Upload:     true,
		Form:       form,
		Categories: categoryOptions(form.Category),
		Error:      message,
	}
}

func (p *Pages) editPostView(id int64, form formValues, message string) formView {
	return formView{
		Title:      "Edit post",
		Heading:    "Edit post",
		Action:     "/posts/" + strconv.FormatInt(id, 10) + "/edit",
		Submit:     "Save changes",
		Form:       form,
		Categories: categoryOptions(form.Category),
		Error:      message,
	}
}

// parseForm reads a urlencoded or multipart body, capped at the upload limit.
func (p *Pages) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, p.maxBytes+formOverhead)
	err := r.ParseMultipartForm(p.maxBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formFile returns the uploaded file for field, or nil when none was chosen.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Filename == "" {
		return nil
	}
	return files[0]
}

// NewPost shows the empty post form.
func (p *Pages) NewPost(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "post_form.html", p.newPostView(formValues{}, ""))
}

// CreatePost handles the post form. An uploaded image replaces the image URL field.
func (p *Pages) CreatePost(w http.ResponseWriter, r *http.Request) {
	if err := p.parseForm(w, r); err != nil {
		p.render(w, r, http.StatusBadRequest, "post_form.html", p.newPostView(formValues{}, msgInvalidForm))
		return
	}
	form := readForm(r)

	if fh := formFile(r, "image"); fh != nil {
		img, err := p.images.Save(fh)
		switch {
		case err == nil:
			form.Thumbnail = img.URL
		case errors.Is(err, upload.ErrUnsupportedType):
			p.render(w, r, http.StatusBadRequest, "post_form.html", p.newPostView(form, msgBadImage))
			return
		case errors.Is(err, upload.ErrTooLarge):
			p.render(w, r, http.StatusBadRequest, "post_form.html", p.newPostView(form, msgImageTooBig))
			return
		default:
			p.fail(w, r, err)
			return
		}
	}

	post, err := p.posts.Create(r.Context(), form.createRequest())
	switch {
	case err == nil:
		http.Redirect(w, r, "/posts/"+url.PathEscape(post.Slug), http.StatusSeeOther)
	case errors.Is(err, service.ErrValidation):
		p.render(w, r, http.StatusBadRequest, "post_form.html", p.newPostView(form, msgRequired))
	case errors.Is(err, service.ErrConflict):
		p.render(w, r, http.StatusBadRequest, "post_form.html", p.newPostView(form, msgDuplicate))
	default:
		p.fail(w, r, err)
	}
}

func pathID(r *http.Request) int64 {
	// the route pattern only admits digits
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// EditPost shows the form for an existing post.
func (p *Pages) EditPost(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	post, err := p.posts.GetByID(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		p.render(w, r, http.StatusNotFound, "post.html", postView{Title: "Not found"})
		return
	}
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "post_form.html", p.editPostView(id, formFromPost(post), ""))
}

// UpdatePost saves the edit form and returns to the manage page.
func (p *Pages) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := p.parseForm(w, r); err != nil {
		p.render(w, r, http.StatusBadRequest, "post_form.html", p.editPostView(id, formValues{}, msgInvalidForm))
		return
	}
	form := readForm(r)

	_, err := p.posts.Update(r.Context(), id, form.updateRequest())
	switch {
	case err == nil:
		http.Redirect(w, r, "/posts/edit?status=updated", http.StatusSeeOther)
	case errors.Is(err, service.ErrNotFound):
		p.render(w, r, http.StatusNotFound, "post.html", postView{Title: "Not found"})
	case errors.Is(err, service.ErrValidation):
		p.render(w, r, http.StatusBadRequest, "post_form.html", p.editPostView(id, form, msgRequired))
	default:
		p.fail(w, r, err)
	}
}

// DeletePost removes a post from the manage page.
func (p *Pages) DeletePost(w http.ResponseWriter, r *http.Request) {
	err := p.posts.Delete(r.Context(), pathID(r))
	switch {
	case err == nil:
		http.Redirect(w, r, "/posts/edit?status=deleted", http.StatusSeeOther)
	case errors.Is(err, service.ErrNotFound):
		p.renderManage(w, r, http.StatusNotFound, "Post not found")
	default:
		p.fail(w, r, err)
	}
}

// Manage lists every post with edit and delete controls.
func (p *Pages) Manage(w http.ResponseWriter, r *http.Request) {
	p.renderManage(w, r, http.StatusOK, "")
}

var notices = map[string]string{
	"updated": "Post updated successfully",
	"deleted": "Post deleted successfully",
}

func (p *Pages) renderManage(w http.ResponseWriter, r *http.Request, status int, message string) {
	all, err := p.posts.List(r.Context())
	if err != nil {
		p.fail(w, r, err)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	order := r.URL.Query().Get("sort")
	filtered := SortPosts(Filter(all, "", query), order)

	p.render(w, r, status, "manage.html", manageView{
		Title:   "Manage posts",
		Posts:   filtered,
		Query:   query,
		Sort:    sortOptions(order),
		Notice:  notices[r.URL.Query().Get("status")],
		Error:   message,
		Total:   len(all),
		Showing: len(filtered),
	})
}

func sortOptions(selected string) []sortOption {
	opts := []sortOption{
		{Value: "newest", Label: "Newest first"},
		{Value: "oldest", Label: "Oldest first"},
		{Value: "title", Label: "Title"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == selected
	}
	return opts
}

// SortPosts orders posts that are already newest first. Unknown orders keep
// them as they are.
func SortPosts(posts []models.Post, order string) []models.Post {
	switch order {
	case "oldest":
		out := slices.Clone(posts)
		slices.Reverse(out)
		return out
	case "title":
		out := slices.Clone(posts)
		slices.SortStableFunc(out, func(a, b models.Post) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
		return out
	default:
		return posts
	}
}

// BulkUploadForm shows the CSV upload form.
func (p *Pages) BulkUploadForm(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "bulk_upload.html", bulkView{Title: "Bulk upload"})
}

// BulkUpload imports a CSV file and shows the per-row results.
func (p *Pages) BulkUpload(w http.ResponseWriter, r *http.Request) {
	view := bulkView{Title: "Bulk upload"}

	if err := p.parseForm(w, r); err != nil {
		var tooLarge *http.MaxBytesError
		view.Error = msgInvalidForm
		if errors.As(err, &tooLarge) {
			view.Error = msgFileTooLarge
		}
		p.render(w, r, http.StatusBadRequest, "bulk_upload.html", view)
		return
	}

	fh := formFile(r, "file")
	if fh == nil {
		view.Error = msgNoFile
		p.render(w, r, http.StatusBadRequest, "bulk_upload.html", view)
		return
	}

	data, err := readUpload(fh, p.maxBytes)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	if data == nil {
		view.Error = msgFileTooLarge
		p.render(w, r, http.StatusBadRequest, "bulk_upload.html", view)
		return
	}

	report, err := p.importer.ImportCSV(r.Context(), data)
	if err != nil {
		var structural *service.StructuralError
		if !errors.As(err, &structural) {
			p.fail(w, r, err)
			return
		}
		view.Error = msgInvalidCSV
		view.Details = structural.Details
		p.render(w, r, http.StatusBadRequest, "bulk_upload.html", view)
		return
	}

	view.Done = true
	view.SuccessCount = report.SuccessCount
	view.Errors = report.Errors
	p.render(w, r, http.StatusOK, "bulk_upload.html", view)
}

// readUpload returns the file contents, or nil when it exceeds limit.
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, nil
	}
	return data, nil
}
