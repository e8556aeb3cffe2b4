package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyposts/blog-api/cmd/internal/models"
	"github.com/dailyposts/blog-api/cmd/internal/repository"
	"github.com/dailyposts/blog-api/cmd/internal/service"
	"github.com/dailyposts/blog-api/cmd/internal/upload"
)

func newEditorRouter(t *testing.T) (*mux.Router, *service.PostService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	store, err := repository.NewFileRepository(filepath.Join(dir, "posts.json"))
	require.NoError(t, err)
	images, err := upload.NewImageStore(filepath.Join(dir, "uploads"), "/uploads", 1024)
	require.NoError(t, err)

	posts := service.NewPostService(store, logger)
	pages, err := NewPages(posts, logger, WithEditor(service.NewImporter(posts, logger), images, 1024))
	require.NoError(t, err)

	r := mux.NewRouter()
	pages.Register(r)
	return r, posts
}

func postForm(r http.Handler, target string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type filePart struct {
	field, filename, contentType string
	content                      []byte
}

func postMultipart(t *testing.T, r http.Handler, target string, values url.Values, files ...filePart) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, v := range vals {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newPostValues(title string) url.Values {
	return url.Values{
		"title":    {title},
		"excerpt":  {"short"},
		"content":  {"body"},
		"category": {"Technology"},
	}
}

func TestNewPostForm(t *testing.T) {
	r, _ := newEditorRouter(t)

	rec := get(r, "/posts/new")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Create a new post")
	assert.Contains(t, rec.Body.String(), `enctype="multipart/form-data"`)
	assert.Contains(t, rec.Body.String(), `<option value="Security"`)
}

func TestCreatePostFromForm(t *testing.T) {
	r, posts := newEditorRouter(t)

	rec := postForm(r, "/posts/new", newPostValues("Hello World"))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/posts/hello-world", rec.Header().Get("Location"))

	post, err := posts.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAuthor, post.Author)
	assert.Equal(t, models.DefaultThumbnail, post.Thumbnail)
}

func TestCreatePostFormErrors(t *testing.T) {
	r, posts := newEditorRouter(t)
	require.Equal(t, http.StatusSeeOther, postForm(r, "/posts/new", newPostValues("Taken")).Code)

	missing := newPostValues("Kept Title")
	missing.Del("category")
	rec := postForm(r, "/posts/new", missing)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgRequired)
	assert.Contains(t, rec.Body.String(), `value="Kept Title"`)

	rec = postForm(r, "/posts/new", newPostValues("TAKEN"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgDuplicate)

	all, err := posts.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreatePostWithUploadedImage(t *testing.T) {
	r, posts := newEditorRouter(t)

	values := newPostValues("Pictured")
	values.Set("thumbnail", "https://example.com/ignored.jpg")
	rec := postMultipart(t, r, "/posts/new", values, filePart{"image", "cover.png", "image/png", []byte("png")})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	post, err := posts.Get(context.Background(), "pictured")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(post.Thumbnail, "/uploads/cover-"), post.Thumbnail)
}

func TestCreatePostRejectsNonImage(t *testing.T) {
	r, posts := newEditorRouter(t)

	rec := postMultipart(t, r, "/posts/new", newPostValues("Doc"), filePart{"image", "doc.pdf", "application/pdf", []byte("%PDF")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload a valid image file")

	all, err := posts.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEditPostForm(t *testing.T) {
	r, posts := newEditorRouter(t)
	created, err := posts.Create(context.Background(), models.CreatePostRequest{
		Title: "Before", Excerpt: "e", Content: "c", Category: "Gardening",
	})
	require.NoError(t, err)

	rec := get(r, fmt.Sprintf("/posts/%d/edit", created.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Before"`)
	// free-form categories stay selectable
	assert.Contains(t, rec.Body.String(), `<option value="Gardening" selected>`)

	rec = get(r, "/posts/999/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePostFromForm(t *testing.T) {
	r, posts := newEditorRouter(t)
	ctx := context.Background()
	created, err := posts.Create(ctx, models.CreatePostRequest{
		Title: "Before", Excerpt: "e", Content: "c", Category: "Technology",
	})
	require.NoError(t, err)
	target := fmt.Sprintf("/posts/%d/edit", created.ID)

	values := newPostValues("After")
	values.Set("author", "")
	rec := postForm(r, target, values)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/posts/edit?status=updated", rec.Header().Get("Location"))

	got, err := posts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "before", got.Slug)
	assert.Equal(t, models.DefaultAuthor, got.Author)

	blank := newPostValues(" ")
	rec = postForm(r, target, blank)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgRequired)

	rec = postForm(r, "/posts/999/edit", newPostValues("Nobody"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePostFromManagePage(t *testing.T) {
	r, posts := newEditorRouter(t)
	ctx := context.Background()
	created, err := posts.Create(ctx, models.CreatePostRequest{
		Title: "Doomed", Excerpt: "e", Content: "c", Category: "Technology",
	})
	require.NoError(t, err)
	target := fmt.Sprintf("/posts/%d/delete", created.ID)

	rec := postForm(r, target, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts/edit?status=deleted", rec.Header().Get("Location"))

	all, err := posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	rec = postForm(r, target, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post not found")
}

func TestManagePage(t *testing.T) {
	r, posts := newEditorRouter(t)
	ctx := context.Background()
	for _, p := range []models.CreatePostRequest{
		{Title: "Banana", Excerpt: "e", Content: "c", Category: "Business", Author: "Zed"},
		{Title: "apple", Excerpt: "e", Content: "c", Category: "Business", Author: "Ada"},
		{Title: "Cherry", Excerpt: "e", Content: "c", Category: "Business", Author: "Ada"},
	} {
		_, err := posts.Create(ctx, p)
		require.NoError(t, err)
	}

	rec := get(r, "/posts/edit?status=deleted")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post deleted successfully")
	assert.Contains(t, rec.Body.String(), "Showing 3 of 3 posts")

	rec = get(r, "/posts/edit?q=ada")
	assert.Contains(t, rec.Body.String(), "Showing 2 of 3 posts")
	assert.NotContains(t, rec.Body.String(), "Banana")

	body := get(r, "/posts/edit?sort=title").Body.String()
	assert.Less(t, strings.Index(body, ">apple<"), strings.Index(body, ">Banana<"))
	assert.Less(t, strings.Index(body, ">Banana<"), strings.Index(body, ">Cherry<"))
	assert.Contains(t, body, `<option value="title" selected>`)
}

func TestBulkUploadPage(t *testing.T) {
	r, posts := newEditorRouter(t)

	rec := get(r, "/posts/bulk-upload")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bulk Upload Posts")

	csv := "title,excerpt,content,category\nOne,e,c,Tech\nTwo,e,c,\n"
	rec = postMultipart(t, r, "/posts/bulk-upload", nil, filePart{"file", "posts.csv", "text/csv", []byte(csv)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Successfully imported 1 posts")
	assert.Contains(t, rec.Body.String(), "Row 3: Missing required fields")

	all, err := posts.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBulkUploadPageErrors(t *testing.T) {
	r, _ := newEditorRouter(t)

	rec := postMultipart(t, r, "/posts/bulk-upload", nil, filePart{"file", "bad.csv", "text/csv", []byte("title,excerpt\na,b,c\n")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidCSV)

	rec = postMultipart(t, r, "/posts/bulk-upload", url.Values{"other": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNoFile)

	rec = postMultipart(t, r, "/posts/bulk-upload", nil, filePart{"file", "big.csv", "text/csv", bytes.Repeat([]byte("x"), 2048)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgFileTooLarge)
}

func TestEditorRoutesNeedEditor(t *testing.T) {
	r, _ := newRouter(t)

	rec := get(r, "/posts/new")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post not found")
}

func TestSortPosts(t *testing.T) {
	posts := []models.Post{{Title: "b"}, {Title: "C"}, {Title: "a"}}

	titles := func(ps []models.Post) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Title)
		}
		return out
	}

	assert.Equal(t, []string{"b", "C", "a"}, titles(SortPosts(posts, "newest")))
	assert.Equal(t, []string{"a", "C", "b"}, titles(SortPosts(posts, "oldest")))
	assert.Equal(t, []string{"a", "b", "C"}, titles(SortPosts(posts, "title")))
	assert.Equal(t, []string{"b", "C", "a"}, titles(posts))
}
