package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "title,excerpt,content,author,category,thumbnail\n"

func newImporter(t *testing.T) (*Importer, *PostService) {
	t.Helper()
	svc := NewPostService(newStore(t), discard)
	return NewImporter(svc, discard), svc
}

func TestImportCSV_AllValid(t *testing.T) {
	im, svc := newImporter(t)
	ctx := context.Background()

	csv := header +
		"First,e1,c1,,Technology,\n" +
		"Second,e2,c2,Jane,Business,/img/2.png\n" +
		"Third,e3,c3,,Security,\n"

	report, err := im.ImportCSV(ctx, []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, report.SuccessCount)
	assert.Empty(t, report.Errors)
	assert.NotNil(t, report.Errors)

	second, err := svc.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "Jane", second.Author)
	assert.Equal(t, "/img/2.png", second.Thumbnail)

	first, err := svc.Get(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "Daily Post", first.Author)
	assert.Equal(t, "/images/placeholder-default.jpg", first.Thumbnail)
}

func TestImportCSV_MissingCategoryReportsDisplayRow(t *testing.T) {
	im, _ := newImporter(t)

	csv := header +
		"One,e,c,,Technology,\n" +
		"Two,e,c,,,\n" +
		"Three,e,c,,Technology,\n"

	report, err := im.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, []string{"Row 3: Missing required fields"}, report.Errors)
}

func TestImportCSV_DuplicateWithinBatch(t *testing.T) {
	im, svc := newImporter(t)
	ctx := context.Background()

	csv := header +
		"A,e1,c1,,Tech,\n" +
		"A,e2,c2,,Tech,\n"

	report, err := im.ImportCSV(ctx, []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, []string{"Row 3: Post with this title already exists"}, report.Errors)

	post, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "e1", post.Excerpt)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, Inserted, report.Outcomes[0].Kind)
	assert.Equal(t, "a", report.Outcomes[0].Slug)
	assert.Equal(t, Skipped, report.Outcomes[1].Kind)
}

func TestImportCSV_TitlesNormalizingToSameSlug(t *testing.T) {
	im, _ := newImporter(t)

	csv := header +
		"Hello World,e,c,,Tech,\n" +
		"hello   world!,e,c,,Tech,\n"

	report, err := im.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, []string{"Row 3: Post with this title already exists"}, report.Errors)
}

func TestImportCSV_DuplicateAcrossBatches(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()
	csv := header + "Repeat,e,c,,Tech,\n"

	first, err := im.ImportCSV(ctx, []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, first.SuccessCount)

	second, err := im.ImportCSV(ctx, []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, second.SuccessCount)
	assert.Equal(t, []string{"Row 2: Post with this title already exists"}, second.Errors)
}

func TestImportCSV_EmptyAfterHeader(t *testing.T) {
	im, _ := newImporter(t)

	for _, input := range []string{header, "", header + "\n\n"} {
		report, err := im.ImportCSV(context.Background(), []byte(input))
		require.NoError(t, err)
		assert.Equal(t, 0, report.SuccessCount)
		assert.Empty(t, report.Errors)
	}
}

func TestImportCSV_StructuralErrorAbortsEverything(t *testing.T) {
	im, svc := newImporter(t)
	ctx := context.Background()

	tests := []struct {
		name string
		csv  string
	}{
		{"bare quote", header + "Good,e,c,,Tech,\n" + "Bad \"quote,e,c,,Tech,\n"},
		{"unterminated quote", header + "\"Never closed,e,c,,Tech,\n"},
		{"wrong field count", header + "Good,e,c,,Tech,\n" + "Short,e\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.ImportCSV(ctx, []byte(tt.csv))
			var structural *StructuralError
			require.True(t, errors.As(err, &structural), "got %v", err)
			assert.NotEmpty(t, structural.Details)

			posts, err := svc.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, posts)
		})
	}
}

func TestImportCSV_StorageFailureIsIsolated(t *testing.T) {
	store := &flakyStore{
		PostStore:  newStore(t),
		failSlugs:  map[string]error{"broken": errors.New("connection reset")},
		panicSlugs: map[string]bool{"explodes": true},
	}
	svc := NewPostService(store, discard)

	var observed []OutcomeKind
	im := NewImporter(svc, discard, WithObserver(func(o RowOutcome) {
		observed = append(observed, o.Kind)
	}))

	csv := header +
		"Before,e,c,,Tech,\n" +
		"Broken,e,c,,Tech,\n" +
		"Explodes,e,c,,Tech,\n" +
		"After,e,c,,Tech,\n"

	report, err := im.ImportCSV(context.Background(), []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, []string{
		"Row 3: connection reset",
		"Row 4: driver exploded",
	}, report.Errors)
	assert.Equal(t, []OutcomeKind{Inserted, Failed, Failed, Inserted}, observed)
}

func TestParseCSV(t *testing.T) {
	data := "\xEF\xBB\xBF Title ,EXCERPT,content,category\n" +
		"\"Quoted, title\",\"multi\nline\",c,Tech\n"

	rows, err := ParseCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Quoted, title", rows[0].Get("title"))
	assert.Equal(t, "multi\nline", rows[0].Get("excerpt"))
	assert.Equal(t, "", rows[0].Get("author"))
}

func TestParseCSV_ColumnOrderDoesNotMatter(t *testing.T) {
	rows, err := ParseCSV([]byte("category,title,content,excerpt\nTech,T,C,E\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T", rows[0].Get("title"))
	assert.Equal(t, "Tech", rows[0].Get("category"))
}

func TestStructuralErrorMessage(t *testing.T) {
	err := &StructuralError{Details: []string{"line 3, column 4: bare \" in non-quoted-field"}}
	assert.True(t, strings.HasPrefix(err.Error(), "invalid CSV format: "))
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "failed", Failed.String())
}
