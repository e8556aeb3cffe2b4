package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dailyposts/blog-api/cmd/internal/models"
)

// OutcomeKind classifies what happened to one imported row.
type OutcomeKind int

const (
	Inserted OutcomeKind = iota
	// Skipped rows were rejected by validation or the duplicate check
	Skipped
	// Failed rows hit an unexpected error
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// RowOutcome is the result of importing one CSV record. Row is the display row
// number, counting the header as row 1.
type RowOutcome struct {
	Row     int
	Kind    OutcomeKind
	Slug    string
	Message string
}

// Error renders the row-level message reported to the client. It is empty for inserted rows.
func (o RowOutcome) Error() string {
	if o.Kind == Inserted {
		return ""
	}
	return fmt.Sprintf("Row %d: %s", o.Row, o.Message)
}

// ImportReport accumulates the outcomes of a bulk import.
type ImportReport struct {
	SuccessCount int
	Errors       []string
	Outcomes     []RowOutcome
}

func (r *ImportReport) add(o RowOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Kind == Inserted {
		r.SuccessCount++
		return
	}
	r.Errors = append(r.Errors, o.Error())
}

const (
	msgMissingFields = "Missing required fields"
	msgAlreadyExists = "Post with this title already exists"
)

// Importer creates posts from CSV uploads.
type Importer struct {
	posts   *PostService
	logger  *slog.Logger
	observe func(RowOutcome)
}

type ImporterOption func(*Importer)

// WithObserver registers fn to be called after every row, e.g. to record metrics.
func WithObserver(fn func(RowOutcome)) ImporterOption {
	return func(im *Importer) {
		im.observe = fn
	}
}

func NewImporter(posts *PostService, logger *slog.Logger, opts ...ImporterOption) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	im := &Importer{posts: posts, logger: logger, observe: func(RowOutcome) {}}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportCSV parses data and imports its rows. Only a *StructuralError aborts the import.
func (im *Importer) ImportCSV(ctx context.Context, data []byte) (ImportReport, error) {
	rows, err := ParseCSV(data)
	if err != nil {
		return ImportReport{}, err
	}
	return im.Import(ctx, rows), nil
}

// Import processes rows one at a time in file order. Each row is checked against the
// store and inserted before the next row is looked at, so a title repeated within the
// same file is rejected the same way as a title that was imported earlier.
func (im *Importer) Import(ctx context.Context, rows []ImportRow) ImportReport {
	report := ImportReport{Errors: []string{}, Outcomes: make([]RowOutcome, 0, len(rows))}

	for i, row := range rows {
		outcome := im.importRow(ctx, i+2, row)
		report.add(outcome)
		im.observe(outcome)

		if outcome.Kind == Failed {
			im.logger.WarnContext(ctx, "bulk import row failed", "row", outcome.Row, "error", outcome.Message)
		}
	}

	im.logger.InfoContext(ctx, "bulk import finished",
		"rows", len(rows),
		"imported", report.SuccessCount,
		"rejected", len(report.Errors),
	)
	return report
}

func (im *Importer) importRow(ctx context.Context, n int, row ImportRow) (outcome RowOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = RowOutcome{Row: n, Kind: Failed, Message: fmt.Sprint(r)}
		}
	}()

	req := models.CreatePostRequest{
		Title:     row.Get("title"),
		Excerpt:   row.Get("excerpt"),
		Content:   row.Get("content"),
		Author:    row.Get("author"),
		Category:  row.Get("category"),
		Thumbnail: row.Get("thumbnail"),
	}

	post, err := im.posts.Create(ctx, req)
	switch {
	case err == nil:
		return RowOutcome{Row: n, Kind: Inserted, Slug: post.Slug}
	case errors.Is(err, ErrValidation):
		return RowOutcome{Row: n, Kind: Skipped, Message: msgMissingFields}
	case errors.Is(err, ErrConflict):
		return RowOutcome{Row: n, Kind: Skipped, Message: msgAlreadyExists}
	default:
		return RowOutcome{Row: n, Kind: Failed, Message: err.Error()}
	}
}
