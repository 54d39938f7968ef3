package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/amazon-bsr-checker/internal/models"
	"github.com/maltedev/amazon-bsr-checker/internal/notify"
	"github.com/maltedev/amazon-bsr-checker/internal/observability"
	"github.com/maltedev/amazon-bsr-checker/internal/ratelimit"
	"github.com/maltedev/amazon-bsr-checker/internal/scraper"
	"github.com/maltedev/amazon-bsr-checker/internal/spreadsheet"
)

// ProgressFunc receives the number of finished rows after every lookup.
type ProgressFunc func(done, total int)

// Batch is a validated spreadsheet ready to be run.
type Batch struct {
	ID      string
	Variant Variant
	// Table is a copy of the input with every optional column present.
	Table *spreadsheet.Table
	Rows  []models.InputRow
}

func (b *Batch) Total() int {
	return len(b.Rows)
}

// Artifacts are the files written for a finished run. Failed is empty when no
// row failed.
type Artifacts struct {
	Results string
	Failed  string
}

func (a *Artifacts) attachments() []notify.Attachment {
	out := []notify.Attachment{{Name: filepath.Base(a.Results), Path: a.Results}}
	if a.Failed != "" {
		out = append(out, notify.Attachment{Name: filepath.Base(a.Failed), Path: a.Failed})
	}
	return out
}

// Prepare checks the columns required by the variant and builds the input
// rows. Missing optional columns are added with empty values.
func Prepare(table *spreadsheet.Table, v Variant) (*Batch, error) {
	if table == nil {
		return nil, &ValidationError{Reason: "spreadsheet is empty"}
	}

	var missing []string
	for _, col := range v.Required {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Required: v.Required, Missing: missing}
	}

	t := table.Clone()
	for _, col := range v.Optional {
		if t.HasColumn(col) {
			continue
		}
		if err := t.AddColumn(col, make([]string, len(t.Rows))); err != nil {
			return nil, err
		}
	}

	ids := t.Column(ColumnISBN)
	titles := t.Column(ColumnTitle)
	codes := t.Column(ColumnBRN)
	prices := t.Column(ColumnRetail)

	rows := make([]models.InputRow, len(t.Rows))
	for i, cells := range t.Rows {
		rows[i] = models.InputRow{
			Identifier:    ids[i],
			Title:         valueAt(titles, i),
			AuxiliaryCode: valueAt(codes, i),
			ListPrice:     valueAt(prices, i),
			Cells:         cells,
		}
	}

	return &Batch{
		ID:      uuid.New().String(),
		Variant: v,
		Table:   t,
		Rows:    rows,
	}, nil
}

func valueAt(values []string, i int) string {
	if values == nil {
		return ""
	}
	return values[i]
}

// NewPacer maps the configured pacing policy onto a rate limiter.
func NewPacer(policy string, delay time.Duration) (ratelimit.RateLimiter, error) {
	switch policy {
	case "fixed", "":
		return ratelimit.NewFixedDelay(delay), nil
	case "interval":
		return ratelimit.NewSimpleRateLimiter(delay), nil
	}
	return nil, fmt.Errorf("unknown pacing policy %q", policy)
}

type Driver struct {
	scraper  scraper.Scraper
	pacer    ratelimit.RateLimiter
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewDriver(s scraper.Scraper, pacer ratelimit.RateLimiter, notifier notify.Notifier, logger *slog.Logger) *Driver {
	if pacer == nil {
		pacer = ratelimit.NewFixedDelay(0)
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Driver{
		scraper:  s,
		pacer:    pacer,
		notifier: notifier,
		logger:   logger.With("component", "batch_driver"),
	}
}

// Run looks up every row in order. The pacer is consulted between rows, never
// after the last one. A cancelled context stops the loop between rows; a
// cancellation during the last lookup still fails the run.
func (d *Driver) Run(ctx context.Context, b *Batch, progress ProgressFunc) (*models.RunResult, error) {
	total := b.Total()
	res := &models.RunResult{Results: make([]models.LookupResult, 0, total)}

	d.logger.Info("batch started", "run_id", b.ID, "variant", b.Variant.Name, "rows", total)

	for i, row := range b.Rows {
		if i > 0 {
			if err := d.pacer.Wait(ctx); err != nil {
				return nil, d.abort(b, i, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, d.abort(b, i, err)
		}

		r := d.scraper.Lookup(ctx, row.Identifier)
		res.Results = append(res.Results, r)
		if r.Failed() {
			res.Failed = append(res.Failed, row)
			observability.RowsFailedTotal.Inc()
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, d.abort(b, total, err)
	}

	observability.BatchesTotal.WithLabelValues("completed").Inc()
	d.logger.Info("batch finished", "run_id", b.ID, "rows", total, "failed", len(res.Failed))
	return res, nil
}

func (d *Driver) abort(b *Batch, done int, err error) error {
	observability.BatchesTotal.WithLabelValues("cancelled").Inc()
	d.logger.Warn("batch cancelled", "run_id", b.ID, "done", done, "rows", b.Total(), "error", err)
	return err
}

// WriteArtifacts writes the augmented results sheet into dir, plus the failed
// identifiers sheet when at least one row failed.
func WriteArtifacts(dir string, b *Batch, res *models.RunResult) (*Artifacts, error) {
	if len(res.Results) != len(b.Rows) {
		return nil, fmt.Errorf("%w: %d results for %d rows", spreadsheet.ErrRowLength, len(res.Results), len(b.Rows))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	out := b.Table.Clone()
	ranks := make([]string, len(res.Results))
	prices := make([]string, len(res.Results))
	metadata := make([]string, len(res.Results))
	for i, r := range res.Results {
		ranks[i], prices[i], metadata[i] = r.Rank, r.Price, r.Metadata
	}
	for i, values := range [][]string{ranks, prices, metadata} {
		if err := out.SetColumn(b.Variant.ResultColumns[i], values); err != nil {
			return nil, err
		}
	}

	a := &Artifacts{Results: filepath.Join(dir, b.Variant.OutputFile)}
	if err := out.WriteFile(a.Results); err != nil {
		return nil, err
	}

	if len(res.Failed) == 0 {
		return a, nil
	}

	failed := &spreadsheet.Table{Header: []string{ColumnISBN}}
	for _, id := range res.FailedIdentifiers() {
		failed.Rows = append(failed.Rows, []string{id})
	}

	a.Failed = filepath.Join(dir, FailedFileName)
	if err := failed.WriteFile(a.Failed); err != nil {
		return nil, err
	}
	return a, nil
}

// Execute runs the batch, writes its artifacts into dir and tells the
// notifier. Notification failures are logged only.
func (d *Driver) Execute(ctx context.Context, b *Batch, dir string, progress ProgressFunc) (*models.RunResult, *Artifacts, error) {
	started := time.Now()

	res, err := d.Run(ctx, b, progress)
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := WriteArtifacts(dir, b, res)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to write artifacts: %w", err)
	}

	report := notify.Report{
		RunID:             b.ID,
		Variant:           b.Variant.Name,
		Total:             b.Total(),
		FailedIdentifiers: res.FailedIdentifiers(),
		StartedAt:         started,
		FinishedAt:        time.Now(),
		Attachments:       artifacts.attachments(),
	}
	if err := d.notifier.Notify(ctx, report); err != nil {
		d.logger.Error("failed to send run notification", "run_id", b.ID, "error", err)
	}

	return res, artifacts, nil
}

// IsValidationError reports whether err means the input could not be used.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
