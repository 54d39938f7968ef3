package notify

import (
	"context"
	"time"
)

// Attachment is a finished artifact on local disk.
type Attachment struct {
	Name string
	Path string
}

// Report summarises a completed batch run.
type Report struct {
	RunID             string
	Variant           string
	Total             int
	FailedIdentifiers []string
	StartedAt         time.Time
	FinishedAt        time.Time
	Attachments       []Attachment
}

// Notifier is told about every completed run. It is optional: the default
// implementation does nothing.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

type Noop struct{}

func (Noop) Notify(context.Context, Report) error { return nil }
