package recorder

import (
	"context"

	"stockpipe/internal/model"
)

// Recorder persists whole tables to a relational store.
type Recorder interface {
	// Store replaces table with the frame's rows.
	Store(ctx context.Context, table string, f *model.Frame) error
	// Read returns every row of table.
	Read(ctx context.Context, table string) (*model.Frame, error)
}
