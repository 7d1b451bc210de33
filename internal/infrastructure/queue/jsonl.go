package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
)

// LineWriter writes every post as one JSON document per line.
type LineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Publisher = (*LineWriter)(nil)

// NewLineWriter wraps out, typically stdout or an append-only file.
func NewLineWriter(out io.Writer) *LineWriter {
	return &LineWriter{out: out}
}

// Publish encodes records in order.
func (w *LineWriter) Publish(ctx context.Context, records []domain.PostRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	enc := json.NewEncoder(w.out)
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode post %s: %w", r.ID, err)
		}
	}
	return nil
}
