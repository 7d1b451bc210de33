// Package queue implements the publish sinks that hand harvested posts downstream.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
)

// StreamPublisher appends every post as one entry of a Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

var _ ports.Publisher = (*StreamPublisher)(nil)

// NewStreamPublisher builds a producer for stream. After each batch the
// stream is trimmed to exactly maxLen entries; maxLen <= 0 keeps it untrimmed.
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64, logger *slog.Logger) *StreamPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

// Publish writes the batch in one pipeline, preserving record order.
func (p *StreamPublisher) Publish(ctx context.Context, records []domain.PostRecord) error {
	if len(records) == 0 {
		p.logger.Info("nothing to publish", "stream", p.stream)
		return nil
	}

	payloads := make([]string, len(records))
	for i, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal post %s: %w", r.ID, err)
		}
		payloads[i] = string(raw)
	}

	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, r := range records {
			values := map[string]any{
				"post":       payloads[i],
				"post_id":    r.ID,
				"scraped_at": r.ScrapedAt,
			}
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				Values: values,
			})
		}
		if p.maxLen > 0 {
			pipe.XTrimMaxLen(ctx, p.stream, p.maxLen)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	p.logger.Info("published posts", "stream", p.stream, "count", len(records))
	return nil
}

// Close releases the underlying client.
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}
