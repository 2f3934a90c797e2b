package advisory

import (
	"context"
	"log/slog"
	"strings"
)

// Client is the Advisor backed by a remote completion service.
type Client struct {
	completer Completer
	logger    *slog.Logger
}

// NewClient creates a client over completer.
func NewClient(completer Completer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{completer: completer, logger: logger}
}

// Advise implements Advisor. It never returns an error and never retries.
func (c *Client) Advise(ctx context.Context, score int, locationName string, tags []string) string {
	text, err := c.completer.Complete(ctx, BuildPrompt(score, locationName, tags))
	if err != nil {
		c.logger.Warn("advisory request failed, using fallback",
			"error", err,
			"score", score,
			"location", locationName,
		)
		return FallbackFailure
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Debug("advisory response was empty, using fallback", "location", locationName)
		return FallbackEmpty
	}
	return text
}
