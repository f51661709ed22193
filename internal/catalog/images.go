package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// FetchImage downloads the product image. An empty address or any transport
// failure yields no image; the caller treats that as "leave the placeholder
// shape alone" and never fails the item over it.
func (c *Client) FetchImage(ctx context.Context, url string) []byte {
	if url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header = c.headers()

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("image download failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("image download failed", zap.String("url", url),
			zap.Error(fmt.Errorf("HTTP %d", resp.StatusCode)))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil
	}
	return data
}
