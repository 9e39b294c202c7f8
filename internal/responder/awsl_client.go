package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxAssetSize = 20 << 20

// AwslClient fetches a random image from an awsl-api compatible service.
// The /v2/random endpoint returns JSON metadata with the image URL; the
// image itself is downloaded in a second request.
type AwslClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAwslClient(baseURL string) *AwslClient {
	return &AwslClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type randomImageResponse struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

func (c *AwslClient) FetchRandom(ctx context.Context, topic string) (*Asset, error) {
	params := url.Values{}
	params.Set("topic", topic)
	requestURL := fmt.Sprintf("%s/v2/random?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("awsl API returned status %d", resp.StatusCode)
	}

	var meta randomImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if meta.URL == "" {
		return nil, fmt.Errorf("awsl API returned empty image URL")
	}

	return c.download(ctx, meta.URL)
}

func (c *AwslClient) download(ctx context.Context, imageURL string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image download returned empty body")
	}

	return &Asset{
		URL:         imageURL,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
