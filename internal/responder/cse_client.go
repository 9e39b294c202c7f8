package responder

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// CSEClient is the fallback asset provider: a Google Custom Search image
// query for the topic, picking a random result. Used when the primary awsl
// API is down.
type CSEClient struct {
	cseID      string
	service    *customsearch.Service
	httpClient *http.Client
}

func NewCSEClient(apiKey, cseID string) (*CSEClient, error) {
	if apiKey == "" || cseID == "" {
		return nil, fmt.Errorf("Google Search API key or CSE ID not configured")
	}

	svc, err := customsearch.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}

	return &CSEClient{
		cseID:   cseID,
		service: svc,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *CSEClient) FetchRandom(ctx context.Context, topic string) (*Asset, error) {
	call := c.service.Cse.List().Cx(c.cseID).Q(topic).SearchType("image").Num(10).Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("executing image search: %w", err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("image search returned no results for %q", topic)
	}

	item := resp.Items[rand.Intn(len(resp.Items))]

	req, err := http.NewRequestWithContext(ctx, "GET", item.Link, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", httpResp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxAssetSize))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	return &Asset{
		URL:         item.Link,
		ContentType: httpResp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
