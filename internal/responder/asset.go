package responder

import "context"

// Asset is a reply image ready to be injected into the chat input.
type Asset struct {
	URL         string
	ContentType string
	Data        []byte
}

type AssetProvider interface {
	FetchRandom(ctx context.Context, topic string) (*Asset, error)
}
