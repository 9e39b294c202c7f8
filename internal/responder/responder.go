package responder

import (
	"context"
	"fmt"
	"log"
)

// Injector puts content into the target chat's input field and submits it.
type Injector interface {
	Send(ctx context.Context, asset *Asset) error
	SendText(ctx context.Context, text string) error
}

// ChainProvider tries each provider in order until one returns an asset.
type ChainProvider struct {
	providers []AssetProvider
}

func NewChainProvider(providers ...AssetProvider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

func (c *ChainProvider) FetchRandom(ctx context.Context, topic string) (*Asset, error) {
	var lastErr error
	for _, p := range c.providers {
		asset, err := p.FetchRandom(ctx, topic)
		if err == nil {
			return asset, nil
		}
		log.Printf("asset provider failed, trying next: %v", err)
		lastErr = err
	}
	return nil, fmt.Errorf("all asset providers failed: %w", lastErr)
}

// Responder is the triggered action: fetch a reply asset and inject it into
// the chat. A failure at either step is returned to the caller; the monitor
// logs it and moves on, the cooldown stays consumed.
type Responder struct {
	provider AssetProvider
	injector Injector
	topic    string
}

func NewResponder(provider AssetProvider, injector Injector, topic string) *Responder {
	return &Responder{
		provider: provider,
		injector: injector,
		topic:    topic,
	}
}

func (r *Responder) Respond(ctx context.Context) error {
	return r.SendTopic(ctx, r.topic)
}

// SendTopic fetches a random asset for topic and injects it; scheduled image
// tasks use it with their own topic instead of the trigger keyword.
func (r *Responder) SendTopic(ctx context.Context, topic string) error {
	asset, err := r.provider.FetchRandom(ctx, topic)
	if err != nil {
		return fmt.Errorf("fetching asset: %w", err)
	}

	if err := r.injector.Send(ctx, asset); err != nil {
		return fmt.Errorf("injecting asset: %w", err)
	}

	return nil
}
