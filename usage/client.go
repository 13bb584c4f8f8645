package usage

import (
	"context"
	"time"

	"github.com/randalmurphal/sigkit/provider"
)

// Client is a provider.Client that records every call in a Tracker.
type Client struct {
	provider.Client
	tracker *Tracker
	model   string
}

// Wrap returns a client recording calls to inner in tracker. model names
// the calls whose request and response carry no model.
func Wrap(inner provider.Client, tracker *Tracker, model string) *Client {
	return &Client{Client: inner, tracker: tracker, model: model}
}

// Tracker returns the tracker calls are recorded in.
func (c *Client) Tracker() *Tracker {
	return c.tracker
}

// Complete implements provider.Client.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	start := time.Now()
	resp, err := c.Client.Complete(ctx, req)
	latency := time.Since(start)
	if err != nil {
		c.tracker.RecordError(c.modelFor(req, ""), latency)
		return nil, err
	}
	c.tracker.Record(c.modelFor(req, resp.Model), resp.Usage.InputTokens, resp.Usage.OutputTokens, latency)
	return resp, nil
}

// Stream implements provider.Client. Usage is recorded when the stream
// reports it, or as an error if the stream fails.
func (c *Client) Stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	start := time.Now()
	in, err := c.Client.Stream(ctx, req)
	if err != nil {
		c.tracker.RecordError(c.modelFor(req, ""), time.Since(start))
		return nil, err
	}

	model := c.modelFor(req, "")
	out := make(chan provider.StreamChunk)
	go func() {
		defer close(out)
		var usage *provider.TokenUsage
		failed := false
		for chunk := range in {
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.Error != nil {
				failed = true
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Drain so the inner producer can exit.
				for range in {
				}
				c.tracker.RecordError(model, time.Since(start))
				return
			}
		}
		switch {
		case failed:
			c.tracker.RecordError(model, time.Since(start))
		case usage != nil:
			c.tracker.Record(model, usage.InputTokens, usage.OutputTokens, time.Since(start))
		default:
			c.tracker.Record(model, 0, 0, time.Since(start))
		}
	}()
	return out, nil
}

func (c *Client) modelFor(req provider.Request, served string) string {
	switch {
	case served != "":
		return served
	case req.Model != "":
		return req.Model
	case c.model != "":
		return c.model
	default:
		return c.Client.Provider()
	}
}
