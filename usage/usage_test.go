package usage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/sigkit/provider"
)

func TestTracker(t *testing.T) {
	t.Run("record and retrieve", func(t *testing.T) {
		tracker := NewTracker()

		tracker.Record("llama3.2:3b", 1000, 500, 10*time.Millisecond)
		tracker.Record("llama3.2:3b", 500, 250, 30*time.Millisecond)
		tracker.Record("qwen2.5:7b", 2000, 1000, time.Second)

		llama := tracker.Usage("llama3.2:3b")
		if llama.InputTokens != 1500 || llama.OutputTokens != 750 || llama.Requests != 2 {
			t.Errorf("llama usage = %+v, want {Input:1500, Output:750, Requests:2}", llama)
		}
		if got := llama.AverageLatency(); got != 20*time.Millisecond {
			t.Errorf("AverageLatency() = %v, want 20ms", got)
		}

		qwen := tracker.Usage("qwen2.5:7b")
		if qwen.InputTokens != 2000 || qwen.OutputTokens != 1000 || qwen.Requests != 1 {
			t.Errorf("qwen usage = %+v, want {Input:2000, Output:1000, Requests:1}", qwen)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tracker := NewTracker()
		tracker.RecordError("m", time.Millisecond)
		tracker.Record("m", 1, 1, time.Millisecond)

		u := tracker.Usage("m")
		if u.Requests != 2 || u.Errors != 1 {
			t.Errorf("usage = %+v, want Requests:2 Errors:1", u)
		}
	})

	t.Run("summary", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Record("b", 100, 50, 0)
		tracker.Record("a", 200, 100, 0)

		summary := tracker.Summary()
		if len(summary) != 2 {
			t.Errorf("Summary has %d entries, want 2", len(summary))
		}

		// Verify it's a copy
		summary["a"] = Usage{InputTokens: 999}
		if tracker.Usage("a").InputTokens == 999 {
			t.Error("Summary returned reference instead of copy")
		}

		if got := tracker.Models(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("Models() = %v, want [a b]", got)
		}
	})

	t.Run("total usage", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Record("a", 100, 50, 0)
		tracker.Record("b", 200, 100, 0)
		tracker.Record("c", 50, 25, 0)

		total := tracker.TotalUsage()
		if total.InputTokens != 350 || total.OutputTokens != 175 || total.Requests != 3 {
			t.Errorf("TotalUsage() = %+v, want {Input:350, Output:175, Requests:3}", total)
		}
	})

	t.Run("reset", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Record("a", 1000, 500, 0)
		tracker.Reset()

		if usage := tracker.Usage("a"); usage.InputTokens != 0 {
			t.Error("Reset did not clear usage")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		tracker := NewTracker()
		var wg sync.WaitGroup

		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tracker.Record("a", 100, 50, time.Millisecond)
			}()
		}

		wg.Wait()

		if usage := tracker.Usage("a"); usage.Requests != 100 {
			t.Errorf("Concurrent requests = %d, want 100", usage.Requests)
		}
	})
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTracker().WriteSummary(&buf); err != nil || buf.Len() != 0 {
		t.Errorf("empty tracker wrote %q, err %v", buf.String(), err)
	}

	tracker := NewTracker()
	tracker.Record("llama3.2:3b", 100, 20, 4*time.Millisecond)
	tracker.Record("qwen2.5:7b", 10, 2, 2*time.Millisecond)
	if err := tracker.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}

	want := "Token usage:\n" +
		"  llama3.2:3b: 1 requests (0 failed), 100 input + 20 output = 120 tokens, avg 4.00ms\n" +
		"  qwen2.5:7b: 1 requests (0 failed), 10 input + 2 output = 12 tokens, avg 2.00ms\n" +
		"  total: 2 requests (0 failed), 110 input + 22 output = 132 tokens, avg 3.00ms\n"
	if buf.String() != want {
		t.Errorf("WriteSummary() =\n%s\nwant\n%s", buf.String(), want)
	}
}

// stubClient returns a fixed response or error.
type stubClient struct {
	resp   *provider.Response
	err    error
	chunks []provider.StreamChunk
}

func (s *stubClient) Complete(context.Context, provider.Request) (*provider.Response, error) {
	return s.resp, s.err
}

func (s *stubClient) Stream(context.Context, provider.Request) (<-chan provider.StreamChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan provider.StreamChunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (s *stubClient) Provider() string                    { return "stub" }
func (s *stubClient) Capabilities() provider.Capabilities { return provider.Capabilities{} }
func (s *stubClient) Close() error                        { return nil }

func TestWrap_Complete(t *testing.T) {
	tracker := NewTracker()
	inner := &stubClient{resp: &provider.Response{
		Content: "hi",
		Model:   "llama3.2:3b",
		Usage:   provider.TokenUsage{InputTokens: 12, OutputTokens: 3},
	}}
	c := Wrap(inner, tracker, "fallback")

	resp, err := c.Complete(context.Background(), provider.Request{})
	if err != nil || resp.Content != "hi" {
		t.Fatalf("Complete() = %v, %v", resp, err)
	}
	if u := tracker.Usage("llama3.2:3b"); u.InputTokens != 12 || u.OutputTokens != 3 || u.Requests != 1 {
		t.Errorf("usage = %+v", u)
	}
	if c.Provider() != "stub" {
		t.Errorf("Provider() = %q, want stub", c.Provider())
	}
	if c.Tracker() != tracker {
		t.Error("Tracker() returned a different tracker")
	}

	inner.err = errors.New("down")
	if _, err := c.Complete(context.Background(), provider.Request{Model: "qwen2.5:7b"}); err == nil {
		t.Fatal("expected error")
	}
	if u := tracker.Usage("qwen2.5:7b"); u.Errors != 1 {
		t.Errorf("error not recorded under request model: %+v", u)
	}

	if _, err := c.Complete(context.Background(), provider.Request{}); err == nil {
		t.Fatal("expected error")
	}
	if u := tracker.Usage("fallback"); u.Errors != 1 {
		t.Errorf("error not recorded under fallback model: %+v", u)
	}
}

func TestWrap_Stream(t *testing.T) {
	tracker := NewTracker()
	inner := &stubClient{chunks: []provider.StreamChunk{
		{Content: "Mer"},
		{Content: "haba"},
		{Done: true, Usage: &provider.TokenUsage{InputTokens: 7, OutputTokens: 2}},
	}}
	c := Wrap(inner, tracker, "llama3.2:3b")

	ch, err := c.Stream(context.Background(), provider.Request{})
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	for chunk := range ch {
		sb.WriteString(chunk.Content)
	}
	if sb.String() != "Merhaba" {
		t.Errorf("content = %q", sb.String())
	}
	if u := tracker.Usage("llama3.2:3b"); u.InputTokens != 7 || u.OutputTokens != 2 || u.Requests != 1 {
		t.Errorf("usage = %+v", u)
	}

	inner.chunks = []provider.StreamChunk{{Content: "x"}, {Error: errors.New("cut")}}
	ch, err = c.Stream(context.Background(), provider.Request{})
	if err != nil {
		t.Fatal(err)
	}
	for range ch {
	}
	if u := tracker.Usage("llama3.2:3b"); u.Errors != 1 || u.Requests != 2 {
		t.Errorf("usage after failed stream = %+v", u)
	}
}
