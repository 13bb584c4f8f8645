// Package retrieve fetches remote documents to use as model context.
//
// A Fetcher performs a plain HTTP GET. HTML pages are reduced to their
// visible text; other bodies are returned as they are. Bodies are capped
// in bytes and can be truncated to a token budget. An optional TTL cache
// avoids refetching the same URL within one run.
package retrieve
