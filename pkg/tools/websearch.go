package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// SearchResult is one title/url/snippet triple returned by WebSearchTool.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearchTool tries an instant-answer JSON endpoint, falls back to an
// HTML-scrape endpoint, and finally returns mock results if both fail.
type WebSearchTool struct {
	client           *http.Client
	instantAnswerURL string
	htmlSearchURL    string
}

var htmlResultPattern = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>.*?<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)

// NewWebSearchTool returns a WebSearchTool using DuckDuckGo's public
// instant-answer and HTML endpoints with independent per-attempt timeouts.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client:           &http.Client{},
		instantAnswerURL: "https://api.duckduckgo.com/",
		htmlSearchURL:    "https://html.duckduckgo.com/html/",
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Searches the web for a query and returns a small list of title/url/snippet results."
}

func (t *WebSearchTool) Run(input workflow.ExecutionInput) workflow.ExecutionResult {
	query := input.Content
	if query == "" {
		return failure("query must not be blank")
	}

	if results, ok := t.tryInstantAnswer(query); ok && len(results) > 0 {
		return resultsToExecutionResult(results)
	}
	if results, ok := t.tryHTMLScrape(query); ok && len(results) > 0 {
		return resultsToExecutionResult(results)
	}
	return resultsToExecutionResult(mockResults(query))
}

func (t *WebSearchTool) tryInstantAnswer(query string) ([]SearchResult, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reqURL := t.instantAnswerURL + "?q=" + url.QueryEscape(query) + "&format=json&no_html=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var body struct {
		AbstractText string `json:"AbstractText"`
		AbstractURL  string `json:"AbstractURL"`
		Heading      string `json:"Heading"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false
	}
	if body.AbstractText == "" {
		return nil, false
	}
	return []SearchResult{{Title: body.Heading, URL: body.AbstractURL, Snippet: body.AbstractText}}, true
}

func (t *WebSearchTool) tryHTMLScrape(query string) ([]SearchResult, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.htmlSearchURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, false
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}

	matches := htmlResultPattern.FindAllStringSubmatch(string(data), 5)
	var results []SearchResult
	for _, m := range matches {
		results = append(results, SearchResult{URL: m[1], Title: stripTags(m[2]), Snippet: stripTags(m[3])})
	}
	return results, len(results) > 0
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

func mockResults(query string) []SearchResult {
	return []SearchResult{{
		Title:   fmt.Sprintf("Mock result for %q", query),
		URL:     "https://example.invalid/search?q=" + url.QueryEscape(query),
		Snippet: "No live search results were available; this is a placeholder result.",
	}}
}

func resultsToExecutionResult(results []SearchResult) workflow.ExecutionResult {
	data, err := json.Marshal(results)
	if err != nil {
		return failure("failed to serialize search results: " + err.Error())
	}
	return workflow.ExecutionResult{Success: true, Output: string(data), Metadata: results}
}
