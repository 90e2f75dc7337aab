// Package news fetches headlines from NewsAPI and formats them for speech.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/arcnova-labs/arcnova/internal/httpc"
	"github.com/arcnova-labs/arcnova/internal/log"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// DefaultLimit is the number of articles returned when a query does not
// specify one.
const DefaultLimit = 5

// Categories supported by the NewsAPI top-headlines endpoint.
var Categories = []string{
	"business", "entertainment", "general", "health",
	"science", "sports", "technology",
}

// IsCategory reports whether s names a supported category.
func IsCategory(s string) bool {
	s = strings.ToLower(s)
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// Article is one formatted news article.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Author      string `json:"author"`
}

// Result is the envelope every news lookup returns. Failures are reported in
// Message with Success false so the skills layer can speak them directly.
type Result struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	Articles     []Article `json:"articles"`
	TotalResults int       `json:"total_results,omitempty"`
}

// HeadlinesQuery selects which top headlines to fetch.
type HeadlinesQuery struct {
	Category string
	Country  string
	Query    string
	Limit    int
}

// SearchQuery selects which articles to search for.
type SearchQuery struct {
	Query    string
	SortBy   string
	Language string
	Limit    int
}

// apiError carries a message already phrased for the user.
type apiError struct{ msg string }

func (e *apiError) Error() string { return e.msg }

// Client talks to NewsAPI. The API key is read through a function so a key
// changed at runtime takes effect on the next call.
type Client struct {
	keyFn    func() string
	country  string
	language string
	baseURL  string
	client   *http.Client
	logger   *slog.Logger
}

// NewClient creates a news client. country and language are the defaults
// applied when a query leaves them empty.
func NewClient(keyFn func() string, country, language string) *Client {
	return &Client{
		keyFn:    keyFn,
		country:  country,
		language: language,
		baseURL:  newsAPIBaseURL,
		client:   httpc.Client,
		logger:   log.Component("news"),
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.keyFn() != ""
}

const unavailableMessage = "News service is not available. Please configure your NewsAPI key."

type apiResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Author      string `json:"author"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Headlines fetches top headlines. A query string replaces the country
// filter, matching how the NewsAPI endpoint treats the two parameters.
func (c *Client) Headlines(ctx context.Context, q HeadlinesQuery) Result {
	if !c.Available() {
		return Result{Message: unavailableMessage, Articles: []Article{}}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("country", firstNonEmpty(q.Country, c.country))
	if q.Category != "" && IsCategory(q.Category) {
		params.Set("category", strings.ToLower(q.Category))
	}
	if q.Query != "" {
		params.Set("q", q.Query)
		params.Del("country")
	}

	resp, err := c.get(ctx, "/top-headlines", params)
	if err != nil {
		c.logger.Warn("headlines fetch failed", "error", err)
		return errorResult(err, "fetching news")
	}

	articles := formatArticles(resp, limit)
	return Result{
		Success:      true,
		Message:      fmt.Sprintf("Found %d headlines", len(articles)),
		Articles:     articles,
		TotalResults: resp.TotalResults,
	}
}

// Search queries the everything endpoint for articles about a topic.
func (c *Client) Search(ctx context.Context, q SearchQuery) Result {
	if !c.Available() {
		return Result{Message: unavailableMessage, Articles: []Article{}}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "popularity"
	}

	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("sortBy", sortBy)
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("language", firstNonEmpty(q.Language, c.language))

	resp, err := c.get(ctx, "/everything", params)
	if err != nil {
		c.logger.Warn("news search failed", "query", q.Query, "error", err)
		return errorResult(err, "searching news")
	}

	articles := formatArticles(resp, limit)
	return Result{
		Success:      true,
		Message:      fmt.Sprintf("Found %d articles about '%s'", len(articles), q.Query),
		Articles:     articles,
		TotalResults: resp.TotalResults,
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	params.Set("apiKey", c.keyFn())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, &apiError{"Invalid API key. Please check your NewsAPI credentials."}
	case http.StatusTooManyRequests:
		return nil, &apiError{"Rate limit exceeded. Please try again later."}
	default:
		return nil, &apiError{fmt.Sprintf("HTTP error %d", resp.StatusCode)}
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Status != "ok" {
		msg := out.Message
		if msg == "" {
			msg = "Failed to fetch news"
		}
		return nil, &apiError{msg}
	}
	return &out, nil
}

func formatArticles(resp *apiResponse, limit int) []Article {
	articles := make([]Article, 0, limit)
	for _, a := range resp.Articles {
		if len(articles) == limit {
			break
		}
		source := a.Source.Name
		if source == "" {
			source = "Unknown"
		}
		title := a.Title
		if title == "" {
			title = "No title"
		}
		articles = append(articles, Article{
			Title:       title,
			Description: a.Description,
			Source:      source,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Author:      a.Author,
		})
	}
	return articles
}

func errorResult(err error, action string) Result {
	var ae *apiError
	if errors.As(err, &ae) {
		return Result{Message: ae.msg, Articles: []Article{}}
	}
	return Result{
		Message:  fmt.Sprintf("Error %s: %s", action, err),
		Articles: []Article{},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
