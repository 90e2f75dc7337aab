package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(srv *httptest.Server, key string) *Client {
	c := NewClient(func() string { return key }, "us", "en")
	if srv != nil {
		c.baseURL = srv.URL
	}
	return c
}

func TestHeadlinesUnavailableWithoutKey(t *testing.T) {
	c := newTestClient(nil, "")

	res := c.Headlines(context.Background(), HeadlinesQuery{})
	if res.Success {
		t.Error("expected failure without API key")
	}
	if !strings.Contains(res.Message, "not available") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestHeadlines(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-headlines" {
			http.NotFound(w, r)
			return
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, `{"status":"ok","totalResults":2,"articles":[
			{"title":"First story","source":{"name":"Reuters"},"url":"https://r.example/1","publishedAt":"2026-08-30T10:00:00Z"},
			{"title":"","description":"no title here","source":{}}
		]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv, "news-key")
	res := c.Headlines(context.Background(), HeadlinesQuery{Category: "technology", Limit: 5})

	if !res.Success {
		t.Fatalf("expected success, got message %q", res.Message)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(res.Articles))
	}
	if res.Articles[0].Title != "First story" || res.Articles[0].Source != "Reuters" {
		t.Errorf("unexpected first article: %+v", res.Articles[0])
	}
	if res.Articles[1].Title != "No title" || res.Articles[1].Source != "Unknown" {
		t.Errorf("missing fields not defaulted: %+v", res.Articles[1])
	}
	if gotQuery["category"] != "technology" {
		t.Errorf("category not passed through: %v", gotQuery)
	}
	if gotQuery["country"] != "us" {
		t.Errorf("default country not applied: %v", gotQuery)
	}
}

func TestHeadlinesQueryDropsCountry(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv, "news-key")
	c.Headlines(context.Background(), HeadlinesQuery{Query: "fusion power"})

	if !strings.Contains(rawQuery, "q=fusion+power") {
		t.Errorf("query not passed: %s", rawQuery)
	}
	if strings.Contains(rawQuery, "country=") {
		t.Errorf("country should be dropped when searching: %s", rawQuery)
	}
}

func TestHeadlinesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv, "bad-key")
	res := c.Headlines(context.Background(), HeadlinesQuery{})

	if res.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Message, "Invalid API key") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("sortBy"); got != "popularity" {
			t.Errorf("expected default sortBy popularity, got %q", got)
		}
		fmt.Fprint(w, `{"status":"ok","totalResults":1,"articles":[
			{"title":"Mars landing","source":{"name":"AP"}}
		]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv, "news-key")
	res := c.Search(context.Background(), SearchQuery{Query: "mars"})

	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if res.Message != "Found 1 articles about 'mars'" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestFormatForSpeech(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got := FormatForSpeech(nil, false)
		if got != "No news headlines available at the moment." {
			t.Errorf("unexpected text: %q", got)
		}
	})

	t.Run("headlines", func(t *testing.T) {
		articles := []Article{
			{Title: "Big launch", Source: "BBC"},
			{Title: "Market rally", Source: "Reuters", Description: "Stocks climbed."},
		}
		got := FormatForSpeech(articles, true)

		if !strings.HasPrefix(got, "Here are the top 2 headlines:") {
			t.Errorf("missing intro: %q", got)
		}
		if !strings.Contains(got, "Headline 1: Big launch. From BBC.") {
			t.Errorf("missing first headline: %q", got)
		}
		if !strings.Contains(got, "Stocks climbed.") {
			t.Errorf("missing description: %q", got)
		}
	})

	t.Run("caps at five", func(t *testing.T) {
		articles := make([]Article, 8)
		for i := range articles {
			articles[i] = Article{Title: fmt.Sprintf("story %d", i), Source: "Wire"}
		}
		got := FormatForSpeech(articles, false)
		if !strings.HasPrefix(got, "Here are the top 5 headlines:") {
			t.Errorf("expected cap at 5: %q", got)
		}
		if strings.Contains(got, "story 5") {
			t.Errorf("spoke more than five headlines: %q", got)
		}
	})
}
