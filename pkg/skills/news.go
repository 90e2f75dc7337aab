package skills

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/arcnova-labs/arcnova/pkg/news"
)

// News command types recognized by ExtractNewsCommand.
const (
	NewsCommandHeadlines = "headlines"
	NewsCommandCategory  = "category_news"
	NewsCommandCountry   = "country_news"
	NewsCommandSearch    = "search_news"
)

// NewsParams carries the parameters extracted from a news command.
type NewsParams struct {
	Category string
	Country  string
	Query    string
	Limit    int
}

var newsPrefixes = []string{
	"hey", "can you", "could you", "please", "would you", "i want", "i need",
}

var headlinePatterns = compileAll(
	`^(?:what(?:'s|'re| are) )?(?:the )?(?:latest |top |today's |current )?(?:news|headlines)\??$`,
	`^(?:give me |tell me |show me )?(?:the )?news\??$`,
	`^(?:what's |what is )?(?:happening|going on)(?: in the world| today)?\??$`,
	`^(?:read |get )(?:me )?(?:the )?(?:latest |top )?headlines\??$`,
	`^news updates?$`,
	`^brief me(?: on the news)?$`,
)

var categoryPatterns = compileAll(
	`^(?:what(?:'s|'re| are) )?(?:the )?(?:latest |top |today's )?(\w+) news\??$`,
	`^(?:give me |tell me |show me )?(?:the )?(\w+) (?:news|headlines)\??$`,
	`^(?:what's |what is )?(?:happening|new) in (\w+)\??$`,
	`^(?:read |get )(?:me )?(?:the )?(?:latest |top )?(\w+) headlines\??$`,
)

var countryPatterns = compileAll(
	`^(?:what(?:'s|'re| are) )?(?:the )?news (?:in |from )(.+?)\??$`,
	`^(?:headlines |news )(?:from |in )(.+)$`,
	`^(.+) (?:country )?headlines$`,
)

var searchPatterns = compileAll(
	`^(?:search |find |look for |news about |headlines about )(.+)$`,
	`^(?:what(?:'s|'re| are) )?(?:the )?(?:latest |recent )?news (?:about |on |regarding )(.+?)\??$`,
	`^(?:tell me |show me |find me )(?:news |headlines |articles )(?:about |on |regarding )(.+)$`,
	`^(.+) news$`,
)

var newsKeywords = []string{
	"news", "headline", "happening", "current events", "breaking", "latest",
	"what's new", "brief me", "update", "today's",
}

// countryCodes maps spoken country names to NewsAPI country codes.
var countryCodes = map[string]string{
	"united states": "us", "usa": "us", "america": "us", "us": "us",
	"united kingdom": "gb", "uk": "gb", "britain": "gb", "england": "gb",
	"india": "in", "canada": "ca", "australia": "au",
	"germany": "de", "france": "fr", "italy": "it", "spain": "es",
	"japan": "jp", "china": "cn", "russia": "ru", "brazil": "br",
	"mexico": "mx", "netherlands": "nl", "norway": "no", "sweden": "se",
	"switzerland": "ch", "belgium": "be", "austria": "at", "poland": "pl",
	"new zealand": "nz", "ireland": "ie", "singapore": "sg", "malaysia": "my",
	"south africa": "za", "egypt": "eg", "israel": "il", "saudi arabia": "sa",
	"uae": "ae", "argentina": "ar", "colombia": "co", "indonesia": "id",
	"south korea": "kr", "turkey": "tr", "ukraine": "ua", "portugal": "pt",
}

// ExtractNewsCommand parses a transcript into a news command. The empty
// command string means the text is not a news request.
func ExtractNewsCommand(text string) (string, NewsParams) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", NewsParams{}
	}
	text = stripPrefixes(text, newsPrefixes)

	for _, re := range headlinePatterns {
		if re.MatchString(text) {
			return NewsCommandHeadlines, NewsParams{Limit: news.DefaultLimit}
		}
	}

	for _, re := range categoryPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			category := strings.ToLower(m[1])
			if news.IsCategory(category) {
				return NewsCommandCategory, NewsParams{Category: category, Limit: news.DefaultLimit}
			}
		}
	}

	for _, re := range countryPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if code, ok := countryCodes[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
				return NewsCommandCountry, NewsParams{Country: code, Limit: news.DefaultLimit}
			}
		}
	}

	for _, re := range searchPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			query := strings.TrimSpace(m[1])
			if query != "" && !news.IsCategory(query) {
				return NewsCommandSearch, NewsParams{Query: query, Limit: news.DefaultLimit}
			}
		}
	}

	fallbackKeywords := []string{"news", "headline", "happening", "current events", "breaking", "latest"}
	for _, kw := range fallbackKeywords {
		if strings.Contains(text, kw) {
			return NewsCommandHeadlines, NewsParams{Limit: news.DefaultLimit}
		}
	}

	return "", NewsParams{}
}

// NewsSkill answers news requests with live headlines.
type NewsSkill struct {
	client *news.Client
}

// NewNewsSkill creates a news skill backed by client.
func NewNewsSkill(client *news.Client) *NewsSkill {
	return &NewsSkill{client: client}
}

// Name identifies the skill in logs.
func (s *NewsSkill) Name() string { return "news" }

// Matches reports whether text contains news-related intent.
func (s *NewsSkill) Matches(text string) bool {
	text = strings.ToLower(text)
	if text == "" {
		return false
	}

	for _, kw := range newsKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	for _, category := range news.Categories {
		if !strings.Contains(text, category) {
			continue
		}
		for _, word := range []string{"news", "headline", "update"} {
			if strings.Contains(text, word) {
				return true
			}
		}
	}
	return false
}

// Handle executes the news command in text and returns speech-ready output.
func (s *NewsSkill) Handle(ctx context.Context, text string) string {
	if !s.client.Available() {
		return "News systems are offline. Apparently, someone forgot to configure the NewsAPI. " +
			"Get a free key from newsapi.org - even I use their services."
	}

	cmd, params := ExtractNewsCommand(text)
	if cmd == "" {
		cmd = NewsCommandHeadlines
		params = NewsParams{Limit: news.DefaultLimit}
	}

	var result news.Result
	switch cmd {
	case NewsCommandHeadlines, NewsCommandCategory:
		result = s.client.Headlines(ctx, news.HeadlinesQuery{Category: params.Category, Limit: params.Limit})
	case NewsCommandCountry:
		result = s.client.Headlines(ctx, news.HeadlinesQuery{Country: params.Country, Limit: params.Limit})
	case NewsCommandSearch:
		result = s.client.Search(ctx, news.SearchQuery{Query: params.Query, Limit: params.Limit})
	}

	return formatNewsResponse(result)
}

var newsIntros = []string{
	"Scanning global news networks... Here's what's making waves:",
	"I've tapped into the world's news feeds. Let me enlighten you:",
	"According to my sources - and they're always reliable -",
	"Fresh from the digital presses, here's your news briefing:",
	"I've filtered through thousands of articles. Here are the highlights:",
}

var newsClosings = []string{
	"Stay informed, stay ahead.",
	"Knowledge is power - use it wisely.",
	"That's all for now. I'll keep monitoring the situation.",
	"Consider yourself briefed.",
	"And that's what's happening in your world.",
}

func formatNewsResponse(result news.Result) string {
	if !result.Success {
		lower := strings.ToLower(result.Message)
		switch {
		case strings.Contains(lower, "not available"):
			return "News systems are offline. Apparently, someone forgot to configure the NewsAPI. " +
				"Get a free key from newsapi.org - even I use their services."
		case strings.Contains(lower, "rate limit"):
			return "We've hit the news API rate limit. Too much curiosity for one day? Try again in a few minutes."
		case strings.Contains(result.Message, "Invalid API key"):
			return "Invalid NewsAPI credentials detected. Someone's been tampering with the system. Check your API key."
		}
		return result.Message
	}

	if len(result.Articles) == 0 {
		return "Interesting... the news feeds are unusually quiet. " +
			"Either nothing's happening, or someone's blocking my access. Try again later."
	}

	formatted := news.FormatForSpeech(result.Articles, false)
	generic := fmt.Sprintf("Here are the top %d headlines:", min(5, len(result.Articles)))
	formatted = strings.Replace(formatted, generic, newsIntros[rand.IntN(len(newsIntros))], 1)
	return formatted + "\n\n" + newsClosings[rand.IntN(len(newsClosings))]
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

var _ Skill = (*NewsSkill)(nil)
