package news

import (
	"fmt"
	"strings"
)

// FormatForSpeech renders headlines as text ready for TTS. At most five
// articles are spoken to keep responses short.
func FormatForSpeech(articles []Article, includeDescription bool) string {
	if len(articles) == 0 {
		return "No news headlines available at the moment."
	}

	maxArticles := len(articles)
	if maxArticles > 5 {
		maxArticles = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the top %d headlines:\n\n", maxArticles)

	for i, article := range articles[:maxArticles] {
		fmt.Fprintf(&b, "Headline %d: %s. From %s.\n", i+1, article.Title, article.Source)
		if includeDescription && article.Description != "" {
			b.WriteString(article.Description + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
