// Package caption derives display names and composes channel post text.
// Everything here is pure string work; randomness is limited to decorative
// symbols and quote selection.
package caption

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// AnonymousName is used when an account has neither a handle nor a name.
const AnonymousName = "Anonymous"

// teamoji are the decorative symbols sprinkled into captions. The trailing
// space is intentional: sometimes a slot stays empty.
var teamoji = []string{"🍵", "🫖", "🌱", "🍃", "🍯", "🍫", "🍪", " "}

// DisplayName derives a stable-enough display string for an account:
// @handle when one exists, otherwise "first last" with absent parts
// omitted, otherwise AnonymousName.
func DisplayName(handle, first, last string) string {
	if handle != "" {
		return "@" + handle
	}
	var parts []string
	if s := strings.TrimSpace(first); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(last); s != "" {
		parts = append(parts, s)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return AnonymousName
}

// Compose builds the channel caption for a tea post. With custom text the
// text is quoted inline; otherwise the default template is used. The emoji
// are random, so tests must assert structure, not exact bytes.
func Compose(displayName, customText string) string {
	if customText != "" {
		return fmt.Sprintf("%s %s Tea. %q\nby %s", pick(), pick(), customText, displayName)
	}
	return fmt.Sprintf("%s %s Tea %s %s\nby %s", pick(), pick(), pick(), pick(), displayName)
}

// ComposeQuote builds the channel caption for a quote post.
func ComposeQuote(displayName, quote string) string {
	return fmt.Sprintf("%s %s Quote %s %s\n\n%s\n\nby %s", pick(), pick(), pick(), pick(), quote, displayName)
}

func pick() string {
	return teamoji[rand.Intn(len(teamoji))]
}

// defaultQuotes keeps /quote working when no quotes file is configured.
var defaultQuotes = []string{
	"Tea is the elixir of life.",
	"Where there's tea, there's hope.",
	"A cup of tea makes everything better.",
	"Tea is liquid wisdom.",
}

// LoadQuotes reads one quote per line, skipping blanks. A missing or empty
// file yields the built-in defaults rather than an error: quotes are
// decoration, not data.
func LoadQuotes(path string) []string {
	if path == "" {
		return defaultQuotes
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultQuotes
	}
	var quotes []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			quotes = append(quotes, line)
		}
	}
	if len(quotes) == 0 {
		return defaultQuotes
	}
	return quotes
}

// RandomQuote picks one quote, falling back to the defaults for an empty set.
func RandomQuote(quotes []string) string {
	if len(quotes) == 0 {
		quotes = defaultQuotes
	}
	return quotes[rand.Intn(len(quotes))]
}
