package usage

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultProductiveApps are matched as lowercase substrings of the application name
var DefaultProductiveApps = []string{
	"code", "vscode", "visual studio code",
	"sublime", "atom", "vim", "neovim",
	"phpstorm", "webstorm", "pycharm", "intellij",
	"android studio", "xcode",
	"figma", "sketch", "photoshop", "illustrator",
	"terminal", "iterm", "cmd", "powershell",
	"mysql workbench", "dbeaver", "datagrip",
	"notion", "obsidian", "typora",
}

// DefaultUnproductiveApps are checked after the productive list
var DefaultUnproductiveApps = []string{
	"steam", "discord", "spotify", "netflix",
	"game", "gaming",
}

const defaultCacheSize = 256

// Categorizer assigns a Category to application names. Results are cached
// because the agent categorizes the foreground application every second.
type Categorizer struct {
	productive   []string
	unproductive []string
	cache        *lru.Cache[string, Category]
}

// NewCategorizer creates a categorizer for the given keyword lists.
// Nil lists fall back to the defaults.
func NewCategorizer(productive, unproductive []string, cacheSize int) (*Categorizer, error) {
	if productive == nil {
		productive = DefaultProductiveApps
	}
	if unproductive == nil {
		unproductive = DefaultUnproductiveApps
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	cache, err := lru.New[string, Category](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create category cache: %w", err)
	}

	return &Categorizer{
		productive:   lowerAll(productive),
		unproductive: lowerAll(unproductive),
		cache:        cache,
	}, nil
}

// Categorize returns the category for an application name. Productive
// keywords win over unproductive ones; anything unmatched is neutral.
func (c *Categorizer) Categorize(app string) Category {
	lower := strings.ToLower(strings.TrimSpace(app))
	if cat, ok := c.cache.Get(lower); ok {
		return cat
	}

	cat := CategoryNeutral
	if containsAny(lower, c.productive) {
		cat = CategoryProductive
	} else if containsAny(lower, c.unproductive) {
		cat = CategoryUnproductive
	}

	c.cache.Add(lower, cat)
	return cat
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
