package agent

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var browserNames = map[string]string{
	"google chrome":   "chrome",
	"chrome":          "chrome",
	"chromium":        "chrome",
	"mozilla firefox": "firefox",
	"firefox":         "firefox",
	"microsoft edge":  "edge",
	"msedge":          "edge",
	"edge":            "edge",
	"safari":          "safari",
	"opera":           "opera",
	"brave":           "brave",
	"vivaldi":         "vivaldi",
}

var browserTitleSuffixes = []string{
	" - Google Chrome",
	" - Chromium",
	" - Microsoft Edge",
	" - Mozilla Firefox",
	" — Mozilla Firefox",
	" - Safari",
	" - Opera",
	" - Brave",
	" - Vivaldi",
}

var (
	urlInTitle    = regexp.MustCompile(`https?://([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	domainInTitle = regexp.MustCompile(`\b([a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|org|net|io|dev|id|co\.id|ac\.id|sch\.id|edu|gov|app|me|to))\b`)
	leadingCount  = regexp.MustCompile(`^\(\d+\)\s*`)
)

// Sites recognised by name in browser titles when no domain is visible
var knownSites = []struct {
	keyword string
	domain  string
}{
	{"stack overflow", "stackoverflow.com"},
	{"youtube", "youtube.com"},
	{"github", "github.com"},
	{"gitlab", "gitlab.com"},
	{"chatgpt", "chatgpt.com"},
	{"w3schools", "w3schools.com"},
	{"mdn web docs", "developer.mozilla.org"},
	{"wikipedia", "wikipedia.org"},
	{"instagram", "instagram.com"},
	{"facebook", "facebook.com"},
	{"tiktok", "tiktok.com"},
	{"whatsapp", "web.whatsapp.com"},
	{"netflix", "netflix.com"},
}

type urlEntry struct {
	url      string
	storedAt time.Time
}

// URLStore keeps browser URLs reported by the browser extension, keyed by
// browser and page title, and expires them after a TTL
type URLStore struct {
	mu       sync.RWMutex
	urls     map[string]urlEntry
	ttl      time.Duration
	clock    Clock
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewURLStore creates a URL store. Start must be called to expire entries
// in the background.
func NewURLStore(ttl time.Duration, clock Clock, logger *zap.Logger) *URLStore {
	return &URLStore{
		urls:     make(map[string]urlEntry),
		ttl:      ttl,
		clock:    clock,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the expiry loop
func (s *URLStore) Start(cleanupInterval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cleanup()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop stops the expiry loop. It is safe to call more than once.
func (s *URLStore) Stop() {
	s.mu.Lock()
	select {
	case <-s.stopChan:
		s.mu.Unlock()
		return
	default:
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Store records the URL of the page with the given title in application
func (s *URLStore) Store(application, title, url string) {
	key := storeKey(application, title)

	s.mu.Lock()
	s.urls[key] = urlEntry{url: url, storedAt: s.clock.Now()}
	s.mu.Unlock()

	s.logger.Debug("Stored browser URL",
		zap.String("key", key),
		zap.String("url", url),
	)
}

// Lookup returns the URL for a foreground window. The window title usually
// carries a browser suffix the extension does not send, so titles are
// compared without it.
func (s *URLStore) Lookup(application, title string) (string, bool) {
	browser := normalizeBrowser(application)
	wanted := normalizeTitle(title)
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.urls[browser+":"+wanted]; ok && now.Sub(e.storedAt) <= s.ttl {
		return e.url, true
	}

	prefix := browser + ":"
	for key, e := range s.urls {
		if now.Sub(e.storedAt) > s.ttl || !strings.HasPrefix(key, prefix) {
			continue
		}
		stored := strings.TrimPrefix(key, prefix)
		if stored != "" && wanted != "" && (strings.Contains(stored, wanted) || strings.Contains(wanted, stored)) {
			return e.url, true
		}
	}
	return "", false
}

// Len returns the number of stored entries, expired or not
func (s *URLStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}

func (s *URLStore) cleanup() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for key, e := range s.urls {
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.urls, key)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug("Expired browser URLs", zap.Int("count", expired))
	}
}

// ResolveURL returns the URL to attach to an activity in application,
// preferring what the extension reported over what the title reveals.
// Non-browser applications have no URL.
func (s *URLStore) ResolveURL(application, title string) *string {
	if !IsBrowser(application) {
		return nil
	}
	if s != nil {
		if url, ok := s.Lookup(application, title); ok {
			return &url
		}
	}
	if domain := domainFromTitle(title); domain != "" {
		url := "https://" + domain
		return &url
	}
	return nil
}

// IsBrowser reports whether application is a known web browser
func IsBrowser(application string) bool {
	lower := strings.ToLower(application)
	for name := range browserNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

func storeKey(application, title string) string {
	return normalizeBrowser(application) + ":" + normalizeTitle(title)
}

func normalizeBrowser(application string) string {
	lower := strings.ToLower(strings.TrimSpace(application))
	// Longer names first so "google chrome" is not read as a different browser
	best := ""
	for name := range browserNames {
		if strings.Contains(lower, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return lower
	}
	return browserNames[best]
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, suffix := range browserTitleSuffixes {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.ToLower(strings.TrimSpace(title))
}

// domainFromTitle guesses the site shown in a browser window from its title
func domainFromTitle(title string) string {
	if m := urlInTitle.FindStringSubmatch(title); len(m) > 1 {
		return strings.TrimPrefix(strings.ToLower(m[1]), "www.")
	}

	page := leadingCount.ReplaceAllString(normalizeTitle(title), "")
	if page == "" {
		return ""
	}
	if m := domainInTitle.FindStringSubmatch(page); len(m) > 1 {
		return strings.TrimPrefix(m[1], "www.")
	}
	for _, site := range knownSites {
		if strings.Contains(page, site.keyword) {
			return site.domain
		}
	}
	return ""
}
