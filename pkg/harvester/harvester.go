// Package harvester scrolls a user's x.com timeline and collects the
// permalinks of media-bearing posts inside a configured time range.
package harvester

import (
	"fmt"
	"sort"
	"strings"
	"time"

	errs "xarchive/pkg/errors"
	"xarchive/pkg/logger"
)

const (
	profileURL   = "https://x.com/%s"
	postSelector = `article[data-testid="tweet"]`

	postWaitTimeout = 30 * time.Second
	scrollDelta     = 2500
	scrollPause     = 2500 * time.Millisecond
)

// MediaPageURL returns the media tab address for a username. The full
// history workflow hands this page to the downloader whole instead of
// scrolling the timeline post by post.
func MediaPageURL(username string) string {
	return fmt.Sprintf("https://x.com/%s/media", username)
}

// Page is the narrow browser surface the harvester drives. *browser.Page
// satisfies it; tests use synthetic fakes.
type Page interface {
	Navigate(url string) error
	WaitVisible(selector string, timeout time.Duration) error
	Location() (string, error)
	Title() (string, error)
	Evaluate(js string, out any) error
	ScrollBy(pixels int) error
	Close() error
}

// post is one rendered timeline entry as scanned out of the DOM
type post struct {
	Datetime string `json:"datetime"`
	HasMedia bool   `json:"hasMedia"`
	Href     string `json:"href"`
}

// scanPostsJS enumerates the currently rendered posts. Media presence is
// detected by two independent markers (photo container, video player); the
// permalink is the first /status/ anchor. Missing pieces come back empty
// and are skipped on the Go side.
const scanPostsJS = `(() => {
	const out = [];
	for (const article of document.querySelectorAll('article[data-testid="tweet"]')) {
		const time = article.querySelector('time');
		const photo = article.querySelector('div[data-testid="tweetPhoto"]');
		const video = article.querySelector('div[data-testid="videoPlayer"]');
		const link = article.querySelector('a[href*="/status/"]');
		out.push({
			datetime: time ? (time.getAttribute('datetime') || '') : '',
			hasMedia: !!(photo || video),
			href: link ? (link.getAttribute('href') || '') : '',
		});
	}
	return out;
})()`

// Harvester drives one user's timeline scan
type Harvester struct {
	username string
	preset   Preset
	pause    time.Duration
	log      logger.Logger
}

// New creates a harvester for a username and time-range label
func New(username, timeRange string, log logger.Logger) *Harvester {
	if log == nil {
		log = logger.GetLogger()
	}
	preset := ResolvePreset(timeRange)
	if preset.Label != timeRange {
		log.WarnWithFields("unknown time range, falling back", map[string]interface{}{
			"requested": timeRange,
			"using":     preset.Label,
		})
	}
	return &Harvester{
		username: username,
		preset:   preset,
		pause:    scrollPause,
		log:      log.WithField("username", username),
	}
}

// Preset returns the resolved (possibly normalized) preset
func (h *Harvester) Preset() Preset {
	return h.preset
}

// Harvest scrolls the profile page and returns the deduplicated canonical
// URLs of media posts inside the time range. The page is closed on every
// path. An empty result with a nil error means "no recent content";
// credential expiry and suspended accounts come back as typed errors.
func (h *Harvester) Harvest(page Page) ([]string, error) {
	defer page.Close()

	h.log.InfoWithFields("scanning timeline", map[string]interface{}{
		"time_range":  h.preset.Label,
		"max_scrolls": h.preset.MaxScrolls,
	})

	if err := page.Navigate(fmt.Sprintf(profileURL, h.username)); err != nil {
		return nil, fmt.Errorf("failed to open profile page: %w", err)
	}

	if err := page.WaitVisible(postSelector, postWaitTimeout); err != nil {
		return nil, h.classifyEmptyTimeline(page)
	}

	cutoff := h.preset.CutoffTime(time.Now().UTC())
	urls := make(map[string]struct{})
	reachedTimeLimit := false

	for i := 0; i < h.preset.MaxScrolls; i++ {
		if reachedTimeLimit {
			h.log.InfoWithFields("time range reached, stopping scroll", map[string]interface{}{
				"time_range": h.preset.Label,
			})
			break
		}

		var posts []post
		if err := page.Evaluate(scanPostsJS, &posts); err != nil {
			h.log.WithError(err).Warn("failed to scan rendered posts")
			posts = nil
		}

		// A single frame can carry out-of-order timestamps (pinned posts,
		// replies), so the whole frame is classified even after the cutoff
		// has been seen.
		for _, p := range posts {
			if !cutoff.IsZero() && p.Datetime != "" {
				if ts, err := time.Parse(time.RFC3339, p.Datetime); err == nil && ts.Before(cutoff) {
					reachedTimeLimit = true
				}
			}
			if !p.HasMedia || p.Href == "" {
				continue
			}
			urls[canonicalURL(p.Href)] = struct{}{}
		}

		if err := page.ScrollBy(scrollDelta); err != nil {
			h.log.WithError(err).Warn("scroll failed")
		}
		time.Sleep(h.pause)

		if i > 0 && i%10 == 0 {
			h.log.InfoWithFields("scroll progress", map[string]interface{}{
				"scrolls":     i,
				"media_posts": len(urls),
			})
		}
	}

	result := make([]string, 0, len(urls))
	for u := range urls {
		result = append(result, u)
	}
	sort.Strings(result)

	h.log.InfoWithFields("timeline scan finished", map[string]interface{}{
		"media_posts": len(result),
	})
	return result, nil
}

// classifyEmptyTimeline triages a post-wait timeout by inspecting where the
// browser ended up: a login/locked redirect means the credential expired, a
// suspension path means the target is gone, anything else is just a quiet
// timeline.
func (h *Harvester) classifyEmptyTimeline(page Page) error {
	location, _ := page.Location()
	title, _ := page.Title()
	h.log.WarnWithFields("no posts rendered before timeout", map[string]interface{}{
		"url":   location,
		"title": title,
	})

	switch {
	case strings.Contains(location, "login") || strings.Contains(location, "account/access"):
		return errs.New(errs.ErrorTypeAuth,
			"redirected to login or locked page, the configured cookies have expired", 0)
	case strings.Contains(location, "suspended"):
		return errs.New(errs.ErrorTypeSuspended,
			fmt.Sprintf("account %s is suspended", h.username), 0)
	default:
		// No recent content; not an error
		return nil
	}
}

// canonicalURL normalizes a permalink to origin + path, stripping the
// query string so the same post renders to one dedup key.
func canonicalURL(href string) string {
	full := href
	if strings.HasPrefix(href, "/") {
		full = "https://x.com" + href
	}
	if i := strings.IndexByte(full, '?'); i >= 0 {
		full = full[:i]
	}
	return full
}
