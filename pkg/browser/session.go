// Package browser wraps chromedp behind the narrow set of page operations
// the harvester and the DOM-automation uploader actually drive, so both can
// be tested against synthetic pages.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Options configures the browser session
type Options struct {
	UserAgent string
	Headless  bool
}

// Session owns one headless browser instance. Pages are tabs of this
// session and share its cookie jar.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewSession launches the browser and waits for it to come up
func NewSession(parent context.Context, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start now so failures surface here
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// SetCookies attaches cookie parameters to the session's cookie jar
func (s *Session) SetCookies(params []*network.CookieParam) error {
	if len(params) == 0 {
		return nil
	}
	if err := chromedp.Run(s.ctx, storage.SetCookies(params)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

// NewPage opens a new tab
func (s *Session) NewPage() (*Page, error) {
	ctx, cancel := chromedp.NewContext(s.ctx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &Page{ctx: ctx, cancel: cancel}, nil
}

// Close shuts the browser down
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}
