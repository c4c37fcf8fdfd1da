package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// opTimeout bounds simple DOM queries that should never hang
const opTimeout = 10 * time.Second

// Page is one browser tab. Every operation is bounded: waits take an
// explicit timeout, everything else uses opTimeout.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

func (p *Page) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads a URL
func (p *Page) Navigate(url string) error {
	return p.run(60*time.Second, chromedp.Navigate(url))
}

// WaitVisible waits for a selector to render within timeout
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	return p.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// WaitForAny waits for the first of several selectors to render
func (p *Page) WaitForAny(selectors []string, timeout time.Duration) error {
	return p.WaitVisible(strings.Join(selectors, ", "), timeout)
}

// Location returns the page's current URL
func (p *Page) Location() (string, error) {
	var url string
	err := p.run(opTimeout, chromedp.Location(&url))
	return url, err
}

// Title returns the document title
func (p *Page) Title() (string, error) {
	var title string
	err := p.run(opTimeout, chromedp.Title(&title))
	return title, err
}

// Evaluate runs a JavaScript expression, decoding its result into out
// (out may be nil when the result is not needed)
func (p *Page) Evaluate(js string, out any) error {
	return p.run(opTimeout, chromedp.Evaluate(js, out))
}

// ScrollBy scrolls the viewport forward by the given pixel delta
func (p *Page) ScrollBy(pixels int) error {
	return p.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil)
}

// Count returns the number of elements matching a selector
func (p *Page) Count(selector string) (int, error) {
	var n int
	err := p.Evaluate(fmt.Sprintf("document.querySelectorAll(%q).length", selector), &n)
	return n, err
}

// findByTextJS locates the deepest element whose trimmed text matches and
// leaves it in a well-known temp slot for a follow-up action.
const findByTextJS = `(() => {
	const want = %q, exact = %t;
	let found = null;
	const walk = (el) => {
		for (const child of el.children) walk(child);
		if (found) return;
		const text = (el.textContent || '').trim();
		if (exact ? text === want : text.includes(want)) found = el;
	};
	walk(document.body);
	window.__xarchive_found = found;
	return found !== null;
})()`

// FindText reports whether any element's text matches
func (p *Page) FindText(text string, exact bool) (bool, error) {
	var found bool
	err := p.Evaluate(fmt.Sprintf(findByTextJS, text, exact), &found)
	return found, err
}

// ClickText clicks the deepest element whose text matches
func (p *Page) ClickText(text string, exact bool) error {
	found, err := p.FindText(text, exact)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no element with text %q", text)
	}
	return p.Evaluate("window.__xarchive_found.click(); true", nil)
}

// DoubleClickText double-clicks the deepest element whose text matches
// (folder entries open on double click)
func (p *Page) DoubleClickText(text string, exact bool) error {
	found, err := p.FindText(text, exact)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no element with text %q", text)
	}
	const js = `(() => {
		const el = window.__xarchive_found;
		el.dispatchEvent(new MouseEvent('dblclick', {bubbles: true, cancelable: true, view: window}));
		return true;
	})()`
	return p.Evaluate(js, nil)
}

// Click clicks the first element matching a selector
func (p *Page) Click(selector string) error {
	return p.run(opTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

// FillLast fills the last element matching a selector with a value,
// dispatching input events so framework-bound fields notice
func (p *Page) FillLast(selector, value string) error {
	const js = `(() => {
		const els = document.querySelectorAll(%q);
		if (els.length === 0) return false;
		const el = els[els.length - 1];
		const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
		setter.call(el, %q);
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`
	var ok bool
	if err := p.Evaluate(fmt.Sprintf(js, selector, value), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matching %q", selector)
	}
	return nil
}

// AttachFile sets a local file path on a (possibly hidden) file input,
// bypassing the native picker dialog
func (p *Page) AttachFile(selector, path string) error {
	return p.run(opTimeout, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery))
}

// Text returns the visible text of the first element matching a selector
func (p *Page) Text(selector string) (string, error) {
	const js = `(() => {
		const el = document.querySelector(%q);
		return el ? (el.innerText || '') : '';
	})()`
	var text string
	err := p.Evaluate(fmt.Sprintf(js, selector), &text)
	return text, err
}

// BodyTextContains reports whether the visible page text contains substr
func (p *Page) BodyTextContains(substr string) (bool, error) {
	var found bool
	err := p.Evaluate(fmt.Sprintf("(document.body.innerText || '').includes(%q)", substr), &found)
	return found, err
}

// Closed reports whether the page has been closed
func (p *Page) Closed() bool {
	return p.closed || p.ctx.Err() != nil
}

// Close releases the tab
func (p *Page) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	return nil
}
