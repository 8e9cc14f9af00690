// Package browsertest provides in-memory stand-ins for playwright pages so
// that session, pagination and controller logic can be tested without a
// browser. Methods that are not overridden panic through the nil embedded
// interface.
package browsertest

import (
	"errors"
	"sync"

	"github.com/playwright-community/playwright-go"
)

var ErrTimeout = errors.New("timeout exceeded")

// Page is a fake playwright.Page.
type Page struct {
	playwright.Page

	mu sync.Mutex

	HTML       string
	ContentErr error
	CurrentURL string

	// Locators maps a selector to the locator returned for it. Unknown
	// selectors yield an empty locator.
	Locators map[string]*Locator

	// FingerprintChanges is consumed by WaitForFunction: each call pops the
	// first value, and an exhausted list means no change.
	FingerprintChanges []bool
	// URLAfterChange replaces CurrentURL when WaitForFunction succeeds.
	URLAfterChange string

	Waits        []float64
	WaitScripts  []string
	WaitArgs     []interface{}
	Closed       int
	MouseTargets [][2]float64
}

func NewPage(url, html string) *Page {
	return &Page{
		CurrentURL: url,
		HTML:       html,
		Locators:   make(map[string]*Locator),
	}
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

// SetURL moves the page to url, as a navigation would.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentURL = url
}

func (p *Page) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.Locators[selector]; ok {
		return l
	}
	return &Locator{}
}

func (p *Page) WaitForTimeout(timeout float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Waits = append(p.Waits, timeout)
}

func (p *Page) WaitForFunction(expression string, arg interface{}, options ...playwright.PageWaitForFunctionOptions) (playwright.JSHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WaitScripts = append(p.WaitScripts, expression)
	p.WaitArgs = append(p.WaitArgs, arg)
	if len(p.FingerprintChanges) == 0 {
		return nil, ErrTimeout
	}
	changed := p.FingerprintChanges[0]
	p.FingerprintChanges = p.FingerprintChanges[1:]
	if !changed {
		return nil, ErrTimeout
	}
	if p.URLAfterChange != "" {
		p.CurrentURL = p.URLAfterChange
	}
	return nil, nil
}

func (p *Page) Mouse() playwright.Mouse {
	return &mouse{page: p}
}

func (p *Page) Close(options ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed++
	return nil
}

type mouse struct {
	playwright.Mouse
	page *Page
}

func (m *mouse) Move(x float64, y float64, options ...playwright.MouseMoveOptions) error {
	m.page.mu.Lock()
	defer m.page.mu.Unlock()
	m.page.MouseTargets = append(m.page.MouseTargets, [2]float64{x, y})
	return nil
}

// pwLocator keeps the embedded field from shadowing the Locator method.
type pwLocator = playwright.Locator

// Locator is a fake playwright.Locator. First returns the locator itself.
type Locator struct {
	pwLocator

	Matches    int
	CountErr   error
	Visible    bool
	Enabled    bool
	Attributes map[string]string
	ClickErr   error
	// OnClick runs after every successful click or script click.
	OnClick func()

	Clicks       int
	ScriptClicks int
	Scrolled     int
}

func (l *Locator) Count() (int, error) {
	return l.Matches, l.CountErr
}

func (l *Locator) First() playwright.Locator {
	return l
}

func (l *Locator) IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error) {
	return l.Visible, nil
}

func (l *Locator) IsEnabled(options ...playwright.LocatorIsEnabledOptions) (bool, error) {
	return l.Enabled, nil
}

func (l *Locator) GetAttribute(name string, options ...playwright.LocatorGetAttributeOptions) (string, error) {
	return l.Attributes[name], nil
}

func (l *Locator) ScrollIntoViewIfNeeded(options ...playwright.LocatorScrollIntoViewIfNeededOptions) error {
	l.Scrolled++
	return nil
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	if l.ClickErr != nil {
		return l.ClickErr
	}
	l.Clicks++
	if l.OnClick != nil {
		l.OnClick()
	}
	return nil
}

func (l *Locator) Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	l.ScriptClicks++
	if l.OnClick != nil {
		l.OnClick()
	}
	return nil, nil
}
