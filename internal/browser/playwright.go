package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// Config configures a browser session
type Config struct {
	Headless bool
	Timeout  time.Duration
	Width    int
	Height   int
}

// Session owns one playwright driver, browser and context. It is created at
// run start and closed at run end; nothing else holds a reference to it.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  zerolog.Logger

	mu   sync.Mutex
	page playwright.Page
}

// Launch starts chromium and opens a blank tab
func Launch(cfg Config) (*Session, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = 1920, 1080
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.Width,
			Height: cfg.Height,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	browserCtx.SetDefaultTimeout(float64(cfg.Timeout.Milliseconds()))

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &Session{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    page,
		timeout: cfg.Timeout,
		logger:  log.With().Str("component", "browser").Logger(),
	}, nil
}

func (s *Session) current() playwright.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// followNewestTab switches to a tab opened since the last action
func (s *Session) followNewestTab(before int) {
	pages := s.context.Pages()
	if len(pages) <= before {
		return
	}
	newest := pages[len(pages)-1]
	if err := newest.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("new tab did not finish loading")
	}

	s.mu.Lock()
	s.page = newest
	s.mu.Unlock()
	s.logger.Info().Str("url", newest.URL()).Msg("switched to new tab")
}

func (s *Session) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.current().Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return apperr.NewNavigationTimeout(fmt.Sprintf("navigating to %s", url), err)
	}
	return nil
}

func (s *Session) URL() string {
	return s.current().URL()
}

func (s *Session) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.current().Title()
}

// evaluate runs script with arg and decodes the JSON-compatible result into out
func (s *Session) evaluate(ctx context.Context, script string, arg any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		raw any
		err error
	)
	if arg == nil {
		raw, err = s.current().Evaluate(script)
	} else {
		raw, err = s.current().Evaluate(script, arg)
	}
	if err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode script result: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}

func (s *Session) Elements(ctx context.Context, maxOptions int) ([]booking.Element, error) {
	var elements []booking.Element
	if err := s.evaluate(ctx, elementsScript, maxOptions, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

func (s *Session) Links(ctx context.Context) ([]Link, error) {
	var links []Link
	if err := s.evaluate(ctx, linksScript, nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *Session) Query(ctx context.Context, selector string, limit int) ([]Fragment, error) {
	var fragments []Fragment
	args := map[string]any{"selector": selector, "limit": limit}
	if err := s.evaluate(ctx, queryScript, args, &fragments); err != nil {
		return nil, err
	}
	return fragments, nil
}

func (s *Session) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.current().Locator("body").InnerText()
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.current().Locator(selector).First()
	if err := loc.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *Session) InputValue(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.current().Locator(selector).First().InputValue()
}

func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.current().Locator(selector).First().SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return fmt.Errorf("select %q in %s: %w", value, selector, err)
	}
	return nil
}

func (s *Session) Dispatch(ctx context.Context, selector string, events ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.current().Locator(selector).First()
	for _, event := range events {
		if err := loc.DispatchEvent(event, map[string]any{"bubbles": true}); err != nil {
			return fmt.Errorf("dispatch %s on %s: %w", event, selector, err)
		}
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	before := len(s.context.Pages())

	loc := s.current().Locator(selector).First()
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		s.logger.Debug().Err(err).Str("selector", selector).Msg("scroll into view failed")
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}

	s.followNewestTab(before)
	return nil
}

func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.current().Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return apperr.NewNavigationTimeout(fmt.Sprintf("waiting for %s", selector), err)
	}
	return nil
}

// Close releases the tab, browser and driver
func (s *Session) Close() error {
	var firstErr error
	if err := s.context.Close(); err != nil {
		firstErr = err
	}
	if err := s.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ Page = (*Session)(nil)
