package navigate

import (
	"context"
	"fmt"
	"strings"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

// Credentials for the portal login form
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Valid() bool {
	return c.Username != "" && c.Password != ""
}

// Selectors checked after submitting the login form
const (
	LoginSuccessSelector = ".dashboard, .main-content, .user-menu, a[href*='logout']"
	LoginErrorSelector   = ".error, .alert-danger"
)

var (
	usernameKeys   = []string{"username", "user", "login", "email"}
	passwordKeys   = []string{"password", "pass"}
	loginButtonTxt = []string{"login", "sign in", "log in"}
	loginErrorTxt  = []string{"Invalid", "incorrect", "failed"}
	loginOkTxt     = []string{"Dashboard", "Welcome"}
)

// Login opens baseURL and submits creds through the login form
func (n *Navigator) Login(ctx context.Context, page browser.Page, baseURL string, creds Credentials) error {
	if !creds.Valid() {
		return apperr.NewUnauthorized("Authentication credentials required")
	}

	n.logger.Info().Str("url", baseURL).Msg("Navigating to portal login")
	if err := page.Goto(ctx, baseURL); err != nil {
		return err
	}

	elements, err := page.Elements(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to enumerate login form: %w", err)
	}

	user, ok := FindUsernameField(elements)
	if !ok {
		n.logger.Error().Int("inputs", len(elements)).Msg("No username field found")
		return apperr.NewSelectorMiss("no username field found")
	}
	pass, ok := FindPasswordField(elements)
	if !ok {
		return apperr.NewSelectorMiss("no password field found")
	}
	button, ok := FindLoginButton(elements)
	if !ok {
		return apperr.NewSelectorMiss("no login button found")
	}

	if err := page.Fill(ctx, user.Selector, creds.Username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	if err := page.Fill(ctx, pass.Selector, creds.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	n.logger.Info().Msg("Clicking login button")
	if err := page.Click(ctx, button.Selector); err != nil {
		return fmt.Errorf("failed to click login button: %w", err)
	}
	if err := browser.Pause(ctx, n.Settle); err != nil {
		return err
	}

	return n.checkLogin(ctx, page, baseURL)
}

func (n *Navigator) checkLogin(ctx context.Context, page browser.Page, baseURL string) error {
	text, _ := page.Text(ctx)

	if errs, _ := page.Query(ctx, LoginErrorSelector, 1); len(errs) > 0 || containsAny(text, loginErrorTxt) {
		n.logger.Error().Msg("Login error found on page")
		return apperr.NewUnauthorized("Failed to login to Momentus")
	}

	ok, _ := page.Query(ctx, LoginSuccessSelector, 1)
	if len(ok) > 0 || containsAny(text, loginOkTxt) {
		n.logger.Info().Msg("Successfully logged into Momentus")
		return nil
	}
	if page.URL() != baseURL {
		n.logger.Info().Str("url", page.URL()).Msg("URL changed after login, assuming success")
		return nil
	}
	return apperr.NewUnauthorized("Failed to login to Momentus")
}

// FindUsernameField looks for the login name input by id, then name, then
// any text or email input.
func FindUsernameField(elements []booking.Element) (booking.Element, bool) {
	inputs := loginInputs(elements)
	if el, ok := byAttr(inputs, usernameKeys); ok {
		return el, true
	}
	for _, t := range []string{"text", "email"} {
		for _, el := range inputs {
			if el.FieldType() == t {
				return el, true
			}
		}
	}
	return booking.Element{}, false
}

// FindPasswordField looks for the password input by id, name, then type
func FindPasswordField(elements []booking.Element) (booking.Element, bool) {
	inputs := loginInputs(elements)
	if el, ok := byAttr(inputs, passwordKeys); ok {
		return el, true
	}
	for _, el := range inputs {
		if el.FieldType() == "password" {
			return el, true
		}
	}
	return booking.Element{}, false
}

// FindLoginButton prefers submit controls, then login wording, then
// well-known ids and classes.
func FindLoginButton(elements []booking.Element) (booking.Element, bool) {
	var buttons []booking.Element
	for _, el := range elements {
		if !el.Visible {
			continue
		}
		ft := el.FieldType()
		if ft == "button" || ft == "submit" {
			buttons = append(buttons, el)
		}
	}
	for _, b := range buttons {
		if strings.EqualFold(b.Type, "submit") {
			return b, true
		}
	}
	for _, b := range buttons {
		text := strings.ToLower(b.Text + " " + b.Value)
		for _, kw := range loginButtonTxt {
			if strings.Contains(text, kw) {
				return b, true
			}
		}
	}
	for _, b := range buttons {
		if b.ID == "submit" || b.ID == "login" || strings.Contains(b.Class, "btn-login") {
			return b, true
		}
	}
	return booking.Element{}, false
}

func loginInputs(elements []booking.Element) []booking.Element {
	var out []booking.Element
	for _, el := range elements {
		if !el.Visible || el.Tag != "input" {
			continue
		}
		switch el.FieldType() {
		case "text", "email", "password":
			out = append(out, el)
		}
	}
	return out
}

func byAttr(inputs []booking.Element, keys []string) (booking.Element, bool) {
	for _, key := range keys {
		for _, el := range inputs {
			if el.ID == key {
				return el, true
			}
		}
	}
	for _, key := range keys {
		for _, el := range inputs {
			if el.Name == key {
				return el, true
			}
		}
	}
	return booking.Element{}, false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
