package navigate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/testutil"
)

func TestScoreLink(t *testing.T) {
	tests := []struct {
		name string
		link browser.Link
		want int
	}{
		{name: "unrelated", link: browser.Link{Text: "News", Href: "/news"}, want: 0},
		{name: "meeting", link: browser.Link{Text: "Meeting notes", Href: "/notes"}, want: 1},
		{name: "room reservations", link: browser.Link{Text: "Room Reservations", Href: "/res"}, want: 4},
		{name: "momentus", link: browser.Link{Text: "Launch", Href: "https://utexas.momentus.io/"}, want: 4},
		{name: "book a conference room in momentus", link: browser.Link{Text: "Book a conference room", Href: "https://utexas.momentus.io/"}, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreLink(tt.link))
		})
	}
}

func TestBestLink(t *testing.T) {
	links := []browser.Link{
		{Text: "Home", Href: "/", Selector: "#home"},
		{Text: "Meeting room booking", Href: "/rooms", Selector: "#rooms"},
		{Text: "Room booking guide", Href: "/guide", Selector: "#guide"},
	}
	best, score, ok := BestLink(links)
	require.True(t, ok)
	assert.Equal(t, "#rooms", best.Selector)
	assert.Equal(t, 5, score)

	_, _, ok = BestLink([]browser.Link{{Text: "Home"}})
	assert.False(t, ok)
}

func TestInMomentus(t *testing.T) {
	assert.True(t, InMomentus("https://utexas.momentus.io/app", ""))
	assert.True(t, InMomentus("https://x", "Momentus Home"))
	assert.True(t, InMomentus("https://x", "Room Booking"))
	assert.True(t, InMomentus("https://x", "Reservation System"))
	assert.False(t, InMomentus("https://utexas.sharepoint.com", "Facilities"))
}

func TestToBookingPage_FollowsLink(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.sharepoint.com/sites/fac")
	page.LinkList = []browser.Link{
		{Text: "Parking", Href: "/parking", Selector: "#parking"},
		{Text: "Room Reservations", Href: "https://utexas.momentus.io/", Selector: "#rooms"},
	}
	page.OnClick = func(p *testutil.FakePage, selector string) error {
		p.SetPage("https://utexas.momentus.io/search", "Momentus", "", testutil.BookingFormElements()...)
		return nil
	}

	err := New(0, time.Millisecond).ToBookingPage(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, []string{"#rooms"}, page.Clicks())
	assert.Equal(t, "https://utexas.momentus.io/search", page.URL())
}

func TestToBookingPage_AlreadyThere(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.momentus.io/search", testutil.BookingFormElements()...)

	err := New(0, time.Millisecond).ToBookingPage(context.Background(), page)
	require.NoError(t, err)
	assert.Empty(t, page.Clicks())
}

func TestToBookingPage_SecondHop(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.sharepoint.com/sites/fac")
	page.LinkList = []browser.Link{{Text: "Book a room", Href: "/sites/fac/rooms", Selector: "#rooms"}}
	page.OnClick = func(p *testutil.FakePage, selector string) error {
		switch selector {
		case "#rooms":
			p.SetPage("https://utexas.sharepoint.com/sites/fac/rooms", "Facilities", "")
			p.LinkList = []browser.Link{{Text: "Launch scheduler", Href: "https://utexas.momentus.io/", Selector: "#launch"}}
		case "#launch":
			p.SetPage("https://utexas.momentus.io/", "Momentus", "")
		}
		return nil
	}

	err := New(0, time.Millisecond).ToBookingPage(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, []string{"#rooms", "#launch"}, page.Clicks())
	assert.Equal(t, "https://utexas.momentus.io/", page.URL())
}

func TestToBookingPage_FallbackPaths(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.sharepoint.com/sites/fac/?view=1")
	page.OnGoto = func(p *testutil.FakePage, url string) error {
		if url == "https://utexas.sharepoint.com/sites/fac/rooms" {
			p.PageTitle = "Rooms"
		} else {
			p.PageTitle = "404 Not Found"
		}
		return nil
	}

	err := New(0, time.Millisecond).ToBookingPage(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://utexas.sharepoint.com/sites/fac/reservations",
		"https://utexas.sharepoint.com/sites/fac/booking",
		"https://utexas.sharepoint.com/sites/fac/rooms",
	}, page.Visited())
}

func TestToBookingPage_NothingFound(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.sharepoint.com")
	page.OnGoto = func(p *testutil.FakePage, url string) error {
		p.PageTitle = "Error"
		return nil
	}

	err := New(0, time.Millisecond).ToBookingPage(context.Background(), page)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrorTypeSelectorMiss))
	assert.Len(t, page.Visited(), len(FallbackPaths))
}

func loginForm() []booking.Element {
	return []booking.Element{
		testutil.NewInput("text").WithID("username").Build(),
		testutil.NewInput("password").WithID("password").Build(),
		testutil.NewButton("Sign In").WithID("signin").Build(),
	}
}

func TestLogin_Success(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.OnGoto = func(p *testutil.FakePage, url string) error {
		p.SetPage(url, "Login", "", loginForm()...)
		return nil
	}
	page.OnClick = func(p *testutil.FakePage, selector string) error {
		p.SetPage("https://utexas.momentus.io/home", "Momentus", "Welcome back")
		return nil
	}

	creds := Credentials{Username: "jdoe", Password: "secret"}
	err := New(0, time.Millisecond).Login(context.Background(), page, "https://utexas.momentus.io/", creds)
	require.NoError(t, err)
	assert.Equal(t, []string{"#signin"}, page.Clicks())
}

func TestLogin_RecordsCredentials(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.momentus.io/", loginForm()...)
	page.OnGoto = func(p *testutil.FakePage, url string) error { return nil }

	creds := Credentials{Username: "jdoe", Password: "secret"}
	// no navigation after clicking and no success marker
	err := New(0, time.Millisecond).Login(context.Background(), page, "https://utexas.momentus.io/", creds)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrorTypeUnauthorized))
	assert.Equal(t, "jdoe", page.Value("#username"))
	assert.Equal(t, "secret", page.Value("#password"))
}

func TestLogin_ErrorMessage(t *testing.T) {
	page := testutil.NewFakePage("https://utexas.momentus.io/", loginForm()...)
	page.OnClick = func(p *testutil.FakePage, selector string) error {
		p.CurrentURL = "https://utexas.momentus.io/login?failed=1"
		p.BodyText = "Invalid username or password"
		return nil
	}

	err := New(0, time.Millisecond).Login(context.Background(), page, "https://utexas.momentus.io/", Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrorTypeUnauthorized))
}

func TestLogin_MissingCredentials(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	err := New(0, 0).Login(context.Background(), page, "https://utexas.momentus.io/", Credentials{Username: "a"})
	assert.True(t, apperr.Is(err, apperr.ErrorTypeUnauthorized))
	assert.Empty(t, page.Visited())
}

func TestFindLoginFields(t *testing.T) {
	submitInput := testutil.NewInput("submit").WithID("login").Build()
	emailInput := testutil.NewInput("email").WithName("mail").Build()
	passInput := testutil.NewInput("password").WithName("pwd").Build()
	elements := []booking.Element{submitInput, emailInput, passInput}

	user, ok := FindUsernameField(elements)
	require.True(t, ok)
	assert.Equal(t, emailInput.Selector, user.Selector)

	pass, ok := FindPasswordField(elements)
	require.True(t, ok)
	assert.Equal(t, passInput.Selector, pass.Selector)

	button, ok := FindLoginButton(elements)
	require.True(t, ok)
	assert.Equal(t, "#login", button.Selector)

	_, ok = FindLoginButton([]booking.Element{emailInput})
	assert.False(t, ok)
}
