package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/room_booking_agent/internal/agent"
	"github.com/omriShneor/room_booking_agent/internal/auth"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
	"github.com/omriShneor/room_booking_agent/internal/database"
	"github.com/omriShneor/room_booking_agent/internal/driver"
	"github.com/omriShneor/room_booking_agent/internal/history"
	"github.com/omriShneor/room_booking_agent/internal/mocks"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/normalize"
	"github.com/omriShneor/room_booking_agent/internal/probe"
	"github.com/omriShneor/room_booking_agent/internal/run"
	"github.com/omriShneor/room_booking_agent/internal/sse"
	"github.com/omriShneor/room_booking_agent/internal/submission"
	"github.com/omriShneor/room_booking_agent/internal/testutil"
)

const portalURL = "https://utexas.momentus.io/"

const searchBody = `{"criteria": {"date": "2025-08-02", "start_time": "14:00", "end_time": "16:00", "capacity": 10}}`

type testEnv struct {
	*Server
	db        *database.DB
	states    *sse.StateManager
	gates     *checkpoint.Channel
	extractor *mocks.MockExtractor

	mu        sync.Mutex
	loginFail bool
	usernames []string
}

// portal simulates the booking portal: a login form, the search form and a
// results page whose second room can be booked.
func (e *testEnv) portal(ctx context.Context) (browser.Page, error) {
	page := testutil.NewFakePage("about:blank")
	page.OnGoto = func(p *testutil.FakePage, url string) error {
		if url == portalURL {
			p.SetPage(url, "Momentus Login", "",
				testutil.NewInput("text").WithID("username").Build(),
				testutil.NewInput("password").WithID("password").Build(),
				testutil.NewButton("Sign In").WithID("signin").Build(),
			)
		}
		return nil
	}
	page.OnClick = func(p *testutil.FakePage, selector string) error {
		switch selector {
		case "#signin":
			e.mu.Lock()
			e.usernames = append(e.usernames, p.Value("#username"))
			fail := e.loginFail
			e.mu.Unlock()
			if fail {
				p.BodyText = "Invalid username or password"
				return nil
			}
			p.SetPage(portalURL+"search", "Momentus Room Booking", "Welcome", testutil.BookingFormElements()...)
		case "#searchBtn":
			p.SetPage(portalURL+"results", "Results", "Available Rooms")
			p.Fragments[submission.RoomSelector] = []browser.Fragment{
				{Tag: "div", Selector: "#room-1", Text: "GDC 4.302\nCapacity: 12 people"},
				{Tag: "div", Selector: "#room-2", Text: "PCL 1.124\nCapacity: 20 people"},
			}
			p.Fragments["#room-1 button, #room-1 a"] = []browser.Fragment{{Tag: "button", Text: "Book", Selector: "#book-1"}}
			p.Fragments["#room-2 button, #room-2 a"] = []browser.Fragment{{Tag: "button", Text: "Book", Selector: "#book-2"}}
		case "#book-1", "#book-2":
			p.SetPage(portalURL+"reserved", "Reserved", "Booking confirmed. Confirmation number: RB-20250802")
		}
		return nil
	}
	return page, nil
}

func newTestEnv(t *testing.T, envCreds navigate.Credentials) *testEnv {
	t.Helper()

	db := database.NewTestDB(t)
	authService, err := auth.NewService(db, "test-secret-key")
	require.NoError(t, err)

	now := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	normalizer := &normalize.Normalizer{Now: func() time.Time { return now }, Logger: zerolog.Nop()}

	env := &testEnv{
		db:        db,
		states:    sse.NewStateManager(),
		gates:     checkpoint.NewChannel(0),
		extractor: &mocks.MockExtractor{},
	}

	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	runner := run.NewRunner(run.Config{
		Agent: agent.New(env.extractor, normalizer),
		Deps: run.Deps{
			Navigator:  navigate.New(0, time.Millisecond),
			Prober:     probe.New(),
			Driver:     driver.New(nil),
			Submitter:  submission.NewSubmitter(0),
			Classifier: submission.NewClassifier(),
			Gate:       env.gates,
			BaseURL:    portalURL,
			EntryURL:   portalURL,
		},
		Launch:    env.portal,
		History:   store,
		Listeners: []run.Listener{run.AttemptRecorder{DB: db}, run.ProgressPublisher{States: env.states}},
	})

	env.Server = New(Config{
		DB:             db,
		AuthService:    authService,
		Runner:         runner,
		States:         env.states,
		Gates:          env.gates,
		History:        store,
		Normalizer:     normalizer,
		EnvCredentials: envCreds,
	})
	t.Cleanup(func() { _ = env.Shutdown(context.Background()) })

	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestHandleHealthCheck(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{})
	env.extractor.On("IsConfigured").Return(false)

	w := env.do(t, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "disabled", response["extraction"])
	assert.Equal(t, "disabled", response["email"])
	assert.Equal(t, float64(0), response["active_runs"])
	assert.Empty(t, w.Result().Cookies(), "anonymous requests start no session")
}

func TestHandleChat(t *testing.T) {
	t.Run("missing message", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{})

		w := env.do(t, "POST", "/api/chat", `{"message": ""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No message provided", decode(t, w)["error"])
	})

	t.Run("invalid body", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{})

		w := env.do(t, "POST", "/api/chat", `{not json`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("extraction disabled", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{})
		env.extractor.On("IsConfigured").Return(false)

		w := env.do(t, "POST", "/api/chat", `{"message": "room for 4 tomorrow"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Contains(t, response["response"], "I received your request: 'Received request: room for 4 tomorrow'")
		assert.NotContains(t, response, "criteria")
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "received", data["status"])
	})

	t.Run("extracted criteria", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{})
		env.extractor.On("IsConfigured").Return(true)
		env.extractor.On("Extract", mock.Anything, "room for 10 tomorrow at 2pm").Return(&booking.Extraction{
			ExtractedDetails: &booking.ExtractedDetails{
				Date:      booking.NewText("tomorrow"),
				StartTime: booking.NewText("2:00 PM"),
				Capacity:  float64(10),
			},
			MissingInfo: []string{"duration"},
		}, nil)

		w := env.do(t, "POST", "/api/chat", `{"message": "room for 10 tomorrow at 2pm"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Contains(t, response["response"], "I understand you need a room booking with: date: tomorrow, time: 2:00 PM, capacity: 10 people.")
		assert.Contains(t, response["response"], "To complete your booking, I still need: duration.")

		criteria := response["criteria"].(map[string]interface{})
		assert.Equal(t, "2025-08-02", criteria["date"])
		assert.Equal(t, "14:00", criteria["start_time"])
		assert.Equal(t, "15:00", criteria["end_time"])
		assert.Equal(t, float64(10), criteria["capacity"])
	})
}

func TestHandleLoginAndLogout(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{})

	t.Run("missing password", func(t *testing.T) {
		w := env.do(t, "POST", "/api/login", `{"username": "jdoe"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Username and password required", decode(t, w)["error"])
	})

	w := env.do(t, "POST", "/api/login", `{"username": "jdoe", "password": "secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Credentials stored", response["message"])
	cookie := sessionCookie(t, w)

	// the stored credentials drive the next run
	w = env.do(t, "POST", "/api/search", searchBody, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"jdoe"}, env.usernames)

	w = env.do(t, "POST", "/api/logout", "", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out", decode(t, w)["message"])
	assert.Equal(t, -1, sessionCookie(t, w).MaxAge)

	// the old cookie no longer carries credentials
	w = env.do(t, "POST", "/api/search", searchBody, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication credentials required", decode(t, w)["error"])
}

func TestHandleSearch(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{})

		w := env.do(t, "POST", "/api/search", searchBody)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authentication credentials required", decode(t, w)["error"])
	})

	t.Run("login rejected", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})
		env.loginFail = true

		w := env.do(t, "POST", "/api/search", searchBody)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Failed to login to Momentus", decode(t, w)["error"])
	})

	t.Run("unparseable end time", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})

		w := env.do(t, "POST", "/api/search", `{"criteria": {"date": "2025-08-02", "start_time": "14:00", "end_time": "not a time"}}`)

		// unparseable times fall back to the default slot rather than failing
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rooms found", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})

		w := env.do(t, "POST", "/api/search", searchBody)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		response := decode(t, w)
		rooms := response["rooms"].([]interface{})
		require.Len(t, rooms, 2)
		assert.Equal(t, "GDC 4.302", rooms[0].(map[string]interface{})["name"])
		assert.Equal(t, "Found 2 available rooms.", response["summary"])
		assert.Equal(t, []string{"env"}, env.usernames)

		runID := response["run_id"].(string)
		attempt, err := env.db.GetBookingAttempt(runID)
		require.NoError(t, err)
		require.NotNil(t, attempt)
		assert.Equal(t, "classified", attempt.State)
		assert.Equal(t, "search_results", attempt.OutcomeKind)

		w = env.do(t, "GET", "/api/history", "")
		require.Equal(t, http.StatusOK, w.Code)
		var entries []history.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "16:00", entries[0].Criteria.EndTime)
		assert.Equal(t, booking.OutcomeSearchResults, entries[0].Outcome)
	})
}

func TestListLimits(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{})
	require.NoError(t, env.db.CreateBookingAttempt("run-1", "a room", "not_logged_in"))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"oversized history limit", "/api/history?limit=9000000000000", 0},
		{"overflowing history limit", "/api/history?limit=99999999999999999999", 0},
		{"negative history limit", "/api/history?limit=-3", 0},
		{"oversized runs limit", "/api/runs?limit=9000000000000", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "GET", tt.path, "")

			require.Equal(t, http.StatusOK, w.Code)
			var items []map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
			assert.Len(t, items, tt.want)
		})
	}
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 25},
		{"limit=10", 10},
		{"limit=0", 25},
		{"limit=abc", 25},
		{"limit=9000000000000", maxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/history?"+tt.query, nil)
			assert.Equal(t, tt.want, queryLimit(req, 25))
		})
	}
}

func TestHandleBook(t *testing.T) {
	t.Run("missing room id", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})

		w := env.do(t, "POST", "/api/book", `{"booking_details": {}}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Room ID is required", decode(t, w)["error"])
	})

	t.Run("books chosen room", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})

		w := env.do(t, "POST", "/api/book", `{"room_id": "2", "booking_details": {"date": "2025-08-02", "start_time": "2:00 PM", "duration": "2 hours"}}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		response := decode(t, w)
		assert.Equal(t, true, response["success"])
		assert.Equal(t, "Room booked successfully", response["message"])
		assert.Equal(t, "PCL 1.124", response["room"].(map[string]interface{})["name"])
		assert.Equal(t, "RB-20250802", response["confirmation"].(map[string]interface{})["number"])
	})

	t.Run("unknown room", func(t *testing.T) {
		env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})

		w := env.do(t, "POST", "/api/book", `{"room_id": "Main Hall", "booking_details": {"date": "2025-08-02"}}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to book room", decode(t, w)["error"])
	})
}

func TestAsyncRunAndStatus(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{Username: "env", Password: "pw"})

	w := env.do(t, "POST", "/api/search?async=true", searchBody)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	response := decode(t, w)
	runID := response["run_id"].(string)
	assert.Equal(t, "/api/runs/"+runID+"/stream", response["stream"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.states.GetState(runID).WaitForCompletion(ctx))

	w = env.do(t, "GET", "/api/runs/"+runID, "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, "classified", status["status"])
	assert.Equal(t, true, status["complete"])

	// a finished run streams its snapshot and ends
	w = env.do(t, "GET", "/api/runs/"+runID+"/stream", "")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "event: status\ndata: "))
	assert.Contains(t, w.Body.String(), `"complete":true`)

	w = env.do(t, "GET", "/api/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var attempts []database.BookingAttempt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, runID, attempts[0].RunID)
}

func TestHandleRunStatus(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{})
	require.NoError(t, env.db.CreateBookingAttempt("old-run", "a room", "not_logged_in"))
	require.NoError(t, env.db.FailBookingAttempt("old-run", "failed", "Failed to login to Momentus"))

	t.Run("from attempts table", func(t *testing.T) {
		w := env.do(t, "GET", "/api/runs/old-run", "")

		require.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Equal(t, "failed", response["state"])
		assert.Equal(t, "Failed to login to Momentus", response["error"])
	})

	t.Run("unknown run", func(t *testing.T) {
		w := env.do(t, "GET", "/api/runs/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, "GET", "/api/runs/nope/stream", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleResumeRun(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{})

	t.Run("nothing pending", func(t *testing.T) {
		w := env.do(t, "POST", "/api/runs/r1/resume", `{"answer": "1"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("answers pending checkpoint", func(t *testing.T) {
		answers := make(chan string, 1)
		go func() {
			answer, err := env.gates.Wait(context.Background(), checkpoint.Prompt{
				RunID:   "r1",
				Kind:    checkpoint.KindChooseField,
				Message: "Which control holds the start time?",
				Choices: []string{"select #a", "select #b"},
			})
			if err == nil {
				answers <- answer
			}
		}()
		require.Eventually(t, func() bool {
			_, ok := env.gates.Pending("r1")
			return ok
		}, time.Second, 5*time.Millisecond)

		w := env.do(t, "POST", "/api/runs/r1/resume", `{"answer": "2"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, checkpoint.KindChooseField, decode(t, w)["kind"])
		assert.Equal(t, "2", <-answers)
	})
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, navigate.Credentials{})

	w := env.do(t, "OPTIONS", "/api/search", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
