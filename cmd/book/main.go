// Command book runs one booking from the terminal. The browser window stays
// visible so the portal login can be completed by hand; every checkpoint is
// answered on stdin.
//
// Usage:
//
//	OPENAI_API_KEY=sk-... go run ./cmd/book -book "room for 6 tomorrow at 2pm for an hour"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/agent"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/cache"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
	"github.com/omriShneor/room_booking_agent/internal/config"
	"github.com/omriShneor/room_booking_agent/internal/driver"
	"github.com/omriShneor/room_booking_agent/internal/history"
	"github.com/omriShneor/room_booking_agent/internal/llm"
	"github.com/omriShneor/room_booking_agent/internal/logging"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/normalize"
	"github.com/omriShneor/room_booking_agent/internal/probe"
	"github.com/omriShneor/room_booking_agent/internal/run"
	"github.com/omriShneor/room_booking_agent/internal/submission"
	"github.com/omriShneor/room_booking_agent/internal/timeutil"
)

func main() {
	headless := flag.Bool("headless", false, "run the browser without a window")
	book := flag.Bool("book", false, "book a room from the search results")
	flag.Parse()

	cfg := config.LoadFromEnv()
	logging.InitWithWriter(os.Stderr, "room-booking-cli", "development", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := checkpoint.NewConsole(os.Stdin, os.Stdout)

	request := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if request == "" {
		answer, err := gate.Wait(ctx, checkpoint.Prompt{Kind: checkpoint.KindConfirm, Message: "Enter your room booking request:"})
		if err != nil {
			fatal(err)
		}
		request = answer
	}
	if request == "" {
		fatal(fmt.Errorf("no booking request given"))
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
		RateLimit:   cfg.OpenAIRateLimit,
		Cache:       cache.NewMemory(),
	})
	if !llmClient.IsConfigured() {
		fatal(fmt.Errorf("OPENAI_API_KEY is not configured"))
	}

	loc, _ := timeutil.ResolveLocation(cfg.Timezone)
	runner := run.NewRunner(run.Config{
		Agent: agent.New(llmClient, normalize.New(loc)),
		Deps: run.Deps{
			Navigator:  navigate.New(2*time.Second, cfg.BrowserTimeout),
			Prober:     probe.New(),
			Driver:     driver.New(llmClient),
			Submitter:  submission.NewSubmitter(cfg.SubmitWait),
			Classifier: submission.NewClassifier(),
			Gate:       gate,
			BaseURL:    cfg.MomentusBaseURL,
			EntryURL:   cfg.EntryURL(),
		},
		Launch: func(ctx context.Context) (browser.Page, error) {
			sess, err := browser.Launch(browser.Config{Headless: *headless, Timeout: cfg.BrowserTimeout})
			if err != nil {
				return nil, err
			}
			return sess, nil
		},
		History: history.NewStore(cfg.HistoryFile),
	})

	fmt.Printf("\nProcessing: %q\n", request)
	_, criteria, err := runner.Understand(ctx, request)
	if err != nil {
		fatal(err)
	}
	printCriteria(criteria)

	answer, err := gate.Wait(ctx, checkpoint.Prompt{Kind: checkpoint.KindConfirm, Message: "Does this look correct? (y/n)"})
	if err != nil {
		fatal(err)
	}
	if !strings.HasPrefix(strings.ToLower(answer), "y") {
		fmt.Println("Try again with a more specific request.")
		return
	}

	result, err := runner.Execute(ctx, run.Request{
		Text:     request,
		Criteria: criteria,
		Credentials: navigate.Credentials{
			Username: cfg.MomentusUsername,
			Password: cfg.MomentusPassword,
		},
		Interactive: true,
		Book:        *book,
	})
	if err != nil {
		fatal(err)
	}
	printResult(result)
}

func printCriteria(c booking.Criteria) {
	fmt.Println("\nParsed your request as:")
	fmt.Printf("  Date:      %s\n", c.Date)
	fmt.Printf("  Time:      %s - %s\n", timeutil.To12Hour(c.StartTime), timeutil.To12Hour(c.EndTime))
	fmt.Printf("  Capacity:  %d people\n", c.Capacity)
	location := c.Location
	if location == "" {
		location = "Any"
	}
	fmt.Printf("  Location:  %s\n", location)
	equipment := "None specified"
	if len(c.Equipment) > 0 {
		equipment = strings.Join(c.Equipment, ", ")
	}
	fmt.Printf("  Equipment: %s\n", equipment)

	open, closing := timeutil.BusinessHours()
	if c.StartTime < open || c.EndTime > closing {
		fmt.Printf("  Note: rooms are usually bookable between %s and %s\n",
			timeutil.To12Hour(open), timeutil.To12Hour(closing))
	}
}

func printResult(result *run.Result) {
	fmt.Println()
	fmt.Println(run.Summary(result))
	if len(result.Unmapped) > 0 {
		fmt.Printf("Could not find form controls for: %s\n", strings.Join(result.Unmapped, ", "))
	}
	if result.Room != nil {
		fmt.Printf("Booked room: %s\n", result.Room.Name)
	}
	if c := result.Outcome.Confirmation; c != nil {
		for _, d := range c.Details {
			fmt.Printf("  %s\n", d)
		}
	}
	if result.Outcome.Kind == booking.OutcomeSearchResults {
		for _, room := range result.Outcome.Rooms {
			line := fmt.Sprintf("  %s. %s", room.ID, room.Name)
			if room.Capacity > 0 {
				line += fmt.Sprintf(" (capacity %d)", room.Capacity)
			}
			fmt.Println(line)
		}
	}
	if result.Outcome.Ambiguous {
		fmt.Println("The result page was ambiguous; check the portal to be sure.")
	}
}

func fatal(err error) {
	log.Error().Err(err).Msg("booking failed")
	os.Exit(1)
}
