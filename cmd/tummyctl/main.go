package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"tummy-tracker/internal/client"
	"tummy-tracker/internal/common"
	"tummy-tracker/internal/events"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `Usage: tummyctl [flags] <command> [command flags]

Commands:
  log-meal     record a meal
  log-symptom  record a symptom for a logged meal
  meals        list logged meals (newest first)
  recent       list meals inside the symptom window
  analytics    summarise meals and symptoms by category and type
  train        train the user's models
  predict      estimate symptom risk for a meal
  status       show model status
  importance   show feature importance ranking

Flags:
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to read .env: %v\n", err)
	}

	defaultServer := os.Getenv(common.EnvServerURL)
	if defaultServer == "" {
		defaultServer = common.DefaultServerURL
	}

	var (
		server   = flag.String("server", defaultServer, "Tracker API base URL")
		user     = flag.String("user", os.Getenv("USER"), "User id")
		timeout  = flag.Duration("timeout", 30*time.Second, "Request timeout")
		logLevel = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *user == "" {
		log.Fatal().Msg("user id required: pass -user")
	}

	c := client.NewREST(*server, *timeout)
	out, err := run(c, *user, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("command failed")
	}
	if err := printJSON(out); err != nil {
		log.Fatal().Err(err).Msg("failed to print result")
	}
}

func run(c *client.Client, user, cmd string, args []string) (any, error) {
	switch cmd {
	case "log-meal":
		meal, err := parseMeal(cmd, args)
		if err != nil {
			return nil, err
		}
		return c.LogMeal(user, meal)
	case "log-symptom":
		symptom, err := parseSymptom(args)
		if err != nil {
			return nil, err
		}
		return c.LogSymptom(user, symptom)
	case "meals":
		return c.Meals(user)
	case "recent":
		set := flag.NewFlagSet(cmd, flag.ExitOnError)
		window := set.Duration("window", 0, "Window to look back (default: server setting)")
		_ = set.Parse(args)
		return c.RecentMeals(user, *window)
	case "analytics":
		return c.Analytics(user)
	case "train":
		return c.Train(user)
	case "predict":
		meal, err := parseMeal(cmd, args)
		if err != nil {
			return nil, err
		}
		return c.Predict(user, meal)
	case "status":
		return c.Status(user)
	case "importance":
		return c.Importance(user)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func parseMeal(cmd string, args []string) (events.MealEvent, error) {
	set := flag.NewFlagSet(cmd, flag.ExitOnError)
	var (
		name        = set.String("name", "", "Food name")
		category    = set.String("category", "", "Food category (required)")
		ingredients = set.String("ingredients", "", "Comma-separated ingredients")
		allergens   = set.String("allergens", "", "Comma-separated allergens")
		quantity    = set.Float64("quantity", -1, "Portion size; omit when unknown")
		notes       = set.String("notes", "", "Free text notes")
		at          = set.String("at", "", "Meal time, RFC3339 (default: now)")
	)
	_ = set.Parse(args)

	meal := events.MealEvent{
		FoodName:     *name,
		FoodCategory: strings.TrimSpace(*category),
		Ingredients:  *ingredients,
		Allergens:    *allergens,
		Notes:        *notes,
	}
	if meal.FoodCategory == "" {
		return meal, events.ErrMissingCategory
	}
	if *quantity >= 0 {
		meal.Quantity = events.Qty(*quantity)
	}
	ts, err := parseTime(*at)
	if err != nil {
		return meal, err
	}
	meal.Timestamp = ts
	return meal, nil
}

func parseSymptom(args []string) (events.SymptomEvent, error) {
	set := flag.NewFlagSet("log-symptom", flag.ExitOnError)
	var (
		mealID   = set.String("meal", "", "Id of the meal the symptom followed (required)")
		kind     = set.String("type", "", "Symptom type, e.g. bloating")
		severity = set.Int("severity", 0, "Severity 1-5 (required)")
		duration = set.Int("duration", -1, "Duration in minutes; omit when unknown")
		notes    = set.String("notes", "", "Free text notes")
		at       = set.String("at", "", "Onset time, RFC3339 (default: now)")
	)
	_ = set.Parse(args)

	s := events.SymptomEvent{
		MealID:      *mealID,
		SymptomType: *kind,
		Severity:    *severity,
		Notes:       *notes,
	}
	if *duration >= 0 {
		s.DurationMinutes = events.Minutes(*duration)
	}
	ts, err := parseTime(*at)
	if err != nil {
		return s, err
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	s.Onset = ts
	return s, s.Validate()
}

// parseTime returns the zero time for an empty value so the server
// fills in its own clock.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", v, err)
	}
	return ts, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
