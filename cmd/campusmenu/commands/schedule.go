package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/internal/pipeline"
	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the weekly job on a cron schedule",
	Long: `Stay in the foreground and process a week of menus for each restaurant
whenever the cron expression fires (Asia/Seoul). Each run posts the results
and sends one Slack summary per restaurant.

Examples:
  # Every Sunday at 09:00, next week's menus for all restaurants
  campusmenu schedule --cron "0 9 * * SUN" --post --prod --notify

  # Run once immediately, then on schedule
  campusmenu schedule -r haksik,dodam --now`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	flags := scheduleCmd.Flags()
	flags.String("cron", "0 9 * * SUN", "5-field cron expression, evaluated in Asia/Seoul")
	flags.StringSliceP("restaurant", "r", nil, "restaurants to process (default: all)")
	flags.String("week", "next", "week to process on each run: current, next")
	flags.Bool("now", false, "run once immediately before waiting for the schedule")

	addLLMFlags(scheduleCmd)
	addRunFlags(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	names, _ := cmd.Flags().GetStringSlice("restaurant")
	restaurants, err := parseRestaurants(names)
	if err != nil {
		return err
	}
	weekStr, _ := cmd.Flags().GetString("week")
	week, err := calendar.ParseWeek(weekStr)
	if err != nil {
		return err
	}
	expr, _ := cmd.Flags().GetString("cron")

	p, err := buildPipeline(cfg, readRunFlags(cmd))
	if err != nil {
		return err
	}

	job := &weeklyJob{pipeline: p, restaurants: restaurants, week: week}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(calendar.Seoul),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	id, err := c.AddFunc(expr, func() { job.run(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	if now, _ := cmd.Flags().GetBool("now"); now {
		job.run(ctx)
	}

	c.Start()
	logger.Info("scheduler started", "cron", expr, "next", c.Entry(id).Next.Format(time.RFC3339), "restaurants", restaurants)

	<-ctx.Done()
	logger.Info("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// weeklyJob processes one week for several restaurants. Restaurants run
// one after another so the LLM provider sees a single week at a time.
type weeklyJob struct {
	pipeline    *pipeline.Pipeline
	restaurants []menu.Restaurant
	week        calendar.Week

	mu sync.Mutex
}

func (j *weeklyJob) run(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	dates := calendar.WeeklyDates(time.Now(), j.week)
	logger.Info("weekly run starting", "dates", dates)

	for _, r := range j.restaurants {
		if ctx.Err() != nil {
			return
		}
		outcomes := j.pipeline.RunWeek(ctx, r, dates)
		counts := map[string]int{}
		for _, o := range outcomes {
			counts[o.Status()]++
		}
		logger.Info("weekly run finished",
			"restaurant", r,
			pipeline.StatusOK, counts[pipeline.StatusOK],
			pipeline.StatusPartial, counts[pipeline.StatusPartial],
			pipeline.StatusHoliday, counts[pipeline.StatusHoliday],
			pipeline.StatusFailed, counts[pipeline.StatusFailed])
	}
}
