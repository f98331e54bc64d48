package commands

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/campusmenu/internal/output"
	"github.com/jmylchreest/campusmenu/internal/pipeline"
	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Process a restaurant's menus for a whole week",
	Long: `Process Monday to Friday of the current or next week (Asia/Seoul) for a
restaurant. Dates run concurrently; a Slack summary is sent once every
date has finished.

Examples:
  campusmenu week -r haksik --week next --post --prod --notify
  campusmenu week -r dodam --dates 20240325,20240326 --format yaml`,
	RunE: runWeek,
}

func init() {
	rootCmd.AddCommand(weekCmd)

	flags := weekCmd.Flags()
	flags.StringP("restaurant", "r", "", "restaurant: haksik, dodam, faculty, dormitory (required)")
	flags.String("week", "current", "week to process: current, next")
	flags.StringSlice("dates", nil, "explicit dates (YYYYMMDD) instead of --week")
	_ = weekCmd.MarkFlagRequired("restaurant")

	addLLMFlags(weekCmd)
	addRunFlags(weekCmd)
	addOutputFlags(weekCmd)
}

func runWeek(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	name, _ := cmd.Flags().GetString("restaurant")
	r, err := menu.ParseRestaurant(name)
	if err != nil {
		return err
	}
	dates, err := resolveDates(cmd)
	if err != nil {
		return err
	}

	rf := readRunFlags(cmd)
	p, err := buildPipeline(cfg, rf)
	if err != nil {
		return err
	}

	logInfo("%s: processing %s", r.KoreanName(), strings.Join(dates, ", "))

	var outcomes []*pipeline.Outcome
	if rf.notify {
		outcomes = p.RunWeek(ctx, r, dates)
	} else {
		outcomes = p.ProcessWeek(ctx, r, dates)
	}

	for _, o := range outcomes {
		logInfo("  %s: %s", o.Date, o.Status())
	}

	if err := writeRecords(cmd, output.FromOutcomes(outcomes)); err != nil {
		return err
	}
	return failure(outcomes)
}

func resolveDates(cmd *cobra.Command) ([]string, error) {
	explicit, _ := cmd.Flags().GetStringSlice("dates")
	if len(explicit) > 0 {
		dates, weekend, err := weekdays(explicit)
		if err != nil {
			return nil, err
		}
		if len(weekend) > 0 {
			logInfo("skipping weekend dates: %s", strings.Join(weekend, ", "))
		}
		if len(dates) == 0 {
			return nil, errors.New("no weekday among --dates")
		}
		return dates, nil
	}

	weekStr, _ := cmd.Flags().GetString("week")
	week, err := calendar.ParseWeek(weekStr)
	if err != nil {
		return nil, err
	}
	return calendar.WeeklyDates(time.Now(), week), nil
}

// weekdays splits dates into weekdays and weekend days, keeping order.
func weekdays(dates []string) (kept, weekend []string, err error) {
	for _, d := range dates {
		off, err := calendar.IsWeekend(d)
		if err != nil {
			return nil, nil, err
		}
		if off {
			weekend = append(weekend, d)
			continue
		}
		kept = append(kept, d)
	}
	return kept, weekend, nil
}
