package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/campusmenu/internal/logger"
	"github.com/jmylchreest/campusmenu/internal/output"
	"github.com/jmylchreest/campusmenu/internal/pipeline"
	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Process one restaurant's menu for one date",
	Long: `Fetch a restaurant's menu page for a date, extract each serving slot,
normalize the items with an LLM and optionally post them.

Examples:
  # Today's 도담식당 menu
  campusmenu scrape -r dodam

  # A given date, posted to dev and announced on Slack
  campusmenu scrape -r haksik -d 20240325 --post --notify

  # The dormitory's whole week, as a spreadsheet
  campusmenu scrape -r dormitory -d 20240325 --week-table -o week.xlsx --format xlsx`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringP("restaurant", "r", "", "restaurant: haksik, dodam, faculty, dormitory (required)")
	flags.StringP("date", "d", "", "date as YYYYMMDD (default: today in Seoul)")
	flags.Bool("week-table", false, "dormitory only: process every day of the weekly table")
	_ = scrapeCmd.MarkFlagRequired("restaurant")

	addLLMFlags(scrapeCmd)
	addRunFlags(scrapeCmd)
	addOutputFlags(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
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
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		date = calendar.Today()
	}
	if _, err := calendar.ParseDate(date); err != nil {
		return err
	}
	weekTable, _ := cmd.Flags().GetBool("week-table")
	if weekTable && r != menu.Dormitory {
		return fmt.Errorf("--week-table only applies to the dormitory")
	}

	rf := readRunFlags(cmd)
	p, err := buildPipeline(cfg, rf)
	if err != nil {
		return err
	}

	var outcomes []*pipeline.Outcome
	if weekTable {
		outcomes = p.ProcessDormitoryWeek(ctx, date)
	} else {
		outcomes = []*pipeline.Outcome{p.ProcessDate(ctx, r, date)}
	}

	for _, o := range outcomes {
		logInfo("%s %s: %s", o.Restaurant.KoreanName(), o.Date, o.Status())
		if rf.notify {
			if err := p.NotifyOutcome(ctx, o); err != nil {
				logger.Warn("notification failed", "date", o.Date, "error", err)
			}
		}
	}

	if err := writeRecords(cmd, output.FromOutcomes(outcomes)); err != nil {
		return err
	}
	return failure(outcomes)
}

// failure returns an error when every outcome failed. Holidays and partial
// results are not failures.
func failure(outcomes []*pipeline.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	for _, o := range outcomes {
		if o.Status() != pipeline.StatusFailed {
			return nil
		}
	}
	cause := outcomes[0].Err
	if cause == nil {
		cause = errors.New("no menu items parsed")
	}
	return fmt.Errorf("all %d date(s) failed: %w", len(outcomes), cause)
}
