package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/campusmenu/internal/config"
	"github.com/jmylchreest/campusmenu/pkg/calendar"
	"github.com/jmylchreest/campusmenu/pkg/fetcher"
	"github.com/jmylchreest/campusmenu/pkg/grid"
	"github.com/jmylchreest/campusmenu/pkg/menu"
	"github.com/jmylchreest/campusmenu/pkg/scraper"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the raw slots extracted from a menu page (no LLM)",
	Long: `Run only the extraction stage: fetch a menu page (or read a saved one) and
print the slot labels and text that would be sent to the LLM.

Examples:
  # A saved portal page
  campusmenu inspect -f dodam.html -r dodam -d 20240325

  # The live dormitory table, flattened
  campusmenu inspect -r dormitory -d 20240325 --grid`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	flags := inspectCmd.Flags()
	flags.StringP("file", "f", "", "saved HTML page (default: fetch the live page)")
	flags.StringP("restaurant", "r", "", "restaurant: haksik, dodam, faculty, dormitory (required)")
	flags.StringP("date", "d", "", "date as YYYYMMDD (default: today in Seoul)")
	flags.Bool("grid", false, "print the flattened menu table instead of slots")
	flags.String("format", "json", "output format: json, yaml")
	_ = inspectCmd.MarkFlagRequired("restaurant")
}

// inspection is the printed form of one extracted day.
type inspection struct {
	Date       string            `json:"date" yaml:"date"`
	Restaurant string            `json:"restaurant" yaml:"restaurant"`
	Holiday    bool              `json:"holiday,omitempty" yaml:"holiday,omitempty"`
	Slots      []menu.RawSlot    `json:"slots,omitempty" yaml:"slots,omitempty"`
	Resolved   map[string]string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

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

	page, err := readPage(cmd, cfg, r, date)
	if err != nil {
		return err
	}
	doc, err := scraper.Parse(page)
	if err != nil {
		return err
	}
	ext, err := buildExtractor(cfg)
	if err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	if showGrid, _ := cmd.Flags().GetBool("grid"); showGrid {
		table := doc.Find(ext.Options().TableSelector).First()
		if table.Length() == 0 {
			return errors.New("no menu table in page")
		}
		return encode(os.Stdout, formatStr, grid.FlattenTable(table))
	}

	var days []*menu.RawMenuData
	if r == menu.Dormitory {
		days, err = ext.ExtractDormitoryWeek(doc, date)
		if err == nil {
			days = ext.ApplyBreakfastPolicy(days)
		}
	} else {
		var raw *menu.RawMenuData
		raw, err = ext.ExtractRawMenu(doc, r, date)
		days = []*menu.RawMenuData{raw}
	}

	if err != nil {
		out := inspection{Date: date, Restaurant: string(r), Holiday: menu.IsHoliday(err)}
		if !out.Holiday {
			out.Error = err.Error()
		}
		return encode(os.Stdout, formatStr, out)
	}

	out := make([]inspection, 0, len(days))
	for _, d := range days {
		in := inspection{Date: d.Date, Restaurant: string(d.Restaurant), Slots: d.Slots, Resolved: map[string]string{}}
		for _, s := range d.Slots {
			slot, err := menu.ResolveTimeSlot(d.Restaurant, s.Label)
			if err != nil {
				in.Resolved[s.Label] = "unresolved"
				continue
			}
			price, _ := menu.ResolvePrice(d.Restaurant, slot)
			in.Resolved[s.Label] = fmt.Sprintf("%s %d", slot.WireName(), price)
		}
		out = append(out, in)
	}
	return encode(os.Stdout, formatStr, out)
}

func readPage(cmd *cobra.Command, cfg *config.Config, r menu.Restaurant, date string) (string, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read page: %w", err)
		}
		return string(data), nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	f := fetcher.NewStatic(fetcher.StaticConfig{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
		Sources:   cfg.Sources(),
	})
	page, err := f.Fetch(ctx, r, date)
	if err != nil {
		return "", err
	}
	return page.HTML, nil
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q (json, yaml)", format)
	}
}
