package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/user/moovie-wrapped/internal/analytics"
	"github.com/user/moovie-wrapped/internal/model"
)

func newStatsCommand(a *app) *cobra.Command {
	var (
		asJSON bool
		topK   int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "输出年度总结：总量、时长、评分分布、月度统计与排行榜",
		RunE: func(cmd *cobra.Command, args []string) error {
			if topK <= 0 {
				topK = a.cfg.TopK
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			report, err := analytics.NewAggregator(db).Report(cmd.Context(), topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return renderReport(out, report)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().IntVar(&topK, "top", 0, "number of entries per ranking (default $TOP_K)")
	return cmd
}

func renderReport(w io.Writer, r *model.Report) error {
	g := r.General

	fmt.Fprintln(w, "== General ==")
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	table.Append("Movies", strconv.FormatInt(g.MovieCount, 10))
	table.Append("Directors", strconv.FormatInt(g.DirectorCount, 10))
	table.Append("Watched hours", fmt.Sprintf("%.1f", g.Durations.Watched.Hours))
	table.Append("Library hours", fmt.Sprintf("%.1f", g.Durations.Library.Hours))
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Ratings ==")
	table = tablewriter.NewWriter(w)
	table.Header("Rating", "Entries")
	for _, b := range g.Ratings {
		table.Append(fmt.Sprintf("%.1f", b.Rating), strconv.FormatInt(b.Count, 10))
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Monthly ==")
	table = tablewriter.NewWriter(w)
	table.Header("Month", "Watches", "Rewatches", "Hours", "Avg rating")
	for _, m := range g.Monthly {
		month := m.Month
		if m.Label != "" {
			month = m.Label + " " + m.Month[:4]
		}
		table.Append(month, strconv.FormatInt(m.Watches, 10), strconv.FormatInt(m.Rewatches, 10),
			fmt.Sprintf("%.1f", m.Hours), formatRating(m.AvgRating))
	}
	if err := table.Render(); err != nil {
		return err
	}

	rk := r.Rankings
	sections := []struct {
		title string
		rows  []model.RankedName
	}{
		{"Directors: most watched", rk.Directors.MostWatched},
		{"Directors: highest rated (min 2 movies)", rk.Directors.HighestRated},
		{"Actors: most watched", rk.Actors.MostWatched},
		{"Actors: highest rated (min 2 movies)", rk.Actors.HighestRated},
	}
	for _, s := range sections {
		fmt.Fprintf(w, "\n== %s ==\n", s.title)
		table = tablewriter.NewWriter(w)
		table.Header("#", "Name", "Watches", "Movies", "Avg rating")
		for i, row := range s.rows {
			table.Append(strconv.Itoa(i+1), row.Name, strconv.FormatInt(row.WatchCount, 10),
				strconv.FormatInt(row.MovieCount, 10), formatRating(row.AvgRating))
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\n== Top movies ==")
	table = tablewriter.NewWriter(w)
	table.Header("#", "Title", "Watches", "Rating")
	for i, m := range rk.Movies.TopWatched {
		table.Append(strconv.Itoa(i+1), m.Title, strconv.FormatInt(m.WatchCount, 10), formatRating(m.AvgRating))
	}
	return table.Render()
}

func formatRating(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
