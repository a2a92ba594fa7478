package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/moovie-wrapped/internal/service"
)

func newDiaryCommand(a *app) *cobra.Command {
	var (
		diaryPath   string
		showMissing bool
	)

	cmd := &cobra.Command{
		Use:   "diary-merge",
		Short: "把 diary.csv 的观看记录追加到已构建的电影库",
		Long: `diary-merge 按标题精确匹配（区分大小写）已有电影，每条日记追加一条观看记录。
需要先执行 build；库中找不到的标题会被跳过并汇总。重复执行会重复追加。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if diaryPath == "" {
				diaryPath = a.cfg.DiaryPath
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			merger := service.NewDiaryMerger(db, service.WithObserver(progressLogger()))
			stats, err := merger.MergeFile(cmd.Context(), diaryPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed %d rows: %d inserted, %d skipped (%d malformed, %d unmatched)\n",
				stats.Total, stats.Inserted, stats.SkippedMalformed+len(stats.Unmatched),
				stats.SkippedMalformed, len(stats.Unmatched))
			if showMissing {
				for _, title := range stats.Unmatched {
					fmt.Fprintf(out, "  unmatched: %s\n", title)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&diaryPath, "diary", "", "path to diary.csv (default $DIARY_CSV)")
	cmd.Flags().BoolVar(&showMissing, "show-unmatched", false, "list diary titles that did not match a movie")
	return cmd
}
