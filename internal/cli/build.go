package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/service"
)

func newBuildCommand(a *app) *cobra.Command {
	var (
		ratingsPath string
		ranker      string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "清空数据库并从 ratings.csv 重建电影库",
		Long: `build 删除全部表后重建，逐行在 TMDB 搜索电影并写入导演、年份、片长与前 10 位演员。
整个过程在一个事务中：任何存储错误都会回滚本次全部写入。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ratingsPath == "" {
				ratingsPath = a.cfg.RatingsPath
			}
			if ranker != "" {
				a.cfg.TMDBRanker = ranker
			}
			if !a.cfg.HasTMDBCredentials() {
				return errors.New("缺少 TMDB 凭据：请设置 TMDB_ACCESS_TOKEN 或 TMDB_API_KEY")
			}

			tmdb, err := service.NewTMDBServiceFromConfig(a.cfg)
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			engine := service.NewMergeEngine(db, tmdb, service.WithObserver(progressLogger()))
			stats, err := engine.BuildFile(cmd.Context(), ratingsPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed %d rows: %d imported, %d skipped (%d malformed, %d not found)\n",
				stats.Total, stats.Imported, stats.Skipped(), stats.SkippedMalformed, stats.SkippedLookup)
			return nil
		},
	}

	cmd.Flags().StringVar(&ratingsPath, "ratings", "", "path to ratings.csv (default $RATINGS_CSV)")
	cmd.Flags().StringVar(&ranker, "ranker", "", "search result ranking (first, year)")
	return cmd
}

// progressLogger 逐行进度写到 debug 日志
func progressLogger() service.ProgressObserver {
	return service.ObserverFunc(func(p service.Progress) {
		logging.Debug().
			Str("run_id", p.RunID).
			Int("row", p.Index).
			Int("total", p.Total).
			Str("title", p.Title).
			Str("outcome", string(p.Outcome)).
			Msg("[Progress]")
	})
}
