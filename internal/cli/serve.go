package cli

import (
	"github.com/spf13/cobra"
	"github.com/user/moovie-wrapped/internal/handler"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/server"
	"github.com/user/moovie-wrapped/internal/service"
)

func newServeCommand(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动只读统计 API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			images, err := imageSource(a)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), a.cfg, db, images)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT)")
	return cmd
}

// imageSource 没有 TMDB 凭据时图片接口返回 503
func imageSource(a *app) (handler.ImageSource, error) {
	if !a.cfg.HasTMDBCredentials() {
		logging.Warn().Msg("[Server] 未配置 TMDB 凭据，图片接口不可用")
		return nil, nil
	}
	tmdb, err := service.NewTMDBServiceFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return tmdb, nil
}
