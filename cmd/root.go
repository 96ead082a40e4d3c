package cmd

import (
	"fmt"
	"os"

	"SyncBeat/config"
	"SyncBeat/logger"

	"github.com/spf13/cobra"
)

var (
	cfg           *config.Config
	transportFlag string
)

var rootCmd = &cobra.Command{
	Use:   "syncbeat",
	Short: "SyncBeat 一起听：房主控制播放，听众自动对齐",
	Long: `SyncBeat 在多个客户端之间同步一个共享的播放队列和播放进度。
房主是播放状态的唯一来源，听众按房主的游标纠偏。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if transportFlag != "" {
			cfg.Transport = transportFlag
		}
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&transportFlag, "transport", "t", "",
		"覆盖 SYNCBEAT_TRANSPORT (memory|redis|relay|p2p)")
}
