package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"SyncBeat/core/room"

	"github.com/spf13/cobra"
)

var listenerName string

var joinCmd = &cobra.Command{
	Use:   "join <room-code>",
	Short: "以听众身份加入房间",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		code := args[0]
		if s.directory != nil {
			if ok, err := s.directory.Exists(ctx, code); err == nil && !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "提示: 目录中没有房间 %s，房主可能尚未创建\n", code)
			}
		}

		r, err := room.Join(ctx, code, listenerName, s.options(cfg))
		if err != nil {
			return fmt.Errorf("加入房间失败: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已加入房间 %s\n", r.Code())
		return runConsole(ctx, r, s.player, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	joinCmd.Flags().StringVarP(&listenerName, "name", "n", "listener", "显示名称")
	rootCmd.AddCommand(joinCmd)
}
