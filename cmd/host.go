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

var hostName string

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "创建房间并作为房主控制播放",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := room.Create(ctx, hostName, s.options(cfg))
		if err != nil {
			return fmt.Errorf("创建房间失败: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "房间已创建，房间码: %s\n", r.Code())
		return runConsole(ctx, r, s.player, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	hostCmd.Flags().StringVarP(&hostName, "name", "n", "host", "显示名称")
	rootCmd.AddCommand(hostCmd)
}
