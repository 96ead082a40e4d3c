package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"SyncBeat/cache"

	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "列出 Redis 目录中的活动房间",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer cache.CloseRedis()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return listRooms(ctx, cache.NewRoomDirectory(nil), cmd.OutOrStdout())
	},
}

func listRooms(ctx context.Context, dir *cache.RoomDirectory, out io.Writer) error {
	entries, err := dir.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "没有活动房间")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  房主 %s  创建于 %s  剩余 %s\n",
			e.Code, e.Host.DisplayName, e.CreatedAt.Format(time.RFC3339), e.TTL.Round(time.Second))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}
