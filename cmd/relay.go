package cmd

import (
	"SyncBeat/server"

	"github.com/spf13/cobra"
)

var relayAddr string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "启动 WebSocket 中继",
	Long:  `启动 relay 传输使用的 WebSocket 中继，按房间码转发帧，不保存任何房间状态。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.RelayAddr
		if relayAddr != "" {
			addr = relayAddr
		}
		return server.Start(addr)
	},
}

func init() {
	relayCmd.Flags().StringVar(&relayAddr, "addr", "", "监听地址，默认读取 RELAY_ADDR")
	rootCmd.AddCommand(relayCmd)
}
