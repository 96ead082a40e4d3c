package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"SyncBeat/core/room"
	"SyncBeat/model"
)

const consoleHelp = `命令:
  add <url>        添加曲目到队列
  rm <trackId>     移除曲目（房主或添加者）
  play             播放/暂停（仅房主）
  next             下一首（仅房主）
  seek <seconds>   跳转（仅房主）
  sync             向房主请求全量状态
  queue            查看队列
  members          查看成员
  status           当前播放状态
  leave            离开房间`

// linkSource 外链曲目的地址来源
type linkSource interface {
	LinkURL() string
}

// console 房间的交互式命令行
type console struct {
	r     *room.Room
	links linkSource
	out   io.Writer
	now   func() time.Time
}

// runConsole 读取命令直到 leave、输入结束、ctx 取消或房间关闭，返回前离开房间
func runConsole(ctx context.Context, r *room.Room, links linkSource, in io.Reader, out io.Writer) error {
	c := &console{r: r, links: links, out: out, now: time.Now}
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.Leave(leaveCtx); err != nil {
			fmt.Fprintf(out, "离开房间失败: %v\n", err)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-r.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.exec(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "错误: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *console) exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("%s 需要一个参数", fields[0])
		}
		return fields[1], nil
	}

	switch strings.ToLower(fields[0]) {
	case "add":
		url, err := arg()
		if err != nil {
			return false, err
		}
		t, err := c.r.AddTrack(ctx, url)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "已添加 %s [%s]\n", t.Title, t.ID)

	case "rm", "remove":
		id, err := arg()
		if err != nil {
			return false, err
		}
		if err := c.r.RemoveTrack(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, "已移除")

	case "play", "pause":
		return false, c.r.TogglePlay(ctx)

	case "next":
		return false, c.r.NextTrack(ctx)

	case "seek":
		raw, err := arg()
		if err != nil {
			return false, err
		}
		pos, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return false, fmt.Errorf("无效的位置 %q", raw)
		}
		s, err := c.r.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if s.Cursor.CurrentTrackID == nil {
			return false, room.ErrNothingToPlay
		}
		return false, c.r.UpdatePlayback(ctx, s.Cursor.IsPlaying, pos, s.Cursor.TrackID())

	case "sync":
		if err := c.r.RequestSync(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, "已请求同步")

	case "queue", "members", "status":
		s, err := c.r.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(fields[0]) {
		case "queue":
			c.printQueue(s)
		case "members":
			c.printMembers(s)
		default:
			c.printStatus(s)
		}

	case "leave", "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprintln(c.out, consoleHelp)

	default:
		return false, errors.New("未知命令，输入 help 查看帮助")
	}
	return false, nil
}

func (c *console) printQueue(s model.RoomSnapshot) {
	if len(s.Queue) == 0 {
		fmt.Fprintln(c.out, "队列为空")
		return
	}
	current := s.Cursor.TrackID()
	for i, t := range s.Queue {
		mark := " "
		if t.ID == current {
			mark = "▶"
		}
		fmt.Fprintf(c.out, "%s %d. %s (%s) by %s [%s]\n", mark, i+1, t.Title, t.Platform, t.AddedBy, t.ID)
	}
}

func (c *console) printMembers(s model.RoomSnapshot) {
	for _, m := range s.Members {
		role := "听众"
		if m.IsHost {
			role = "房主"
		}
		self := ""
		if m.ID == s.Self.ID {
			self = " (你)"
		}
		fmt.Fprintf(c.out, "- %s [%s]%s\n", m.DisplayName, role, self)
	}
}

func (c *console) printStatus(s model.RoomSnapshot) {
	fmt.Fprintf(c.out, "房间 %s，角色 %s，成员 %d 人\n", s.Code, c.r.Role(), len(s.Members))
	t, ok := s.CurrentTrack()
	if !ok {
		fmt.Fprintln(c.out, "当前没有播放")
		return
	}
	state := "已暂停"
	if s.Cursor.IsPlaying {
		state = "播放中"
	}
	fmt.Fprintf(c.out, "%s %s @ %.1fs\n", state, t.Title, s.Cursor.ExpectedPosition(c.now()))
	if c.links != nil {
		if link := c.links.LinkURL(); link != "" {
			fmt.Fprintf(c.out, "该平台无法内嵌播放，请打开: %s\n", link)
		}
	}
}
