package config

import (
	"context"
	"fmt"
	"path/filepath"

	"SyncBeat/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// Watch 监听 .env 文件变化，重新加载后回调 onChange。
// 监听的是所在目录，这样编辑器"写临时文件再改名"的保存方式也能被捕获。
// ctx 取消后停止监听。
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				// Overload 覆盖已有环境变量，否则改动不会生效
				if err := godotenv.Overload(abs); err != nil {
					logger.Warn("reload env file failed", logger.ErrorField(err), logger.String("path", abs))
					continue
				}
				logger.Info("env file reloaded", logger.String("path", abs))
				onChange(fromEnv())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("env watcher error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}
