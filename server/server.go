package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SyncBeat/core/relay"
	"SyncBeat/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// RelayHandler 中继的 HTTP 处理器
type RelayHandler struct {
	hub      *relay.RoomHub
	upgrader websocket.Upgrader
}

// NewRelayHandler 创建中继处理器
func NewRelayHandler(hub *relay.RoomHub) *RelayHandler {
	return &RelayHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket GET /ws/{room}?member=<id>
func (h *RelayHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	memberID := r.URL.Query().Get("member")
	if memberID == "" {
		http.Error(w, "缺少 member 参数", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	client := relay.NewClient(h.hub, conn, roomID, memberID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(context.Background())

	logger.Info("WebSocket 连接建立",
		logger.String("roomId", roomID),
		logger.String("memberId", memberID))
}

// HandleRooms GET /api/rooms
func (h *RelayHandler) HandleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.hub.Rooms())
}

// HandleHealth GET /healthz
func (h *RelayHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// NewRouter 注册中继路由
func NewRouter(hub *relay.RoomHub) *mux.Router {
	handler := NewRelayHandler(hub)
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/ws/{room}", handler.HandleWebSocket).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms", handler.HandleRooms).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handler.HandleHealth).Methods(http.MethodGet)
	return router
}

// Start 启动中继并阻塞到收到中断信号
func Start(addr string) error {
	hub := relay.NewRoomHub()
	go hub.Run()
	defer hub.Stop()

	server := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(hub),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay starting", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	logger.Info("Shutting down relay...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("relay stopped")
	return nil
}
