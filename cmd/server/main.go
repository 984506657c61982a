package main

import (
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammedbilalns/LogIt-sub002/internal/auth"
	"github.com/mohammedbilalns/LogIt-sub002/internal/call"
	"github.com/mohammedbilalns/LogIt-sub002/internal/config"
	"github.com/mohammedbilalns/LogIt-sub002/internal/database"
	"github.com/mohammedbilalns/LogIt-sub002/internal/handlers"
	"github.com/mohammedbilalns/LogIt-sub002/internal/presence"
	"github.com/mohammedbilalns/LogIt-sub002/internal/rooms"
	"github.com/mohammedbilalns/LogIt-sub002/internal/router"
	"github.com/mohammedbilalns/LogIt-sub002/internal/services"
	ws "github.com/mohammedbilalns/LogIt-sub002/internal/websocket"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Realtime core: presence and room state, gateway, router, calls
	presenceStore := presence.NewStore()
	roomRegistry := rooms.NewRegistry()

	gateway := ws.NewGateway(presenceStore, roomRegistry, db, cfg.Realtime)
	eventRouter := router.New(roomRegistry, presenceStore, db, gateway)
	gateway.SetRouter(eventRouter)

	coordinator := call.NewCoordinator(eventRouter, db, db, presenceStore, cfg.Realtime.RingTimeout)
	gateway.SetCallCoordinator(coordinator)
	eventRouter.SetCallParties(coordinator)

	// Initialize services
	authService := auth.NewService(db, cfg)
	chatService := services.NewChatService(db, eventRouter, roomRegistry, gateway)

	// Initialize handlers
	chatHandlers := handlers.NewChatHandlers(chatService, authService)
	presenceHandlers := handlers.NewPresenceHandlers(presenceStore, authService)
	wsHandlers := handlers.NewWebSocketHandlers(authService, gateway)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, chatHandlers, presenceHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")
}

func setupRoutes(mux *http.ServeMux, chatHandlers *handlers.ChatHandlers, presenceHandlers *handlers.PresenceHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Chat routes
	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatHandlers.CreateChat(w, r)
	})

	// Chat sub-routes
	mux.HandleFunc("/chats/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		chatID := parts[2]

		// /chats/{id}/messages
		if len(parts) == 4 && parts[3] == "messages" {
			switch r.Method {
			case http.MethodPost:
				chatHandlers.SendMessage(w, r, chatID)
			case http.MethodGet:
				chatHandlers.History(w, r, chatID)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// /chats/{id}/participants
		if len(parts) == 4 && parts[3] == "participants" && r.Method == http.MethodPost {
			chatHandlers.AddParticipant(w, r, chatID)
			return
		}

		// /chats/{id}/participants/{userId}
		if len(parts) == 5 && parts[3] == "participants" && parts[4] != "" && r.Method == http.MethodDelete {
			chatHandlers.RemoveParticipant(w, r, chatID, parts[4])
			return
		}

		// /chats/{id}/leave
		if len(parts) == 4 && parts[3] == "leave" && r.Method == http.MethodDelete {
			chatHandlers.LeaveChat(w, r, chatID)
			return
		}

		// /chats/{id} PATCH (rename)
		if len(parts) == 3 && r.Method == http.MethodPatch {
			chatHandlers.RenameChat(w, r, chatID)
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// Presence snapshot: /users/{id}/presence
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) == 4 && parts[2] != "" && parts[3] == "presence" && r.Method == http.MethodGet {
			presenceHandlers.GetPresence(w, r, parts[2])
			return
		}
		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)

	// Metrics
	mux.Handle("/metrics", promhttp.Handler())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
