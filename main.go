package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"groupchat-service/internal/ai"
	"groupchat-service/internal/auth"
	"groupchat-service/internal/config"
	"groupchat-service/internal/db"
	"groupchat-service/internal/handlers"
	"groupchat-service/internal/middleware"
	"groupchat-service/internal/observability"
	"groupchat-service/internal/rabbitmq"
	"groupchat-service/internal/repositories"
	"groupchat-service/internal/telemetry"
	"groupchat-service/internal/ws"
)

const serviceName = "groupchat-service"

func main() {
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to init tracing: %v", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)

	audit := telemetry.NewAuditEmitter(publisher, "audit_log.groupchat", serviceName, cfg.Environment)

	authenticator := auth.NewTokenAuthenticator(cfg.JWTSecret)

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub(messageRepo, cfg.HistoryLimit)
	defer hub.Close()

	if cfg.GeminiAPIKey != "" {
		completer, err := ai.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("failed to create completer: %v", err)
		}
		orchestrator := ai.NewOrchestrator(completer, cfg.CompletionTimeout, func(roomID, text string) {
			hub.Post(ws.PostRequest{
				RoomID:     roomID,
				SenderID:   ai.SenderID,
				SenderName: ai.SenderName,
				Text:       text,
			})
		})
		hub.SetTrigger(orchestrator.HandleMessage)
	} else {
		log.Println("GEMINI_API_KEY not set, AI replies disabled")
	}

	roomHandler := handlers.NewRoomHandler(roomRepo, messageRepo, cfg.HistoryLimit, audit)
	wsHandler := ws.NewHandler(hub, authenticator)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(authenticator)

	router.GET("/api/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/api/rooms", authMiddleware, roomHandler.ListRooms)
	router.POST("/api/rooms", authMiddleware, roomHandler.CreateRoom)
	router.GET("/api/rooms/join/:slug", authMiddleware, roomHandler.JoinRoom)
	router.GET("/api/messages/:room_id", authMiddleware, roomHandler.GetRoomMessages)

	router.GET("/ws", wsHandler.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
