package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/directory"
	"messaging-service/internal/handlers"
	"messaging-service/internal/messaging"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/realtime"
	"messaging-service/internal/telemetry"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.Service, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "messaging.audit", cfg.Service, cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err == nil {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	} else {
		log.Printf("event publishing disabled: %v", err)
	}

	users := directory.NewClient(cfg.UserService)

	core := messaging.New(messaging.Deps{
		DB:           database,
		Resolver:     users,
		LegacySecret: cfg.LegacySecret,
	})

	messageHandler := handlers.NewMessageHandler(core.Messages, audit)
	conversationHandler := handlers.NewConversationHandler(core.Conversations, audit)
	keyHandler := handlers.NewKeyHandler(core.Keys)
	wsHandler := realtime.NewWebSocketHandler(core.Realtime, core.ConversationStore, users)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Service))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(users)

	router.GET("/conversations", authMiddleware, conversationHandler.List)
	router.POST("/conversations", authMiddleware, conversationHandler.Create)
	router.DELETE("/conversations/:conversation_id", authMiddleware, conversationHandler.Leave)
	router.POST("/conversations/:conversation_id/participants", authMiddleware, conversationHandler.AddParticipants)
	router.PUT("/conversations/:conversation_id/settings", authMiddleware, conversationHandler.UpdateSettings)

	router.GET("/conversations/:conversation_id/messages", authMiddleware, messageHandler.List)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, messageHandler.Post)
	router.PUT("/conversations/:conversation_id/messages/:message_id", authMiddleware, messageHandler.Edit)
	router.DELETE("/conversations/:conversation_id/messages/:message_id", authMiddleware, messageHandler.Delete)
	router.POST("/conversations/:conversation_id/messages/:message_id/read", authMiddleware, messageHandler.MarkRead)

	router.POST("/keys/init", authMiddleware, keyHandler.Initialize)

	router.GET("/ws/conversations/:conversation_id/messages", wsHandler.HandleMessages)
	router.GET("/ws/conversations", wsHandler.HandleConversations)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
