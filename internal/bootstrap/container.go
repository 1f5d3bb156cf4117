package bootstrap

import (
	"context"
	"time"

	"canvasthink-be/internal/config"
	"canvasthink-be/internal/handler"
	"canvasthink-be/internal/metrics"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/repository/implementation"
	"canvasthink-be/internal/service"
	"canvasthink-be/internal/websocket"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/emotion"
	pktNats "canvasthink-be/pkg/nats"
	"canvasthink-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const moduleName = "Container"

type Container struct {
	Logger  *logger.ZapLogger
	Metrics *metrics.Metrics

	SessionService  *service.SessionService
	ConsumerService service.IConsumerService

	// WebSockets & HTTP
	TrackingHandler *handler.TrackingHandler
	WebSocketHub    *websocket.Hub

	pubSub  *gochannel.GoChannel
	queues  []*analytics.Queue
	natsPub *pktNats.Publisher
	rdb     *redis.Client
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewContainer wires the tracking server. db may be nil, in which case the
// archive read API is disabled. NATS and Redis are optional: without them
// events stay in process and contexts live in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	m := metrics.New()
	if cfg.Auth.JWTSecret == "" {
		sysLogger.Warn(moduleName, "JWT_SECRET is empty, session tokens are forgeable", nil)
	}

	// 2. Event Bus
	// Blocking until ack keeps each topic in publish order.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)
	interactionSink := analytics.NewQueueSink(pubSub, cfg.Queue.InteractionTopic, cfg.Queue.SinkBuffer, sysLogger)
	emotionQueue := analytics.NewQueue(pubSub, cfg.Queue.EmotionTopic, cfg.Queue.SinkBuffer, sysLogger)
	interactionSink.OnDrop = m.QueueDropped.WithLabelValues(interactionSink.Topic()).Inc
	emotionQueue.OnDrop = m.QueueDropped.WithLabelValues(emotionQueue.Topic()).Inc

	// 3. Infrastructure
	// NATS
	var broker service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn(moduleName, "Failed to connect to NATS Publisher, events stay in process", map[string]interface{}{"error": err.Error()})
		natsPub = nil
	} else {
		broker = natsPub
	}

	// Redis
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)

	var contextStore emotion.ContextStore
	if cfg.Tracking.ContextStore == "redis" && rdb != nil {
		contextStore = store.NewRedisStore(rdb, cfg.Tracking.ContextTTL)
	} else {
		contextStore = store.NewMemoryStore(cfg.Tracking.ContextTTL)
		sysLogger.Info(moduleName, "Emotional contexts kept in memory", nil)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	wsHub.OnDrop = m.DroppedFrames.Inc
	wsHub.OnRelayDrop = m.RelayDropped.Inc
	go wsHub.Run(ctx)

	// 4. Services
	publisherService := service.NewPublisherService(emotionQueue, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Queue.InteractionTopic,
		cfg.Queue.EmotionTopic,
		broker,
		sysLogger,
	)

	sink := analytics.FanOut{interactionSink}
	if !cfg.IsProduction() {
		sink = append(sink, analytics.NewLogSink(sysLogger))
	}

	sessionService := service.NewSessionService(
		clock.System{},
		sink,
		contextStore,
		wsHub, // Hub implements Delivery
		publisherService,
		m,
		cfg,
		sysLogger,
	)

	var archive service.IArchiveReader
	if db != nil {
		archive = service.NewArchiveService(implementation.NewArchiveRepository(db), nil, cfg.Queue.ArchiveDurable, sysLogger)
	}

	// 5. Handlers
	trackingHandler := handler.NewTrackingHandler(sessionService, archive, wsHub, cfg.Auth.JWTSecret, sysLogger)

	return &Container{
		Logger:          sysLogger,
		Metrics:         m,
		SessionService:  sessionService,
		ConsumerService: consumerService,
		TrackingHandler: trackingHandler,
		WebSocketHub:    wsHub,

		pubSub:  pubSub,
		queues:  []*analytics.Queue{interactionSink.Queue, emotionQueue},
		natsPub: natsPub,
		rdb:     rdb,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context returns the container lifetime context. It is cancelled by Shutdown.
func (c *Container) Context() context.Context {
	return c.ctx
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(moduleName, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn(moduleName, "Failed to connect to Redis, running single instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Shutdown ends every session, then drains the queues before closing the
// transports they feed.
func (c *Container) Shutdown(ctx context.Context) {
	c.SessionService.Shutdown(ctx)
	for _, q := range c.queues {
		if err := q.Close(ctx); err != nil {
			c.Logger.Warn(moduleName, "Outbound queue not drained before shutdown", map[string]interface{}{"error": err.Error()})
		}
	}
	c.cancel()
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn(moduleName, "Failed to close event bus", map[string]interface{}{"error": err.Error()})
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
