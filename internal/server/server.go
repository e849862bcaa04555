package server

import (
	"time"

	"backend-tourguide/internal/auth"
	"backend-tourguide/internal/catalog"
	"backend-tourguide/internal/channel"
	"backend-tourguide/internal/config"
	"backend-tourguide/internal/content"
	"backend-tourguide/internal/session"
	"backend-tourguide/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Catalog  *catalog.Service
	Sessions *session.Manager
	Channels *channel.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	dispatcher := content.NewDispatcher(content.LogNotifier{})
	routes := catalog.NewService(db)

	sessions := session.NewManager(
		session.NewMemoryStore(),
		routes,
		content.NewStaticProvider(),
		content.NoopNarrator{},
		dispatcher,
		hub,
		cfg.ArrivalRadiusFactor,
		time.Duration(cfg.SessionIdleTTLMin)*time.Minute,
	)
	channels := channel.NewService(hub, dispatcher, cfg.ChannelDefaultTTLHours)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   hub,
		Catalog:  routes,
		Sessions: sessions,
		Channels: channels,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	catalog.RegisterRoutes(s.App.Group("/catalog"), s.Catalog, jwtMiddleware)
	session.RegisterRoutes(s.App.Group("/tours"), s.Sessions, jwtMiddleware)
	channel.RegisterRoutes(s.App.Group("/channels"), s.Channels, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
