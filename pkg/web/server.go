// Package web exposes arcnova's HTTP surface: REST endpoints for TTS, STT,
// LLM queries and agent chat, credential management, and the websocket audio
// endpoint that feeds the realtime voice pipeline.
package web

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/arcnova-labs/arcnova/internal/config"
	"github.com/arcnova-labs/arcnova/internal/log"
	"github.com/arcnova-labs/arcnova/pkg/chat"
	"github.com/arcnova-labs/arcnova/pkg/llm"
	"github.com/arcnova-labs/arcnova/pkg/persona"
	"github.com/arcnova-labs/arcnova/pkg/skills"
	"github.com/arcnova-labs/arcnova/pkg/stt"
	"github.com/arcnova-labs/arcnova/pkg/tts"
)

// DefaultUploadDir receives files posted to /upload-audio.
const DefaultUploadDir = "uploads"

// Options wires a Server to its collaborators.
type Options struct {
	Keys        *config.Store
	Transcriber stt.Transcriber
	Streamer    stt.Streamer
	LLM         llm.Generator
	TTS         tts.Provider
	History     *chat.Store
	Skills      *skills.Dispatcher
	Persona     persona.Persona

	// UploadDir overrides where /upload-audio stores files.
	UploadDir string

	// Debug enables per-request logging.
	Debug bool
}

// Server is the arcnova HTTP server.
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	keys        *config.Store
	transcriber stt.Transcriber
	streamer    stt.Streamer
	llm         llm.Generator
	tts         tts.Provider
	history     *chat.Store
	skills      *skills.Dispatcher
	persona     persona.Persona
	uploadDir   string

	// Validation endpoints, overridable in tests.
	assemblyaiAccountURL string
	newsProbeURL         string
	weatherProbeURL      string
}

// NewServer builds the app and registers all routes.
func NewServer(opts Options) *Server {
	s := &Server{
		logger:      log.Component("web"),
		keys:        opts.Keys,
		transcriber: opts.Transcriber,
		streamer:    opts.Streamer,
		llm:         opts.LLM,
		tts:         opts.TTS,
		history:     opts.History,
		skills:      opts.Skills,
		persona:     opts.Persona,
		uploadDir:   opts.UploadDir,

		assemblyaiAccountURL: "https://api.assemblyai.com/v2/account",
		newsProbeURL:         "https://newsapi.org/v2/top-headlines",
		weatherProbeURL:      "https://api.openweathermap.org/data/2.5/weather",
	}
	if s.uploadDir == "" {
		s.uploadDir = DefaultUploadDir
	}
	if s.history == nil {
		s.history = chat.NewStore()
	}

	app := fiber.New(fiber.Config{
		AppName:               "arcnova",
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024,
	})

	app.Use(recover.New())
	if opts.Debug {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Post("/generate-tts", s.handleGenerateTTS)
	app.Post("/upload-audio", s.handleUploadAudio)
	app.Post("/transcribe/file", s.handleTranscribeFile)
	app.Get("/voices", s.handleVoices)
	app.Post("/tts/echo", s.handleTTSEcho)
	app.Post("/llm/query", s.handleLLMQuery)

	app.Post("/agent/chat/:session", s.handleAgentChat)
	app.Get("/agent/history/:session", s.handleGetHistory)
	app.Delete("/agent/history/:session", s.handleClearHistory)

	api := app.Group("/api/config")
	api.Get("/status", s.handleConfigStatus)
	api.Post("/keys", s.handleSaveKeys)
	api.Post("/validate", s.handleValidateKey)

	app.Get("/health", s.handleHealth)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/audio", websocket.New(s.handleAudioWS))

	s.app = app
	return s
}

// App returns the underlying fiber app, used by tests and the entrypoint.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
