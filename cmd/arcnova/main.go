// arcnova: voice agent backend.
// Serves the REST API and the realtime websocket voice pipeline.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcnova-labs/arcnova/internal/config"
	"github.com/arcnova-labs/arcnova/internal/log"
	"github.com/arcnova-labs/arcnova/pkg/chat"
	"github.com/arcnova-labs/arcnova/pkg/llm"
	"github.com/arcnova-labs/arcnova/pkg/news"
	"github.com/arcnova-labs/arcnova/pkg/persona"
	"github.com/arcnova-labs/arcnova/pkg/skills"
	"github.com/arcnova-labs/arcnova/pkg/stt"
	"github.com/arcnova-labs/arcnova/pkg/tts"
	"github.com/arcnova-labs/arcnova/pkg/weather"
	"github.com/arcnova-labs/arcnova/pkg/web"
)

var version = "1.0.0"

var (
	port       = flag.String("port", "", "HTTP server port (overrides PORT)")
	configFile = flag.String("config", config.DefaultUserConfigFile, "user config file path")
	logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error")
	debug      = flag.Bool("debug", false, "enable per-request logging")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	settings := config.LoadSettings()
	if *port != "" {
		settings.Port = *port
	}

	keys := config.NewStore(*configFile)
	watcher, err := config.Watch(keys)
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Stop()
	}

	active := persona.Active()

	assembly := stt.NewAssemblyAI(func() string { return keys.Key(config.KeyAssemblyAI) })
	gemini := llm.NewGemini(func() string { return keys.Key(config.KeyGemini) })
	murf := tts.NewMurf(
		tts.WithKeyFunc(func() string { return keys.Key(config.KeyMurf) }),
		tts.WithDefaultVoice(active.Voice()),
	)
	newsClient := news.NewClient(func() string { return keys.Key(config.KeyNews) }, settings.NewsCountry, settings.NewsLanguage)
	weatherClient := weather.NewClient(func() string { return keys.Key(config.KeyOpenWeather) })

	server := web.NewServer(web.Options{
		Keys:        keys,
		Transcriber: assembly,
		Streamer:    assembly,
		LLM:         gemini,
		TTS:         murf,
		History:     chat.NewStore(),
		Skills: skills.NewDispatcher(
			skills.NewNewsSkill(newsClient),
			skills.NewWeatherSkill(weatherClient),
		),
		Persona: active,
		Debug:   *debug,
	})

	go func() {
		log.Info("starting arcnova", "version", version, "port", settings.Port, "persona", active.Name)
		if err := server.Listen(":" + settings.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.App().ShutdownWithContext(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
