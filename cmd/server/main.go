package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gookit/color"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard"
	"github.com/oarkflow/streamguard/pkg/config"
	"github.com/oarkflow/streamguard/pkg/libs"
	"github.com/oarkflow/streamguard/pkg/logger"
	"github.com/oarkflow/streamguard/pkg/objects"
)

func main() {
	envPath := flag.String("env", ".env", "path to the dotenv file")
	watch := flag.Bool("watch", false, "reload the dotenv file when it changes")
	flag.Parse()

	provider, err := config.NewProvider(*envPath, *watch, func() {
		log.Info().Msg("configuration file changed; restart to apply database and rate limit settings")
	})
	if err != nil {
		color.Red.Println(err.Error())
		os.Exit(1)
	}
	objects.Config = provider
	cfg := config.Config{}
	cfg.Load()

	settings := libs.LoadConfig(objects.Config)
	logger.Initialize(settings.LogLevel, settings.LogPretty)

	app := fiber.New(settings.ApplyProxy(fiber.Config{
		AppName:               objects.Config.GetString("app.name"),
		DisableStartupMessage: true,
	}))
	plugin := streamguard.NewPluginWithOptions(
		streamguard.WithPrefix(settings.RoutePrefix),
		streamguard.WithApp(app),
		streamguard.WithConfig(settings),
		streamguard.WithNotificationHandler(libs.NotificationHandler{}),
		streamguard.WithLogger(log.Logger),
	)
	if err := plugin.Register(); err != nil {
		color.Red.Println("Failed to start: " + err.Error())
		os.Exit(1)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	color.Green.Println("StreamGuard listening on " + settings.Addr)
	if err := app.Listen(settings.Addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
	if err := plugin.Close(); err != nil {
		log.Error().Err(err).Msg("plugin close failed")
	}
}
