package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 5 * time.Second

// newApp builds the fiber application with all routes registered.
func newApp(cfg *Config, store Store, auth Authenticator, contract *Contract, out io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "datalog-server",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestLogger(NewLogger(out)))

	RegisterRoutes(app, contract, newHandlers(store, cfg, contract), auth)
	return app
}

// errorHandler turns any error escaping a handler into a JSON error body.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	logger := loggerFrom(c)
	logger.Error(ComponentHTTPServer, err.Error())
	logger.RespondWith(code)
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// run prepares the data file, serves until ctx is cancelled and then shuts
// down gracefully. When configPath is set, API key changes in that file are
// applied without a restart.
func run(ctx context.Context, cfg *Config, configPath string, getenv func(string) string, out io.Writer) error {
	store := NewFileStore(cfg.DataFile)
	if err := store.EnsureExists(); err != nil {
		return fmt.Errorf("preparing data file: %w", err)
	}

	contract, err := loadContract()
	if err != nil {
		return err
	}

	keys := NewKeyRing(cfg.APIKeys...)
	app := newApp(cfg, store, keys, contract, out)

	if configPath != "" {
		logger := NewLogger(out)
		go func() {
			err := watchConfig(ctx, configPath, getenv, logger, func(next *Config) {
				keys.Replace(next.APIKeys)
				logger.Info(ComponentConfig, fmt.Sprintf("Accepting %d api key(s)", keys.Len()))
			})
			if err != nil {
				logger.Error(ComponentConfig, fmt.Sprintf("Config watch stopped: %v", err))
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(":" + strconv.Itoa(cfg.Port))
	}()

	log.Printf("🚀 Data logger running at http://localhost:%d", cfg.Port)
	log.Printf("📄 Data file: %s (environment %s)", store.Path(), cfg.Environment)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
