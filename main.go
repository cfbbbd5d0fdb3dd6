package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/example/storefront/modules/api"
	"github.com/example/storefront/modules/cache"
	"github.com/example/storefront/modules/cart"
	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/database"
	"github.com/example/storefront/modules/notification"
	"github.com/example/storefront/modules/purchase"
	"github.com/example/storefront/modules/receipt"
	"github.com/example/storefront/modules/user"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

func main() {
	cfg := loadConfig()

	log.Println("=== Storefront ===")
	log.Printf("HTTP Address: %s", cfg.HTTPAddr)
	log.Printf("Database: %s", cfg.DBPath)
	log.Printf("JetStream Dir: %s", cfg.JetStreamDir)
	if cfg.RedisAddr != "" {
		log.Printf("Redis: %s (cache TTL %s)", cfg.RedisAddr, cfg.CacheTTL)
	} else {
		log.Println("Redis: disabled")
	}

	logLevel := mono.LogLevelInfo
	if strings.EqualFold(cfg.LogLevel, "error") {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.JetStreamDir),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Plugins start before modules and are handed to every UsePluginModule.
	if err := app.RegisterPlugin(database.NewPluginModule(cfg.DBPath, cfg.DBDebug, app.Logger()), "db"); err != nil {
		log.Fatalf("Failed to register database plugin: %v", err)
	}

	if cfg.RedisAddr != "" {
		cachePlugin := cache.NewPluginModule(cfg.RedisAddr, "storefront:", cfg.CacheTTL, app.Logger())
		if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
			log.Fatalf("Failed to register cache plugin: %v", err)
		}
	}

	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        receipt.BucketName,
				Description: "Purchase receipts",
				MaxBytes:    256 * 1024 * 1024, // 256MB max storage
				Storage:     fsjetstream.FileStorage,
				Compression: true,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	modules := []mono.Module{
		user.NewModule(cfg.userConfig(), app.Logger()),
		catalog.NewModule(app.Logger()),
		cart.NewModule(app.Logger()),
		receipt.NewModule(app.Logger()),
		purchase.NewModule(purchase.DefaultAccountHasher(), app.Logger()),
		notification.NewModule(notification.DefaultCapacity, app.Logger()),
		api.NewModule(cfg.apiConfig(), app.Logger()),
	}
	for _, m := range modules {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register module %s: %v", m.Name(), err)
		}
	}

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost%s", cfg.HTTPAddr)
	log.Println("Endpoints:")
	log.Println("  GET    /health")
	log.Println("  POST   /api/v1/auth/register | login | refresh")
	log.Println("  GET    /api/v1/profile")
	log.Println("  *      /api/v1/users[/:id[/password]]")
	log.Println("  *      /api/v1/categories[/:id]")
	log.Println("  *      /api/v1/products[/search|/:id[/restock]]")
	log.Println("  *      /api/v1/cart[/items[/:productId]]")
	log.Println("  *      /api/v1/purchases[/:id[/cancel|/pay|/receipt]]")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
