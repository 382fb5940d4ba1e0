package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"isopod-exchange/config"
	"isopod-exchange/handlers"
	"isopod-exchange/middleware"
	"isopod-exchange/models"
	"isopod-exchange/services"
	"isopod-exchange/utils"
	"isopod-exchange/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.CatalogEntry{},
		&models.CreatureStats{},
		&models.GlobalState{},
		&models.InventoryEntry{},
		&models.ShopItem{},
		&models.ShopRotation{},
		&models.UserItem{},
		&models.UserEffect{},
		&models.PendingBattle{},
		&models.PendingRace{},
		&models.Auction{},
		&models.FishingRod{},
		&models.FishCatalog{},
		&models.UserRod{},
		&models.UserFish{},
		&models.ProcessedCommand{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules := services.DefaultRules
	rules.AllowNegativeBalance = cfg.AllowNegativeBalance
	opts := []services.Option{
		services.WithRules(rules),
		services.WithCastScale(cfg.FishingCastScale),
	}
	if cfg.WordsFile != "" {
		words, err := services.LoadWordList(cfg.WordsFile)
		if err != nil {
			log.Fatal("failed to load word list:", err)
		}
		log.Printf("📖 Loaded %d descriptor words from %s", len(words), cfg.WordsFile)
		opts = append(opts, services.WithWords(words))
	}
	game := services.NewGameService(db, opts...)

	if err := game.Seed(ctx); err != nil {
		log.Fatal("failed to seed game data:", err)
	}
	if _, err := game.EnsureMarketFresh(ctx); err != nil {
		log.Fatal("failed to generate marketplace:", err)
	}

	mirror, err := utils.NewR2Mirror(ctx, utils.R2Settings{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		Bucket:          cfg.R2Bucket,
		CDNBaseURL:      cfg.CDNBaseURL,
	})
	if err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	var uploader utils.Uploader
	if mirror != nil {
		uploader = mirror
	}
	renderer := utils.NewRenderer(cfg.AssetsDir, cfg.RenderDir, uploader)
	if err := utils.EnsureDir(cfg.RenderDir); err != nil {
		log.Fatal("failed to ensure render dir:", err)
	}

	sched, err := game.StartRefreshScheduler(ctx, time.Minute)
	if err != nil {
		log.Fatal("failed to start refresh scheduler:", err)
	}

	janitor := workers.NewJanitor(db, game, cfg.JanitorInterval, cfg.OfferTTL)
	janitor.Renders = renderer
	janitor.Start(ctx)

	app := fiber.New()
	bot := handlers.NewBot(game, renderer, cfg.BroadcastPassword)
	handlers.SetupBotRoutes(app, bot,
		middleware.GatewayAuthMiddleware(cfg.GatewayToken),
		middleware.UpdateContextMiddleware(),
		middleware.IdempotencyMiddleware(db, services.NewUserLocks()),
	)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.ListenAddr)
	log.Println("✅ Market/shop refresh scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced on /updates")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
