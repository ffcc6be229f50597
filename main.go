package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doemais/config"
	"doemais/cron"
	"doemais/database"
	"doemais/database/fixtures"
	categoryRepo "doemais/database/repository/category"
	donationRepo "doemais/database/repository/donation"
	institutionRepo "doemais/database/repository/institution"
	ratingRepo "doemais/database/repository/rating"
	userRepo "doemais/database/repository/user"
	"doemais/handlers"
	"doemais/routes"
	"doemais/services/auth"
	"doemais/services/category"
	"doemais/services/donation"
	"doemais/services/geo"
	"doemais/services/institution"
	"doemais/services/notification"
	"doemais/services/rating"
	"doemais/services/session"
	"doemais/services/storage"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// stores bundles the repositories of the selected data source.
type stores struct {
	institutions institutionRepo.InstitutionRepository
	categories   categoryRepo.CategoryRepository
	donations    donationRepo.DonationRepository
	ratings      ratingRepo.RatingRepository
	users        userRepo.UserRepository
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repos  stores
		tokens auth.TokenStore
		events auth.EventBus
		queue  notification.Enqueuer
	)
	mailer := notification.NewMailerFromConfig(logger)

	if config.UsesFixtures() {
		mem, err := fixtures.NewRepositories()
		if err != nil {
			logger.Fatal("main: failed to load fixtures", zap.Error(err))
		}
		repos = stores{mem.Institutions, mem.Categories, mem.Donations, mem.Ratings, mem.Users}
		tokens = auth.NewMemoryTokenStore()
		events = auth.NewLocalBus()
		queue = &notification.MemoryQueue{}
		utils.MarkFixtureHealth()
		logger.Info("Serving in-process fixture data")
	} else {
		if err := database.Connect(ctx); err != nil {
			logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
		}
		logger.Info("Connected to MongoDB", zap.String("database", config.AppConfig.DatabaseName))
		repos = stores{
			institutions: institutionRepo.NewMongoInstitutionRepo(logger),
			categories:   categoryRepo.NewMongoCategoryRepo(logger),
			donations:    donationRepo.NewMongoDonationRepo(logger),
			ratings:      ratingRepo.NewMongoRatingRepo(logger),
			users:        userRepo.NewMongoUserRepo(logger),
		}
		if !config.IsProduction() {
			if err := fixtures.SeedMongo(ctx, repos.institutions, repos.categories, repos.users); err != nil {
				logger.Warn("main: seeding skipped", zap.Error(err))
			}
		}

		authCache := utils.GetAuthCacheClient()
		tokens = auth.NewRedisTokenStore(authCache)
		events = auth.NewRedisBus(authCache, logger)

		queueClient := notification.NewQueueClient(utils.QueueRedisOpt())
		defer queueClient.Close()
		queue = queueClient

		cron.NewReminderWorker(utils.QueueRedisOpt(), repos.donations, mailer, logger).Start(ctx)
		utils.StartHealthMonitor(ctx, []*redis.Client{authCache}, database.MongoClient)
	}

	images, err := storage.NewFromConfig(ctx)
	if err != nil {
		logger.Warn("main: image storage disabled", zap.Error(err))
		images = storage.Disabled{}
	}

	// services.
	authService := &auth.DefaultAuthService{
		Users:        repos.users,
		Institutions: repos.institutions,
		Tokens:       tokens,
		Events:       events,
		TTL:          config.AppConfig.TokenTTL,
		Logger:       logger,
	}
	institutionService := &institution.DefaultInstitutionService{
		Repo:       repos.institutions,
		Categories: repos.categories,
		Ratings:    repos.ratings,
		Open:       institution.OpenCheckerFromConfig(),
		Logger:     logger,
	}
	donationService := &donation.DefaultDonationService{
		Repo:         repos.donations,
		Institutions: repos.institutions,
		Categories:   repos.categories,
		Users:        repos.users,
		Notifier:     &notification.Dispatcher{Mailer: mailer, Queue: queue, Logger: logger},
		Images:       images,
		Logger:       logger,
	}
	ratingService := &rating.DefaultRatingService{
		Repo:         repos.ratings,
		Donations:    repos.donations,
		Institutions: repos.institutions,
		Logger:       logger,
	}

	sessions := session.NewManager(authService, institutionService, config.AppConfig.SessionTTL, logger)
	go sessions.Run(ctx)

	locations := geo.NewProvider(
		geo.NewIPLocator(config.AppConfig.IPAPIURL, logger),
		geo.WithTimeout(config.AppConfig.GeolocationTimeout),
		geo.WithMaxAge(config.AppConfig.GeolocationMaxAge),
		geo.WithLogger(logger),
	)

	handlerBundle := &handlers.HandlerBundle{
		AuthService: authService,
		Auth:        &handlers.AuthHandler{AuthService: authService},
		Category:    &handlers.CategoryHandler{CategoryService: &category.DefaultCategoryService{Repo: repos.categories}},
		Institution: &handlers.InstitutionHandler{
			InstitutionService: institutionService,
			RatingService:      ratingService,
			DonationService:    donationService,
		},
		Donation: &handlers.DonationHandler{DonationService: donationService},
		Rating:   &handlers.RatingHandler{RatingService: ratingService},
		Session: &handlers.SessionHandler{
			Sessions:     sessions,
			Institutions: institutionService,
			Locations:    locations,
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())
	routes.RegisterRoutes(router, handlerBundle, config.AppConfig.MaxRequestsPerMin)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if err := database.Disconnect(shutdownCtx); err != nil {
		logger.Sugar().Warnf("main: mongo disconnect: %v", err)
	}

	_ = logger.Sync()
	logger.Sugar().Info("main: server stopped gracefully")
}
