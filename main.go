package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	handlers "github.com/andrescris/logiflow/pkg/Handlers"
	"github.com/andrescris/logiflow/pkg/config"
	"github.com/andrescris/logiflow/pkg/ingest"
	"github.com/andrescris/logiflow/pkg/inventory"
	"github.com/andrescris/logiflow/pkg/kommo"
	"github.com/andrescris/logiflow/pkg/logger"
	"github.com/andrescris/logiflow/pkg/middleware"
	"github.com/andrescris/logiflow/pkg/orders"
	"github.com/andrescris/logiflow/pkg/queue"
	"github.com/andrescris/logiflow/pkg/signature"
	"github.com/andrescris/logiflow/pkg/store"
	"github.com/andrescris/logiflow/pkg/webhooks"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("CRITICAL: Invalid configuration: %v", err)
	}
	if err := logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput, Path: cfg.LogPath}); err != nil {
		log.Fatalf("CRITICAL: Error initializing logger: %v", err)
	}
	appLog := logger.GetAppLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Firebase: Firestore para los datos, Auth para los tokens del panel
	app, err := store.NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("CRITICAL: Error initializing Firebase connection: %v", err)
	}
	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("CRITICAL: Error creating Firestore client: %v", err)
	}
	db := store.NewFirestore(firestoreClient)
	defer db.Close()

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("CRITICAL: Error creating Firebase Auth client: %v", err)
	}

	// 2. Servicios
	dispatcher := webhooks.NewDispatcher(db, &http.Client{}, cfg.WebhookTimeout(), logger.GetLogger("webhooks"))

	var kommoAPI kommo.API
	if cfg.KommoEnabled() {
		kommoAPI = newKommoClient(ctx, cfg, db, appLog)
	} else {
		appLog.Info("kommo integration disabled")
	}

	ingestService := ingest.NewService(db, kommoAPI, dispatcher, logger.GetLogger("ingest"))
	projection := queue.NewProjection(db, logger.GetLogger("queue"))
	go func() {
		if err := projection.Run(ctx); err != nil {
			appLog.WithError(err).Error("queue projection stopped")
		}
	}()

	server := &handlers.Server{
		Stores:    signature.NewStoreTable(cfg.ShopifyStores),
		Ingest:    ingestService,
		Queue:     projection,
		Tables:    queue.NewTableConfigs(db),
		Orders:    orders.NewService(db, kommoAPI, cfg.KommoConfirmedStatusID, dispatcher, logger.GetLogger("orders")),
		Inventory: inventory.NewService(db, logger.GetLogger("inventory")),
		Webhooks:  webhooks.NewConfigs(db),
		Location:  cfg.Location(),
		Log:       appLog,
	}

	// 3. Router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger.GetLogger("http")))
	server.Register(r, handlers.RouterConfig{
		IngestionAPIKey: cfg.IngestionAPIKey,
		Verifier:        authClient,
		AuthDisabled:    cfg.AuthDisabled,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})
	if cfg.AuthDisabled {
		appLog.Warn("AUTH_DISABLED is set: panel routes accept unauthenticated requests")
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		appLog.WithFields(logrus.Fields{"port": cfg.Port, "stores": server.Stores.IDs()}).Info("🚀 LogiFlow ingestion server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("CRITICAL: HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("graceful shutdown failed")
	}
	dispatcher.Wait()
}

// newKommoClient arma el cliente con el token guardado en Firestore si
// existe; si no, con los tokens del entorno.
func newKommoClient(ctx context.Context, cfg *config.Config, db store.Store, appLog *logrus.Logger) *kommo.Client {
	tokens := kommo.NewTokenStore(db)
	initial := &oauth2.Token{
		AccessToken:  cfg.KommoAccessToken,
		TokenType:    "Bearer",
		RefreshToken: cfg.KommoRefreshToken,
	}
	stored, err := tokens.LoadToken(ctx)
	switch {
	case err != nil:
		appLog.WithError(err).Warn("could not load stored kommo token, using environment")
	case stored != nil && stored.RefreshToken != "":
		initial = stored
	}

	src := kommo.NewRefreshSource(kommo.RefreshConfig{
		BaseURL:      cfg.KommoBaseURL,
		ClientID:     cfg.KommoClientID,
		ClientSecret: cfg.KommoClientSecret,
		RedirectURI:  cfg.KommoRedirectURI,
	}, initial.RefreshToken, nil, tokens)

	// sin vencimiento conocido el token se daría por válido para siempre
	cached := initial
	if cached.AccessToken == "" || cached.Expiry.IsZero() {
		cached = nil
	}
	return kommo.NewClient(cfg.KommoBaseURL, kommo.NewTokenCache(cached, src, time.Minute))
}
