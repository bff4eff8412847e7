package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"moosedocs/config"
	"moosedocs/internal/background"
	docstore "moosedocs/internal/document/store"
	"moosedocs/internal/identity"
	"moosedocs/internal/storage"
	"moosedocs/internal/upload"
	"moosedocs/pkg/logger"
	"moosedocs/router"
	"moosedocs/socket"
)

func main() {
	// No .env file is fine, variables then come from the OS environment.
	_ = godotenv.Load()

	logger.Init()
	defer logger.Log.Sync()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logger.Sugar.Warn("MOOSEDOCS_JWT_SECRET not set, all authenticated requests will fail")
	}

	ctx := context.Background()

	backend, err := openBackend(cfg)
	if err != nil {
		logger.Sugar.Fatalf("Failed to open %s storage backend: %v", cfg.Storage, err)
	}

	identityStore, err := identity.NewStore(ctx, backend)
	if err != nil {
		logger.Sugar.Fatalf("Failed to load identity store: %v", err)
	}
	identityStore.SetLatency(cfg.SimulatedLatency)

	documentStore, err := docstore.NewStore(ctx, backend, identityStore)
	if err != nil {
		logger.Sugar.Fatalf("Failed to load document store: %v", err)
	}
	documentStore.SetLatency(cfg.SimulatedLatency)

	// Logging out closes whatever document was open.
	identityStore.OnLogout(documentStore.ClearCurrent)

	backgroundStore, err := background.NewStore(ctx, backend)
	if err != nil {
		logger.Sugar.Fatalf("Failed to load background settings: %v", err)
	}

	var uploader upload.Uploader
	if cfg.MinioEndpoint != "" {
		minioUploader, err := upload.NewMinioUploader(ctx, upload.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			logger.Sugar.Fatalf("Failed to connect to MinIO: %v", err)
		}
		uploader = minioUploader
	} else {
		logger.Sugar.Info("MINIO_ENDPOINT not set, file uploads disabled")
	}

	hub := socket.NewHub(documentStore)
	go hub.Run()

	if cfg.SimulateCollaborators {
		simulator := socket.NewSimulator(hub)
		go simulator.Run()
	}

	handler := router.Setup(router.Deps{
		Identity:   identityStore,
		Documents:  documentStore,
		Background: backgroundStore,
		Hub:        hub,
		Uploader:   uploader,
	})

	logger.Sugar.Infof("moosedocs backend listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}

func openBackend(cfg config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case "memory":
		return storage.NewMemory(), nil
	case "redis":
		return storage.NewRedis(cfg.RedisURL)
	case "postgres":
		return storage.OpenPostgres(cfg.DatabaseURL)
	default:
		return storage.NewFile(cfg.DataDir)
	}
}
