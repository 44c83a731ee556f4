package main

import (
	"context"
	"log"

	"github.com/techagentng/sakany/config"
	"github.com/techagentng/sakany/db"
	"github.com/techagentng/sakany/mailingservices"
	"github.com/techagentng/sakany/server"
	"github.com/techagentng/sakany/services"
	"github.com/techagentng/sakany/services/chat"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var (
		authRepo     db.AuthRepository
		propertyRepo db.PropertyRepository
		chatRepo     db.ChatRepository
	)
	switch conf.StoreDriver {
	case config.StorePostgres:
		gormDB := db.GetDB(conf)
		authRepo = db.NewAuthRepo(gormDB)
		propertyRepo = db.NewPropertyRepo(gormDB)
		chatRepo = db.NewChatRepo(gormDB)
	case config.StoreMemory:
		log.Println("Using in-memory store, data is lost on restart")
		store := db.NewMemoryStore()
		authRepo = store.AuthRepository()
		propertyRepo = store.PropertyRepository()
		chatRepo = store.ChatRepository()
	default:
		log.Fatalf("unknown store driver %q", conf.StoreDriver)
	}

	codes := db.NewMemoryCodeStore()
	if conf.RedisURL != "" {
		if codes, err = db.NewRedisCodeStore(conf.RedisURL); err != nil {
			log.Fatalf("connecting to redis: %v", err)
		}
	}

	var blobs db.BlobStore
	uploadDir := ""
	if conf.AWSBucket != "" {
		blobs, err = db.NewS3BlobStore(conf)
	} else {
		uploadDir = conf.UploadDir
		blobs, err = db.NewLocalBlobStore(conf.UploadDir, conf.PublicUrl)
	}
	if err != nil {
		log.Fatalf("initializing blob store: %v", err)
	}

	mailer := mailingservices.New(conf)

	// Phone 2FA, Firebase account deletion and push notifications need a
	// service account; without one those features stay off.
	var (
		phones   services.PhoneVerifier
		accounts services.AccountDeleter
		notifier chat.OfflineNotifier
	)
	if conf.GoogleApplicationCredentials != "" {
		fb, err := services.InitFirebase(context.Background(), conf.GoogleApplicationCredentials)
		if err != nil {
			log.Fatalf("error initializing Firebase: %v", err)
		}
		phones = fb
		accounts = fb
		notifier = services.NewNotificationService(fb.Messaging, authRepo)
	}

	twoFactorService := services.NewTwoFactorService(authRepo, codes, mailer, phones)
	authService := services.NewAuthService(authRepo, twoFactorService, mailer, accounts, conf)
	propertyService := services.NewPropertyService(propertyRepo, services.NewMediaService(blobs))

	registry := chat.NewRegistry(conf.HeartbeatInterval)
	messageLog := chat.NewMessageLog(chatRepo, authRepo)
	ledger := chat.NewLedger(chatRepo, authRepo)
	relay := chat.NewRelay(registry, messageLog, ledger, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.Run(ctx)

	s := &server.Server{
		Config:           conf,
		AuthRepository:   authRepo,
		AuthService:      authService,
		TwoFactorService: twoFactorService,
		PropertyService:  propertyService,
		MessageLog:       messageLog,
		Ledger:           ledger,
		Relay:            relay,
		UploadDir:        uploadDir,
	}
	s.Start()
}
