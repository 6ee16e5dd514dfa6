package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/KMA-JAVA-CARD/cardpoint/adapters/events"
	"github.com/KMA-JAVA-CARD/cardpoint/adapters/ledger"
	"github.com/KMA-JAVA-CARD/cardpoint/adapters/reader"
	"github.com/KMA-JAVA-CARD/cardpoint/adapters/store"
	"github.com/KMA-JAVA-CARD/cardpoint/adapters/tokenizer"
	"github.com/KMA-JAVA-CARD/cardpoint/config"
	"github.com/KMA-JAVA-CARD/cardpoint/ports"
	"github.com/KMA-JAVA-CARD/cardpoint/service"
	transport "github.com/KMA-JAVA-CARD/cardpoint/transport/http"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL %q, defaulting to info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	// Session token signing key. Sessions die with the process, so a
	// per-start key is fine; a restart invalidates outstanding tokens along
	// with the sessions they referenced.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	wmLogger := watermill.NewStdLogger(false, false)

	// Single-terminal deployments run without Redis: nonce tracking stays in
	// process and events go to an in-process pub/sub.
	var (
		nonces    ports.NonceStore
		publisher message.Publisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		nonces = store.NewRedisStore(redisClient)
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		nonces = store.NewMemoryStore()
	}

	readerGW := reader.NewHTTPGateway(cfg.ReaderURL, cfg.ReaderTimeout, log)
	ledgerSvc := ledger.NewClient(cfg.LedgerURL, cfg.LedgerTimeout, log)
	eventPub := events.NewWatermillPublisher(publisher)
	sessionTok := tokenizer.NewJWTTokenizer(signKey, cfg.SessionTTL)

	sessions := service.NewSessionRegistry(cfg.SessionTTL)
	coordinator := service.NewAuthenticationCoordinator(readerGW, ledgerSvc, nonces, sessions, eventPub, log)
	reconciler := service.NewPointsReconciler(readerGW, ledgerSvc, sessions, log)
	orchestrator := service.NewTransactionOrchestrator(readerGW, ledgerSvc, sessions, eventPub, cfg.ConversionRate, log)
	pinLifecycle := service.NewPinLifecycleManager(coordinator, readerGW, ledgerSvc, eventPub, cfg.DefaultPin, log)
	members := service.NewMemberService(readerGW, ledgerSvc, sessions, log)

	handlers := transport.NewHandlers(coordinator, reconciler, orchestrator, pinLifecycle, members, sessionTok)
	router := transport.SetupRouter(handlers, sessionTok, sessions)

	log.Infof("cardpoint terminal listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
