package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/ecosocial/internal/api"
	"github.com/UkralStul/ecosocial/internal/auth"
	"github.com/UkralStul/ecosocial/internal/config"
	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/invite"
	"github.com/UkralStul/ecosocial/internal/payment"
	"github.com/UkralStul/ecosocial/internal/realtime"
	"github.com/UkralStul/ecosocial/internal/richtext"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/UkralStul/ecosocial/internal/storage/inmemory"
	"github.com/UkralStul/ecosocial/internal/storage/sqlstore"
)

func main() {
	storageType := flag.String("storage", "in-memory", "Storage type (in-memory, postgres or sqlite)")
	flag.Parse()

	cfg, err := config.Load(*storageType)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Printf("Starting server with %s storage", cfg.Storage)
	var store storage.Storage
	switch cfg.Storage {
	case "postgres":
		db, err := sqlstore.OpenPostgres(cfg.DatabaseURL, cfg.LogSQL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		store = db
	case "sqlite":
		db, err := sqlstore.OpenSQLite(cfg.SQLitePath, cfg.LogSQL)
		if err != nil {
			log.Fatalf("failed to open sqlite %s: %v", cfg.SQLitePath, err)
		}
		defer db.Close()
		store = db
	default:
		store = inmemory.New()
		// Заполним данными для локальной разработки
		fillWithMockData(store)
	}

	var processor payment.Processor
	if cfg.PaymentsEnabled() {
		processor = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Printf("STRIPE_SECRET_KEY is not set, orders are created without payment intents")
	}

	server := api.New(api.Deps{
		Store:    store,
		Auth:     auth.New(store, auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL), cfg.SessionTTL, cfg.CookieSecure),
		Invites:  invite.NewService(store),
		Payments: payment.NewService(store, processor, payment.NewVerifier(cfg.StripeWebhookSecret)),
		Hub:      realtime.NewHub(),
		AdminKey: auth.AdminKey(cfg.AdminAPIKey),
		Currency: cfg.Currency,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("listening on http://localhost:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed to start: %v", err)
	}
}

func fillWithMockData(s storage.Storage) {
	ctx := context.Background()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("fillWithMockData: failed to hash password: %v", err)
	}

	// 1. Два пользователя с общим паролем password123.
	alice, err := s.CreateUser(ctx, &domain.User{
		Email: "alice@example.com", Username: "alice", PasswordHash: hash, DisplayName: "Alice",
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create alice: %v", err)
	}
	bob, err := s.CreateUser(ctx, &domain.User{
		Email: "bob@example.com", Username: "bob", PasswordHash: hash, DisplayName: "Bob",
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create bob: %v", err)
	}

	// 2. Пост с хэштегами и упоминанием, комментарий к нему.
	content := "Посадили 20 деревьев в парке! #Экология #trees спасибо @bob"
	post, err := s.CreatePost(ctx, &domain.Post{
		AuthorID: alice.ID,
		Content:  content,
		Hashtags: richtext.Hashtags(content),
		Mentions: richtext.Mentions(content),
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create post: %v", err)
	}
	if _, err := s.CreateComment(ctx, &domain.Comment{
		PostID: post.ID, AuthorID: bob.ID, Content: "Отличная работа!",
	}); err != nil {
		log.Fatalf("fillWithMockData: failed to create comment: %v", err)
	}
	if err := s.CreateFollow(ctx, bob.ID, alice.ID); err != nil {
		log.Fatalf("fillWithMockData: failed to create follow: %v", err)
	}
	if err := s.AdjustFollowCounts(ctx, bob.ID, alice.ID, 1); err != nil {
		log.Fatalf("fillWithMockData: failed to update follow counts: %v", err)
	}

	// 3. Товар для маркетплейса и задание.
	product, err := s.CreateProduct(ctx, &domain.Product{
		SellerID:    alice.ID,
		Title:       "Бамбуковая зубная щетка",
		Description: "Биоразлагаемая ручка",
		PriceCents:  450,
		Currency:    "usd",
		Stock:       25,
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create product: %v", err)
	}
	if _, err := s.CreateTask(ctx, &domain.Task{
		Title: "Сдать батарейки на переработку", Points: 50, CreatedBy: "seed",
	}); err != nil {
		log.Fatalf("fillWithMockData: failed to create task: %v", err)
	}

	log.Printf("Mock data filled successfully. Users: alice, bob; post ID: %s; product ID: %s", post.ID, product.ID)
}
