// Copyright 2025 Warden
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"warden/gateway/services"
	"warden/gateway/shared/logger"
	"warden/gateway/vault"
)

var gatewayLog = logger.New("gateway")

// Run wires the gateway components from configuration and serves the HTTP
// surface until SIGINT/SIGTERM.
func Run() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Audit store and agent registry share one Postgres pool. The gateway
	// refuses to start without it: agents cannot authenticate and nothing
	// can be audited.
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := pingWithRetry(db, 5); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connected")

	// Redis backs nonces and rate limiting. Rate limiting fails open when
	// redis is down, but nonce issuance cannot, so this is also required.
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
	}
	log.Println("Redis connected")

	// Tenant credential vault.
	var secrets vault.SecretsClient
	switch cfg.Vault.Backend {
	case "aws":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		awsClient, err := vault.NewAWSSecretsClient(ctx, vault.AWSSecretsClientOptions{
			Region: cfg.Vault.Region,
		})
		cancel()
		if err != nil {
			log.Fatalf("Failed to initialize AWS secrets client: %v", err)
		}
		secrets = awsClient
		log.Println("Vault backend: AWS Secrets Manager")
	default:
		secrets = vault.NewStaticSecretsClient()
		log.Println("Vault backend: static (no tenant credentials)")
	}

	registry := services.NewRegistry(&services.Overrides{BaseURLs: cfg.ServiceBaseURLs})

	store, err := NewAgentStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize agent store: %v", err)
	}

	audit := NewAuditLogger(db)
	defer audit.Shutdown()

	nonces := NewNonceService(redisClient)
	auth := NewAuthenticator(store, nonces)
	scopes := NewScopeAuthorizer(registry)
	limiter := NewRateLimiter(redisClient, cfg.ServiceRateLimits)
	credentials := NewCredentialResolver(secrets, cfg.GlobalCredentials)
	orchestrator := NewOrchestrator(registry, scopes, limiter, credentials, audit, store, nil)

	server := &Server{
		store:        store,
		nonces:       nonces,
		auth:         auth,
		orchestrator: orchestrator,
		credentials:  credentials,
		audit:        audit,
		registry:     registry,
		adminSecret:  []byte(cfg.AdminJWTSecret),
		db:           db,
		redis:        redisClient,
	}

	router := mux.NewRouter()
	router.HandleFunc("/nonce", server.handleNonce).Methods("POST")
	router.HandleFunc("/request", server.handleRequest).Methods("POST")
	router.HandleFunc("/resolve", server.handleResolve).Methods("POST")
	router.HandleFunc("/health", server.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/agents", server.requireAdmin(server.handleCreateAgent)).Methods("POST")
	admin.HandleFunc("/agents", server.requireAdmin(server.handleListAgents)).Methods("GET")
	admin.HandleFunc("/agents/{id}", server.requireAdmin(server.handleDisableAgent)).Methods("DELETE")
	admin.HandleFunc("/logs", server.requireAdmin(server.handleQueryLogs)).Methods("GET")

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"}, // Configure for production
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsMiddleware.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Warden gateway listening on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// pingWithRetry waits for the database to come up. Container orchestration
// frequently starts the gateway before Postgres finishes booting.
func pingWithRetry(db *sql.DB, attempts int) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < attempts {
			backoff := time.Duration(attempt*2) * time.Second
			log.Printf("Database connection failed (attempt %d/%d): %v, retrying in %v",
				attempt, attempts, err, backoff)
			time.Sleep(backoff)
		}
	}
	return err
}
