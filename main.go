package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/EmpoweredVote/EV-Auth/internal/auth"
	"github.com/EmpoweredVote/EV-Auth/internal/blob"
	"github.com/EmpoweredVote/EV-Auth/internal/config"
	"github.com/EmpoweredVote/EV-Auth/internal/db"
	"github.com/EmpoweredVote/EV-Auth/internal/metrics"
	"github.com/EmpoweredVote/EV-Auth/internal/middleware"
	"github.com/EmpoweredVote/EV-Auth/internal/tokens"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config: ", err)
	}

	db.Connect(cfg.DatabaseURL)
	auth.Init()

	tm, err := tokens.NewManager(tokens.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Secure:        cfg.Production(),
	})
	if err != nil {
		log.Fatal("Failed to build token manager: ", err)
	}

	var blobs blob.Store = blob.Disabled{}
	if cfg.CloudinaryURL != "" {
		cld, err := blob.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			log.Fatal("Failed to configure avatar storage: ", err)
		}
		blobs = cld
	} else {
		log.Println("[blob] CLOUDINARY_URL not set, avatar uploads disabled")
	}

	svc := auth.NewService(users.NewGormStore(db.DB), tm, blobs)
	limiter := middleware.NewIPLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	if err := limiter.TrustProxies(cfg.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies: ", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/", RootHandler)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api/v1/users", auth.SetupRoutes(svc, limiter))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server listening on port :%s...", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
