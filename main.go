package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/synard1/ximopet-sub010/cmd"
	"github.com/synard1/ximopet-sub010/internal/core/container"
	"github.com/synard1/ximopet-sub010/internal/core/routes"
	"github.com/synard1/ximopet-sub010/internal/database"
	"github.com/synard1/ximopet-sub010/internal/middleware"
	"github.com/synard1/ximopet-sub010/internal/rate_limiter"
)

func init() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(ctx)
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer db.Close()

	log.Println("Connected to the database successfully!")

	if os.Getenv("AUTO_MIGRATE") == "true" {
		if err := database.RunMigrations(db, "migrations"); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	appContainer := container.NewAppContainer(db)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.TimeoutMiddleware(30 * time.Second))
	router.Use(rate_limiter.NewRateLimiter(100, time.Minute).Middleware())

	routes.RegisterUtilityRoutes(router)
	routes.RegisterProtectedRoutes(router, appContainer)

	if err := router.Run(os.Getenv("APP_HOST")); err != nil {
		panic(err)
	}
}
