package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"chatsync/internal/common"
	"chatsync/internal/dbmysql"
	"chatsync/internal/di"
)

const staleCreationAge = time.Hour

func main() {
	log.Println("Starting chatsync...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	app, err := di.InitializeApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Mongo.Close(context.Background())

	if err := dbmysql.Migrate(app.DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("✅ Database migration completed")

	if app.Bridge != nil {
		if err := app.Bridge.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start feed bridge: %v", err)
		}
		defer app.Bridge.Close()
		log.Printf("✅ Feed bridge connected (%s)", app.Config.Redis.Addr)
	} else {
		log.Println("Feed bridge disabled, events stay in-process")
	}

	router := mux.NewRouter()
	router.Use(common.LoggingMiddleware)
	app.Handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         app.Config.Server.Host + ":" + app.Config.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(app.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.Config.Server.WriteTimeout) * time.Second,
	}

	// Sweep abandoned creation attempts in the background.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupDone:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				cleaned, err := app.Chats.CleanupStaleCreations(ctx, staleCreationAge)
				cancel()
				if err != nil {
					log.Printf("✗ Stale creation cleanup failed: %v", err)
				} else if cleaned > 0 {
					log.Printf("✓ Cleaned %d stale creation attempts", cleaned)
				}
			}
		}
	}()

	go func() {
		log.Printf("chatsync running on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chatsync...")
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("chatsync stopped")
}
