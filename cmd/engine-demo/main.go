package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"msgengine/internal/di"
	"msgengine/internal/engine"

	"github.com/joho/godotenv"
)

// engine-demo runs the delivery engine headless: it syncs, maintains the
// local store and prints what a host shell would render. Surface, badge
// and tickle wiring live in the embedding application.
func main() {

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Initializing message engine...")
	app, err := di.InitializeApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.Engine.Observers().Subscribe(engine.NewBadgeObserver(app.Store, func(count int64) {
		fmt.Printf("🔔 unread inbox count: %d\n", count)
	}))

	app.Engine.Start()
	app.Engine.OnForeground()
	log.Println("✅ Engine running, Ctrl-C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down engine...")
	inbox := app.Engine.ReadInboxItems(context.Background())
	for _, item := range inbox {
		fmt.Printf("📥 inbox %d read=%v sent=%s\n", item.ID, item.ReadAt != nil, item.SentAt.Format("2006-01-02 15:04"))
	}

	app.Engine.Shutdown()
	app.Scheduler.Shutdown()
	log.Println("Engine stopped")
}
