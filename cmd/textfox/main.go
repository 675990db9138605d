package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/TextFox/app/repository"
	"github.com/ManuelReschke/TextFox/internal/pkg/billing"
	"github.com/ManuelReschke/TextFox/internal/pkg/cache"
	"github.com/ManuelReschke/TextFox/internal/pkg/constants"
	"github.com/ManuelReschke/TextFox/internal/pkg/database"
	"github.com/ManuelReschke/TextFox/internal/pkg/env"
	"github.com/ManuelReschke/TextFox/internal/pkg/eventqueue"
	"github.com/ManuelReschke/TextFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/TextFox/internal/pkg/router"
	"github.com/ManuelReschke/TextFox/internal/pkg/summarize"
	"github.com/ManuelReschke/TextFox/internal/pkg/whatsapp"
)

const counterFlushInterval = time.Minute

func main() {
	env.SetupEnvFile()
	if env.IsDev() {
		log.SetLevel(log.LevelDebug)
	}
	database.SetupDatabase()
	cache.SetupCache()

	repos := repository.NewRepositories(database.GetDB())

	// One gate per process bounds external summarization concurrency.
	gate := summarize.NewGate(env.GetEnvInt("SUMMARY_CONCURRENCY", 1))
	summarizer := summarize.NewClientFromEnv(gate)
	sender := whatsapp.NewClientFromEnv()

	chat := eventqueue.NewChatProcessorFromEnv(repos, summarizer, sender)
	billingProc := eventqueue.NewBillingProcessor(billing.NewService(repos.Subscription, repos.User))
	worker := eventqueue.NewWorker(repos.Event, chat, billingProc)
	worker.Start()

	flushStop := make(chan struct{})
	go flushCounters(flushStop)

	app := newFiberApp()
	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[App] listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[App] shutting down")
	if err := app.Shutdown(); err != nil {
		log.Errorf("[App] http shutdown: %v", err)
	}
	worker.Stop()
	close(flushStop)
	if err := counter.FlushAll(); err != nil {
		log.Errorf("[App] final counter flush: %v", err)
	}
}

func newFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "TextFox",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get(constants.MetricsRoute, monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

func flushCounters(stop chan struct{}) {
	ticker := time.NewTicker(counterFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[App] counter flush: %v", err)
			}
		}
	}
}
