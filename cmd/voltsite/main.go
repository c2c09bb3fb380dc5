package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voltagency/voltsite/app/controllers"
	"github.com/voltagency/voltsite/internal/pkg/database"
	"github.com/voltagency/voltsite/internal/pkg/env"
	"github.com/voltagency/voltsite/internal/pkg/jobqueue"
	"github.com/voltagency/voltsite/internal/pkg/router"
)

func main() {
	app, queue := NewApplication()
	defer queue.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

// NewApplication wires the HTTP app and the background notification queue.
func NewApplication() (*fiber.App, *jobqueue.Queue) {
	env.SetupEnvFile()
	database.SetupDatabase()

	queue := jobqueue.NewQueue(2)
	queue.Register(jobqueue.JobTypePaymentReceipt, jobqueue.NewReceiptProcessor(database.GetDB()))
	queue.Start()
	controllers.SetReceiptNotifier(jobqueue.NewReceiptNotifier(queue))

	app := fiber.New(fiber.Config{
		AppName: "voltsite",
	})

	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	return app, queue
}
