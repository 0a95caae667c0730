package main

import (
	"log"

	"github.com/eventhub-gh/registration-service/config"
	"github.com/eventhub-gh/registration-service/internal/consumer"
	"github.com/eventhub-gh/registration-service/internal/handler"
	"github.com/eventhub-gh/registration-service/internal/middleware"
	"github.com/eventhub-gh/registration-service/internal/payment"
	"github.com/eventhub-gh/registration-service/internal/repository"
	"github.com/eventhub-gh/registration-service/internal/service"
	"github.com/eventhub-gh/registration-service/pkg/database"
	"github.com/eventhub-gh/registration-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ consumer: sync the event catalog from the catalog service
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	eventConsumer := consumer.NewEventConsumer(db)
	eventConsumer.Start(msgs)

	// RabbitMQ publisher: registration lifecycle + reconciliation alerts
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, rabbitmq.RegistrationsExchange)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ publisher: %v", err)
	}
	defer publisher.Close()

	// Payment gateway
	if cfg.PaymentMode != "sandbox" {
		log.Fatalf("unsupported PAYMENT_MODE %q: only sandbox is wired", cfg.PaymentMode)
	}
	gateway := &payment.SandboxGateway{Delay: cfg.SandboxDelay}
	adapter := payment.NewAdapter(gateway, cfg.PaymentTimeout)

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	regRepo := repository.NewRegistrationRepository(db)

	// Service
	regSvc := service.NewRegistrationService(regRepo, eventRepo, adapter, publisher, cfg.PaymentCurrency)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "registration-service"})
	})

	handler.NewRegistrationHandler(regSvc).RegisterRoutes(e)

	log.Printf("Registration Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
