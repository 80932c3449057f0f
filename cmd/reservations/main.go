package main

import (
	"github.com/joho/godotenv"

	"tably/internal/locations"
	"tably/internal/reservations/handler"
	"tably/internal/reservations/repository"
	"tably/internal/reservations/service"
	"tably/internal/reservations/validator"
	"tably/internal/slots"
	"tably/internal/tables"
	"tably/internal/waiters"
	"tably/pkg/app"
	"tably/pkg/config"
	"tably/pkg/kafka"
	kafka_config "tably/pkg/kafka/config"
)

const ServiceName = "reservations"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")

	events := initEventPublisher(cfg)
	defer func() {
		if err := events.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	reservationService, availabilityService := initServices(cfg, events)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewReservationHandler(reservationService, availabilityService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, events service.EventPublisher) (service.ReservationService, service.AvailabilityService) {
	catalog := slots.Default()

	tableRepo := tables.NewMongoTableRepository(cfg)
	locationRepo := locations.NewMongoLocationRepository(cfg)
	waiterRepo := waiters.NewMongoWaiterRepository(cfg)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	holdRepo := repository.NewMongoSlotHoldRepository(cfg)

	reservationService := service.NewReservationService(
		reservationRepo,
		holdRepo,
		tables.NewDirectory(tableRepo, cfg.Log),
		locationRepo,
		waiterRepo,
		validator.NewReservationValidator(cfg.Log),
		catalog,
		events,
		cfg,
	)

	availabilityService := service.NewAvailabilityService(
		reservationRepo,
		tableRepo,
		locationRepo,
		catalog,
		cfg,
	)

	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)
	return reservationService, availabilityService
}

func initEventPublisher(cfg *config.Config) service.EventPublisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, reservation events will not be published")
		return service.NewNoopEventPublisher(cfg.Log)
	}

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.ReservationEventsTopic, cfg.ReservationEventsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka event publisher initialized",
		"topic", cfg.ReservationEventsTopic,
		"dlq_topic", cfg.ReservationEventsDLQ,
	)
	return service.NewKafkaEventPublisher(producer)
}
