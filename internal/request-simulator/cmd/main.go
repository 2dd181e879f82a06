package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/legray/internal/logging"
	"github.com/LeonardoBeccarini/legray/internal/model/entities"
	requestSimulator "github.com/LeonardoBeccarini/legray/internal/request-simulator"
	"github.com/LeonardoBeccarini/legray/pkg/rabbitmq"
)

func main() {
	fieldID := flag.String("field-id", "field1", "field identifier")
	soil := flag.String("soil", "loam", "soil texture")
	clientID := flag.String("client-id", "legray-request-sim", "MQTT client ID")
	host := flag.String("host", "localhost", "MQTT broker host")
	port := flag.Int("port", 1883, "MQTT broker port")
	user := flag.String("user", "guest", "MQTT user")
	password := flag.String("password", "guest", "MQTT password")
	interval := flag.Duration("interval", 30*time.Second, "publish interval")
	lat := flag.Float64("lat", 52.5, "latitude used for radiation")
	start := flag.String("start", "2001-01-01", "first simulated day")
	days := flag.Int("days", 365, "days per request")
	seed := flag.Int64("seed", time.Now().UnixNano(), "weather generator seed")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	log := logging.Must("request-sim", *debug)
	defer log.Sync()

	from, err := entities.ParseDate(*start)
	if err != nil {
		log.Fatalf("start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := rabbitmq.RabbitMQConfig{
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *password,
		ClientID: *clientID,
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, cfg, log)
	if err != nil {
		log.Fatal(err)
	}

	publisher := rabbitmq.NewPublisher(client, 1)
	consumer := rabbitmq.NewConsumer(client, "legray/result/"+*fieldID, nil, log)
	sim := requestSimulator.NewRequestSimulator(requestSimulator.Config{
		FieldID: *fieldID,
		Soil:    *soil,
		Start:   from,
		Days:    *days,
	}, consumer, publisher, requestSimulator.NewWeatherGenerator(*lat, *seed), log)

	sim.Start(ctx, *interval)
}
