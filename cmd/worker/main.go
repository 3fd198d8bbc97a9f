// Worker consumes OTP delivery events from Kafka and sends the mail over
// SMTP. Set KAFKA_BROKERS, OTP_DELIVERY_TOPIC, KAFKA_GROUP_ID, and the SMTP_*
// settings.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-platform/backend/internal/config"
	"chat-platform/backend/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.SMTPHost == "" {
		log.Fatal("worker: SMTP_HOST is required")
	}

	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	reader := notify.NewDeliveryReader(brokers, cfg.OTPDeliveryTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s)", cfg.OTPDeliveryTopic, cfg.KafkaGroupID)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		var delivery notify.CodeDelivery
		if err := json.Unmarshal(msg.Value, &delivery); err != nil {
			log.Printf("worker: bad delivery payload at offset %d: %v", msg.Offset, err)
			continue
		}

		sendCtx, sendCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := mailer.Send(sendCtx, delivery); err != nil {
			log.Printf("worker: send to %s failed: %v", delivery.Email, err)
		}
		sendCancel()
	}
}
