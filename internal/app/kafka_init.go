package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/audiophile/internal/version"
)

var newKafkaProducer = kafka.NewProducer

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если в brokers нет ни одного адреса.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := Config{KafkaBrokers: brokers}.KafkaBrokerList()
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := newKafkaProducer(brokerList, version.UserAgent("storefront"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
