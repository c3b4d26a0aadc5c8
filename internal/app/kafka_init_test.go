package app

import (
	"errors"
	"testing"

	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/audiophile/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/audiophile/internal/version"
)

type producerCall struct {
	brokers  []string
	clientID string
}

// stubKafkaProducer подменяет создание producer на mock и записывает аргументы.
func stubKafkaProducer(t *testing.T, failErr error) *[]producerCall {
	t.Helper()
	original := newKafkaProducer
	t.Cleanup(func() { newKafkaProducer = original })

	var calls []producerCall
	newKafkaProducer = func(brokers []string, clientID string) (*kafka.Producer, error) {
		calls = append(calls, producerCall{brokers: brokers, clientID: clientID})
		if failErr != nil {
			return nil, failErr
		}
		return kafka.NewProducerFromSync(mocks.NewSyncProducer(t, nil), nil), nil
	}
	return &calls
}

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	calls := stubKafkaProducer(t, nil)
	logger := log.WithField("test", "kafka")

	for _, brokers := range []string{"", "   ", " , ,\t"} {
		producer, err := initKafkaProducer(brokers, logger)
		require.NoError(t, err, "brokers %q", brokers)
		require.Nil(t, producer, "brokers %q", brokers)
	}
	require.Empty(t, *calls, "producer must not be created without brokers")
}

func TestInitKafkaProducer_TrimsBrokersAndSetsClientID(t *testing.T) {
	calls := stubKafkaProducer(t, nil)
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer(" broker1:9092, broker2:9092 ,,broker3:9092 ", logger)
	require.NoError(t, err)
	require.NotNil(t, producer)
	t.Cleanup(func() { _ = producer.Close() })

	require.Len(t, *calls, 1)
	require.Equal(t, []string{"broker1:9092", "broker2:9092", "broker3:9092"}, (*calls)[0].brokers)
	require.Equal(t, version.UserAgent("storefront"), (*calls)[0].clientID)
}

func TestInitKafkaProducer_CreateFailure(t *testing.T) {
	errDial := errors.New("kafka: client has run out of available brokers")
	stubKafkaProducer(t, errDial)
	logger, hook := test.NewNullLogger()

	producer, err := initKafkaProducer("invalid-broker:9999", log.NewEntry(logger))
	require.ErrorIs(t, err, errDial)
	require.Nil(t, producer)
	require.Equal(t, log.WarnLevel, hook.LastEntry().Level)
}

func TestCloseKafka(t *testing.T) {
	logger, hook := test.NewNullLogger()
	entry := log.NewEntry(logger)

	closeKafka(nil, entry)
	require.Empty(t, hook.AllEntries(), "nil producer is ignored")

	closeKafka(kafka.NewProducerFromSync(mocks.NewSyncProducer(t, nil), nil), entry)
	require.Equal(t, "kafka producer closed", hook.LastEntry().Message)
}
