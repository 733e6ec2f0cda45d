package kafka

import (
	"fmt"
	"strconv"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const clientID = "camd"

// Producer публикует статусы камер
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer создаёт продюсер с настройками
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return newProducer(producer, topic), nil
}

func newProducer(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
	}
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// SendStatus отправляет статус камеры. Ключ - номер слота, чтобы статусы
// одной камеры шли в одну партицию по порядку.
func (p *Producer) SendStatus(event models.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(event.Camera)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send status of camera %d: %w", event.Camera, err)
	}
	return nil
}
