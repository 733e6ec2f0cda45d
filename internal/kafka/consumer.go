package kafka

import (
	"bytes"
	"context"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// Consumer читает команды камер из топика через Sarama ConsumerGroup.
// Значение каждого сообщения - команда в том же формате, что и в FIFO.
type Consumer struct {
	group     sarama.ConsumerGroup
	topic     string
	messages  chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

// Message содержит команду и сессию для подтверждения
type Message struct {
	Value   []byte
	Session sarama.ConsumerGroupSession
	Message *sarama.ConsumerMessage
}

// Ack помечает сообщение как обработанное. Вызывается только после того,
// как команда попала в очередь.
func (m Message) Ack() {
	if m.Session == nil || m.Message == nil {
		return
	}
	m.Session.MarkMessage(m.Message, "")
}

// NewConsumer создаёт и возвращает новый Consumer
func NewConsumer(brokers []string, groupID, topic string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.ClientID = clientID
	// Старые команды камерам не нужны: новая группа начинает с конца топика
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:    group,
		topic:    topic,
		messages: make(chan Message),
		closed:   make(chan struct{}),
	}, nil
}

// StartListening запускает асинхронное потребление сообщений
func (c *Consumer) StartListening(ctx context.Context) {
	handler := &consumerGroupHandler{
		messages: c.messages,
		closed:   c.closed,
	}

	go func() {
		defer close(c.messages)

		retryDelay := time.Second * 5
		for {
			select {
			case <-ctx.Done():
				log.Println("Consumer: context cancelled, stopping")
				return
			default:
				log.Printf("Consumer: consuming commands from %s", c.topic)
				err := c.group.Consume(ctx, []string{c.topic}, handler)
				if err != nil {
					log.Printf("Consume error: %v, retrying in %v", err, retryDelay)
					select {
					case <-ctx.Done():
						return
					case <-time.After(retryDelay):
					}
					continue
				}

				if ctx.Err() != nil {
					return
				}
			}
		}
	}()
}

// Close останавливает потребитель и освобождает ресурсы
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.group.Close()
	})
	return err
}

// Messages возвращает канал команд. Канал закрывается при остановке.
func (c *Consumer) Messages() <-chan Message {
	return c.messages
}

// consumerGroupHandler реализует интерфейс sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	messages chan<- Message
	closed   <-chan struct{}
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if len(bytes.TrimSpace(msg.Value)) == 0 {
				// Пустая команда: подтверждаем и пропускаем
				sess.MarkMessage(msg, "")
				continue
			}
			select {
			case h.messages <- Message{
				Value:   msg.Value,
				Session: sess,
				Message: msg,
			}:
				// Подтверждение после постановки команды в очередь
			case <-sess.Context().Done():
				return nil
			case <-h.closed:
				return nil
			}
		case <-sess.Context().Done():
			return nil
		case <-h.closed:
			return nil
		}
	}
}
