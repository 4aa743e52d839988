package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog"
)

type PulsarOptions struct {
	URL   string
	Topic string
	// Name identifies this node; it is used as producer name and as the
	// exclusive subscription name so every node receives every event.
	Name   string
	Logger zerolog.Logger
}

// Pulsar is a Broker publishing to and consuming from a single Pulsar topic.
type Pulsar struct {
	client   pulsar.Client
	producer pulsar.Producer
	consumer pulsar.Consumer
	logger   zerolog.Logger
}

var _ Broker = (*Pulsar)(nil)

func NewPulsar(options PulsarOptions) (*Pulsar, error) {
	if options.URL == "" || options.Topic == "" || options.Name == "" {
		return nil, errors.New("pulsar: url, topic and name are required")
	}

	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: options.URL,
	})
	if err != nil {
		return nil, err
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: options.Topic,
		Name:  options.Name,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            options.Topic,
		SubscriptionName: options.Name,
		Type:             pulsar.Exclusive,
	})
	if err != nil {
		producer.Close()
		client.Close()
		return nil, err
	}

	return &Pulsar{
		client:   client,
		producer: producer,
		consumer: consumer,
		logger:   options.Logger,
	}, nil
}

func (p *Pulsar) Send(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Key:     event.ListID,
		Payload: payload,
	})

	return err
}

func (p *Pulsar) Start(ctx context.Context, handle func(*Event)) {
	for {
		msg, err := p.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).Msg("pulsar receive failed")
			time.Sleep(time.Second)
			continue
		}

		p.consumer.Ack(msg)

		var event Event
		if err := json.Unmarshal(msg.Payload(), &event); err != nil {
			p.logger.Warn().Err(err).Msg("pulsar message is not an event")
			continue
		}

		handle(&event)
	}
}

func (p *Pulsar) Close() {
	p.producer.Close()
	p.consumer.Close()
	p.client.Close()
}
