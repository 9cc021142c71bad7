// Package kafka publica los eventos fiscales (día abierto/cerrado, recibo fiscalizado) en Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

const writeTimeout = 5 * time.Second

var (
	_ fiscal.EventPublisher = (*Publisher)(nil)
	_ fiscal.EventPublisher = NoopPublisher{}
)

// messageWriter subconjunto de *kafka.Writer usado por el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher escribe cada evento como JSON con clave = factura o dispositivo,
// de modo que los eventos de un mismo recurso mantengan el orden en la partición.
type Publisher struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewPublisher construye el publicador sobre los brokers y el tópico dados.
func NewPublisher(brokers []string, topic string, log zerolog.Logger) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, log)
}

func newPublisher(w messageWriter, log zerolog.Logger) *Publisher {
	return &Publisher{writer: w, log: log}
}

// Publish envía el evento. El contexto de la operación puede estar por vencer, así que
// la escritura usa su propio plazo.
func (p *Publisher) Publish(ctx context.Context, ev entity.FiscalEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: serializar evento: %w", err)
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(wctx, kafka.Message{
		Key:   []byte(ev.Key()),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}); err != nil {
		return fmt.Errorf("kafka: publicar %s: %w", ev.Type, err)
	}
	p.log.Debug().Str("event", ev.Type).Str("key", ev.Key()).Msg("evento publicado")
	return nil
}

// Close vacía y cierra el writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher descarta los eventos (sin brokers configurados).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, entity.FiscalEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
