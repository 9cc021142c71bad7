package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

type recWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recWriter) Close() error { w.closed = true; return nil }

func TestPublish_ClaveYCuerpo(t *testing.T) {
	w := &recWriter{}
	p := newPublisher(w, zerolog.Nop())
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), entity.FiscalEvent{
		Type:            entity.EventReceiptFiscalised,
		CompanyID:       "co-1",
		DeviceID:        "dev-1",
		InvoiceID:       "inv-1",
		ReceiptGlobalNo: "1045",
		OccurredAt:      at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "inv-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, entity.EventReceiptFiscalised, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "1045", body["receipt_global_no"])
	assert.Equal(t, "dev-1", body["device_id"])
}

func TestPublish_EventoDeDispositivoUsaSuID(t *testing.T) {
	w := &recWriter{}
	p := newPublisher(w, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), entity.FiscalEvent{Type: entity.EventDayOpened, DeviceID: "dev-9"}))
	assert.Equal(t, "dev-9", string(w.msgs[0].Key))
}

func TestPublish_ErrorDelBroker(t *testing.T) {
	p := newPublisher(&recWriter{err: errors.New("broker caído")}, zerolog.Nop())
	err := p.Publish(context.Background(), entity.FiscalEvent{Type: entity.EventDayClosed, DeviceID: "d"})
	assert.ErrorContains(t, err, "day.closed")
}

func TestClose(t *testing.T) {
	w := &recWriter{}
	require.NoError(t, newPublisher(w, zerolog.Nop()).Close())
	assert.True(t, w.closed)
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), entity.FiscalEvent{}))
}
