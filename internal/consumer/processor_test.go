package consumer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func syncBatchMessage(offset int64, body string) kafka.Message {
	return kafka.Message{
		Topic:     "workout_session_sync",
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Key:       []byte("user-1"),
		Value:     []byte(body),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("session.sync_batch")},
		},
	}
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := `{"batch_id":"b-1","sessions":[]}`
	reader := &stubReader{messages: []kafka.Message{syncBatchMessage(10, payload)}}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(quietLogger()))

	err := processor.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "session.sync_batch", handler.last.EventType)
	require.Equal(t, "user-1", handler.last.Key)
	require.Equal(t, int64(10), handler.last.Offset)
	require.JSONEq(t, payload, string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{syncBatchMessage(20, `{"sessions":[]}`)}}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(quietLogger()))

	err := processor.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsUndecodableMessages(t *testing.T) {
	missingHeader := syncBatchMessage(30, `{"sessions":[]}`)
	missingHeader.Headers = nil

	reader := &stubReader{messages: []kafka.Message{
		syncBatchMessage(31, `{not json`),
		syncBatchMessage(32, ``),
		missingHeader,
	}}
	handler := &stubHandler{}
	decodeErrors := messagesCounter.WithLabelValues("workout_session_sync", outcomeDecodeError)
	before := testutil.ToFloat64(decodeErrors)

	processor := NewProcessor(reader, handler, WithLogger(quietLogger()))

	err := processor.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
	require.Equal(t, before+3, testutil.ToFloat64(decodeErrors))
}

func TestProcessorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &stubReader{messages: []kafka.Message{syncBatchMessage(1, `{}`)}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, handler.calls)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
