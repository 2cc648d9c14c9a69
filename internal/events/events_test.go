package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"github.com/gometeo/weatherapp/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleObservation() model.Observation {
	return model.Observation{
		ID:          "3b241101-e2bb-4255-8caf-4136c566a962",
		City:        "London",
		Temp:        15,
		ConditionID: 800,
		Condition:   model.IconClear,
		Query:       "q=London",
		Provider:    "OpenWeatherMap",
		Timestamp:   time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var obs model.Observation
		if err := json.Unmarshal(val, &obs); err != nil {
			return err
		}
		if obs.City != "London" || obs.ConditionID != 800 {
			return errors.New("unexpected observation payload")
		}
		return nil
	})

	pub := NewPublisherWithProducer(producer, "", discardLogger())
	require.NoError(t, pub.Publish(context.Background(), sampleObservation()))
	require.NoError(t, pub.Close())
}

func TestPublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewPublisherWithProducer(producer, "weather_data", discardLogger())
	err := pub.Publish(context.Background(), sampleObservation())
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestPublishCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, "weather_data", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, pub.Publish(ctx, sampleObservation()), context.Canceled)
	require.NoError(t, pub.Close())
}

type fakeStore struct {
	saved []model.Observation
	errs  []error
	calls int
}

// Save возвращает ошибки из errs по очереди, затем сохраняет.
func (s *fakeStore) Save(_ context.Context, obs model.Observation) error {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	s.saved = append(s.saved, obs)
	return nil
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	// Коммитится offset следующего сообщения
	s.marked = append(s.marked, msg.Offset+1)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func newFakeClaim(t *testing.T, observations ...model.Observation) *fakeClaim {
	t.Helper()
	c := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(observations))}
	for i, obs := range observations {
		payload, err := json.Marshal(obs)
		require.NoError(t, err)
		c.messages <- &sarama.ConsumerMessage{Topic: DefaultTopic, Offset: int64(i), Value: payload}
	}
	close(c.messages)
	return c
}

func (c *fakeClaim) Topic() string                            { return DefaultTopic }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return int64(cap(c.messages)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestHandleSavesObservation(t *testing.T) {
	store := &fakeStore{}
	h := NewConsumerHandler(store, discardLogger())

	payload, err := json.Marshal(sampleObservation())
	require.NoError(t, err)

	require.NoError(t, h.handle(context.Background(), payload))
	require.Len(t, store.saved, 1)
	require.Equal(t, sampleObservation(), store.saved[0])
}

func TestHandleBrokenJSONIsMarked(t *testing.T) {
	store := &fakeStore{}
	h := NewConsumerHandler(store, discardLogger())

	require.NoError(t, h.handle(context.Background(), []byte(`{"city":`)))
	require.NoError(t, h.handle(context.Background(), []byte(`{"city":"London"}`)))
	require.Empty(t, store.saved)
}

func TestHandleStoreFailureIsReturned(t *testing.T) {
	store := &fakeStore{errs: []error{errors.New("db down")}}
	h := NewConsumerHandler(store, discardLogger())

	payload, err := json.Marshal(sampleObservation())
	require.NoError(t, err)

	require.EqualError(t, h.handle(context.Background(), payload), "db down")
}

func TestConsumeClaimStopsBeforeFailedMessage(t *testing.T) {
	first := sampleObservation()
	second := sampleObservation()
	second.ID = "9c5b94b1-35ad-49bb-b118-8e8fc24abf80"
	second.City = "Paris"

	store := &fakeStore{errs: []error{errors.New("db down")}}
	h := NewConsumerHandler(store, discardLogger())
	h.retryDelay = 0

	sess := &fakeSession{ctx: context.Background()}
	err := h.ConsumeClaim(sess, newFakeClaim(t, first, second))
	require.ErrorContains(t, err, "offset 0")
	require.Equal(t, 1, store.calls)
	require.Empty(t, sess.marked)

	// Новая сессия начинает с последнего закоммиченного offset
	retry := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(retry, newFakeClaim(t, first, second)))
	require.Equal(t, []int64{1, 2}, retry.marked)
	require.Equal(t, []model.Observation{first, second}, store.saved)
}

func TestConsumeClaimBackoffRespectsSession(t *testing.T) {
	store := &fakeStore{errs: []error{errors.New("db down")}}
	h := NewConsumerHandler(store, discardLogger())
	h.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := &fakeSession{ctx: ctx}
	require.Error(t, h.ConsumeClaim(sess, newFakeClaim(t, sampleObservation())))
	require.Empty(t, sess.marked)
}
