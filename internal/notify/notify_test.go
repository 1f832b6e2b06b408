package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/jordan-wright/email"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	user = models.User{ID: 4, Email: "dana@example.com", Username: "dana"}
	at   = time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC)
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func sampleNudges() []models.Nudge {
	return []models.Nudge{
		{ID: 1, UserID: 4, Kind: models.NudgeCriticalBalance, Message: "Critical: balance low", Trigger: "t1", CreatedAt: at},
		{ID: 2, UserID: 4, Kind: models.NudgeSubscriptionReview, Message: "You have 6 recurring payments", Trigger: "t2", CreatedAt: at},
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "insights.nudges", log: quietLogger()}

	require.NoError(t, p.Notify(context.Background(), user, sampleNudges()))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "4", string(w.msgs[0].Key))
	assert.Equal(t, "critical_balance", string(w.msgs[0].Headers[0].Value))

	var ev NudgeEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &ev))
	assert.Equal(t, int64(2), ev.NudgeID)
	assert.Equal(t, models.NudgeSubscriptionReview, ev.Kind)
	assert.Equal(t, "dana@example.com", ev.Email)
}

func TestKafkaPublisherError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "t", log: quietLogger()}
	err := p.Notify(context.Background(), user, sampleNudges())
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "t", quietLogger())
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", quietLogger())
	assert.Error(t, err)
}

func TestEmailNotifierDigest(t *testing.T) {
	var sent *email.Email
	var sentAddr string
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", Port: "587", SenderEmail: "insights@example.com"}, quietLogger())
	n.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		sent, sentAddr = e, addr
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), user, sampleNudges()))
	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:587", sentAddr)
	assert.Equal(t, []string{"dana@example.com"}, sent.To)
	assert.Equal(t, "Action needed: your balance is running low", sent.Subject)
	assert.Contains(t, string(sent.Text), "Dear dana")
	assert.Contains(t, string(sent.Text), "- You have 6 recurring payments")
}

func TestEmailNotifierSkipsWithoutAddress(t *testing.T) {
	called := false
	n := NewEmailNotifier(SMTPConfig{}, quietLogger())
	n.send = func(*email.Email, string, smtp.Auth) error { called = true; return nil }

	require.NoError(t, n.Notify(context.Background(), models.User{ID: 4}, sampleNudges()))
	require.NoError(t, n.Notify(context.Background(), user, nil))
	assert.False(t, called)
}

type stubNotifier struct {
	name string
	err  error
	got  int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(_ context.Context, _ models.User, nudges []models.Nudge) error {
	s.got += len(nudges)
	return s.err
}

func TestMultiContinuesPastFailures(t *testing.T) {
	bad := &stubNotifier{name: "email", err: errors.New("smtp refused")}
	good := &stubNotifier{name: "kafka"}
	m := NewMulti(bad, nil, good)

	failures := m.Deliver(context.Background(), user, sampleNudges())
	assert.Equal(t, 2, m.Len())
	require.Len(t, failures, 1)
	assert.Equal(t, "email", failures[0].Notifier)
	assert.Equal(t, 2, good.got)
}
