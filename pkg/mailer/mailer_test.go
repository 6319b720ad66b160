package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"library_service/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	mu    sync.Mutex
	fail  bool
	sent  []Message
	tries int
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tries++
	if f.fail {
		return errors.New("relay unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func testOptions() DispatcherOptions {
	return DispatcherOptions{
		MaxAttempts:   3,
		BaseDelay:     0,
		DrainInterval: 10 * time.Millisecond,
		MaxFailures:   100,
		OpenTimeout:   time.Hour,
	}
}

func TestDispatcherSendsImmediately(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, zap.NewNop(), testOptions())

	err := d.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", Body: "code"})
	require.NoError(t, err)

	assert.Len(t, sender.sent, 1)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcherQueuesAndRetries(t *testing.T) {
	sender := &fakeSender{fail: true}
	d := NewDispatcher(sender, zap.NewNop(), testOptions())

	require.NoError(t, d.Send(context.Background(), Message{To: "a@example.com"}))
	assert.Equal(t, 1, d.Pending())

	sender.setFail(false)
	d.Drain(context.Background())

	assert.Equal(t, 0, d.Pending())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@example.com", sender.sent[0].To)
}

func TestDispatcherDropsAfterMaxAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := &fakeSender{fail: true}
	d := NewDispatcher(sender, zap.New(core), testOptions())

	require.NoError(t, d.Send(context.Background(), Message{To: "a@example.com"}))
	d.Drain(context.Background())

	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 3, sender.tries)
	assert.Equal(t, 1, logs.FilterMessage("mail dropped after retries").Len())
}

func TestDispatcherKeepsItemsUntilDue(t *testing.T) {
	sender := &fakeSender{fail: true}
	opts := testOptions()
	opts.BaseDelay = time.Hour
	d := NewDispatcher(sender, zap.NewNop(), opts)

	require.NoError(t, d.Send(context.Background(), Message{To: "a@example.com"}))
	d.Drain(context.Background())

	assert.Equal(t, 1, sender.tries)
	assert.Equal(t, 1, d.Pending())
}

func TestDispatcherStopsCallingSenderWhenBreakerOpens(t *testing.T) {
	sender := &fakeSender{fail: true}
	opts := testOptions()
	opts.MaxFailures = 0
	d := NewDispatcher(sender, zap.NewNop(), opts)

	require.NoError(t, d.Send(context.Background(), Message{To: "a@example.com"}))
	require.NoError(t, d.Send(context.Background(), Message{To: "b@example.com"}))

	assert.Equal(t, 1, sender.tries)
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, circuitbreaker.StateOpen, d.BreakerState())
}

func TestDispatcherRunStopsOnCancel(t *testing.T) {
	sender := &fakeSender{fail: true}
	d := NewDispatcher(sender, zap.NewNop(), testOptions())
	require.NoError(t, d.Send(context.Background(), Message{To: "a@example.com"}))
	sender.setFail(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewLogSender(zap.New(core))

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "Code", Body: "123456"}))

	entries := logs.FilterMessage("mail").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@example.com", entries[0].ContextMap()["to"])
	assert.Equal(t, "123456", entries[0].ContextMap()["body"])
}

func TestSMTPSender(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "library@example.com"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	err := sender.Send(context.Background(), Message{To: "a@example.com", Subject: "Code", Body: "123456"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, "library@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Code\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\n123456")
}

func TestSMTPSenderErrors(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 25, User: "u", Password: "p"})
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := sender.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorContains(t, err, "connection refused")

	err = sender.Send(context.Background(), Message{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}
