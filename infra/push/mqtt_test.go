package push

import (
	"context"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"

	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/notify"
	"github.com/fieldserve/dispatch/infra/logger"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeClient struct {
	connected  bool
	publishErr error

	topics   []string
	payloads [][]byte
}

func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) Connect() paho.Token {
	f.connected = true
	return &fakeToken{}
}
func (f *fakeClient) Disconnect(uint) { f.connected = false }
func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	return &fakeToken{err: f.publishErr}
}
func (f *fakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return &fakeToken{}
}

type fakeMessage struct{ payload []byte }

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "technicians/responses" }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestGateway(cli *fakeClient, handler ResponseHandler) *Gateway {
	return &Gateway{cli: cli, qos: 1, handler: handler, log: logger.NopLogger{}}
}

func TestSendOffer_PublishesToTechnicianTopic(t *testing.T) {
	cli := &fakeClient{connected: true}
	g := newTestGateway(cli, nil)

	err := g.SendOffer(context.Background(), "tech-1", notify.Offer{JobID: "job-1"})
	if err != nil {
		t.Fatalf("SendOffer: %v", err)
	}
	if assert.Len(t, cli.topics, 1) {
		assert.Equal(t, "technicians/tech-1/offers", cli.topics[0])
	}
	assert.Contains(t, string(cli.payloads[0]), `"job-1"`)
}

func TestSendOffer_PublishFailureIsUndeliverable(t *testing.T) {
	cli := &fakeClient{connected: true, publishErr: errors.New("broker gone")}
	g := newTestGateway(cli, nil)

	err := g.SendOffer(context.Background(), "tech-1", notify.Offer{JobID: "job-1"})
	if !errors.Is(err, notify.ErrUndeliverable) {
		t.Fatalf("expected ErrUndeliverable, got %v", err)
	}
}

func TestOnResponse_DispatchesToHandler(t *testing.T) {
	var gotJob, gotTech string
	var gotKind model.ResponseKind
	g := newTestGateway(&fakeClient{}, func(_ context.Context, jobID, techID string, kind model.ResponseKind, _ time.Time) {
		gotJob, gotTech, gotKind = jobID, techID, kind
	})

	g.onResponse(nil, &fakeMessage{payload: []byte(`{"jobId":"job-1","technicianId":"tech-1","response":"accepted","timestamp":"2026-08-30T10:00:00Z"}`)})

	assert.Equal(t, "job-1", gotJob)
	assert.Equal(t, "tech-1", gotTech)
	assert.Equal(t, model.ResponseAccepted, gotKind)
}

func TestOnResponse_IgnoresGarbage(t *testing.T) {
	called := false
	g := newTestGateway(&fakeClient{}, func(context.Context, string, string, model.ResponseKind, time.Time) {
		called = true
	})

	g.onResponse(nil, &fakeMessage{payload: []byte("not json")})
	g.onResponse(nil, &fakeMessage{payload: []byte(`{"jobId":"job-1","technicianId":"tech-1","response":"maybe"}`)})

	if called {
		t.Fatalf("handler must not run for undecodable or invalid responses")
	}
}

func TestClose_DisconnectsWhenConnected(t *testing.T) {
	cli := &fakeClient{connected: true}
	g := newTestGateway(cli, nil)

	g.Close()
	if cli.connected {
		t.Fatalf("expected a disconnect")
	}
}
