package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/metrics"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeBroker is an in-memory mqtt.Client routing publishes to matching subscriptions
type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	subs      map[string]mqtt.MessageHandler
	published []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, subs: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) IsConnected() bool      { return b.connected }
func (b *fakeBroker) IsConnectionOpen() bool { return b.connected }
func (b *fakeBroker) Connect() mqtt.Token    { return doneToken{} }
func (b *fakeBroker) Disconnect(uint)        { b.connected = false }

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	b.published = append(b.published, topic)
	var targets []mqtt.MessageHandler
	for pattern, h := range b.subs {
		if topicMatch(pattern, topic) {
			targets = append(targets, h)
		}
	}
	b.mu.Unlock()

	data, _ := payload.([]byte)
	for _, h := range targets {
		go h(b, fakeMessage{topic: topic, payload: data})
	}
	return doneToken{}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.subs[topic] = callback
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic := range filters {
		b.Subscribe(topic, 0, callback)
	}
	return doneToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	for _, t := range topics {
		delete(b.subs, t)
	}
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) AddRoute(string, mqtt.MessageHandler) {}

func (b *fakeBroker) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (b *fakeBroker) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[topic]
	return ok
}

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern, topic string
		want           bool
	}{
		{"helperbot/request/bot/stats", "helperbot/request/bot/stats", true},
		{"helperbot/request/+/stats", "helperbot/request/bot/stats", true},
		{"helperbot/request/#", "helperbot/request/tags/list", true},
		{"helperbot/request/#", "helperbot/request", false},
		{"helperbot/+", "helperbot/request/bot", false},
		{"helperbot/request/bot", "helperbot/request/bot/stats", false},
		{"helperbot/request/bot/stats", "helperbot/request/bot", false},
	}

	for _, tt := range tests {
		if got := topicMatch(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("topicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestTopicNames(t *testing.T) {
	mc := newCommunicator(nil, "pruebas/", "test")

	if got := mc.requestTopic("bot/stats"); got != "pruebas/request/bot/stats" {
		t.Errorf("requestTopic = %q", got)
	}
	if got := mc.responseTopic("bot/stats", "abc"); got != "pruebas/response/bot/stats/abc" {
		t.Errorf("responseTopic = %q", got)
	}
	if got := mc.EventTopic("command"); got != "pruebas/events/command" {
		t.Errorf("EventTopic = %q", got)
	}

	if got := newCommunicator(nil, "", "test").requestTopic("x"); got != "helperbot/request/x" {
		t.Errorf("default prefix topic = %q", got)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	broker := newFakeBroker()
	mc := newCommunicator(broker, "helperbot", "test")
	m := metrics.New()
	mc.SetMetrics(m)

	type statsRequest struct {
		Detailed bool `json:"detailed"`
	}
	err := mc.On("bot/stats", func(req Request) (interface{}, error) {
		var in statsRequest
		if err := req.Bind(&in); err != nil {
			return nil, err
		}
		return map[string]interface{}{"guilds": 3, "detailed": in.Detailed, "topic": req.Topic}, nil
	})
	if err != nil {
		t.Fatalf("On returned error: %v", err)
	}

	var out struct {
		Guilds   int    `json:"guilds"`
		Detailed bool   `json:"detailed"`
		Topic    string `json:"topic"`
	}
	if err := mc.Request("bot/stats", statsRequest{Detailed: true}, time.Second, &out); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if out.Guilds != 3 || !out.Detailed || out.Topic != "bot/stats" {
		t.Errorf("unexpected response %+v", out)
	}

	if got := testutil.ToFloat64(m.MQTTRequestsTotal.WithLabelValues("bot/stats", metrics.OutcomeOK)); got != 1 {
		t.Errorf("expected 1 ok request, got %v", got)
	}
}

func TestRequestHandlerError(t *testing.T) {
	broker := newFakeBroker()
	mc := newCommunicator(broker, "helperbot", "test")

	mc.On("tags/list", func(req Request) (interface{}, error) {
		return nil, errors.New("guild requerido")
	})

	err := mc.Request("tags/list", nil, time.Second, nil)
	if err == nil || err.Error() != "guild requerido" {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestRequestHandlerPanic(t *testing.T) {
	broker := newFakeBroker()
	mc := newCommunicator(broker, "helperbot", "test")

	mc.On("bot/boom", func(req Request) (interface{}, error) {
		panic("boom")
	})

	if err := mc.Request("bot/boom", nil, time.Second, nil); err == nil {
		t.Error("expected error after handler panic")
	}
}

func TestRequestTimeout(t *testing.T) {
	broker := newFakeBroker()
	mc := newCommunicator(broker, "helperbot", "test")

	err := mc.Request("nadie/escucha", nil, 20*time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	broker.mu.Lock()
	left := len(broker.subs)
	broker.mu.Unlock()
	if left != 0 {
		t.Errorf("response subscription should be removed, %d left", left)
	}
}

func TestNotConnected(t *testing.T) {
	broker := newFakeBroker()
	broker.connected = false
	mc := newCommunicator(broker, "helperbot", "test")

	if err := mc.Publish("x", 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish error = %v", err)
	}
	if err := mc.Request("x", nil, time.Second, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Request error = %v", err)
	}
	if err := mc.PublishEvent("command", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishEvent error = %v", err)
	}
}

func TestResubscribe(t *testing.T) {
	broker := newFakeBroker()
	mc := newCommunicator(broker, "helperbot", "test")
	mc.On("bot/stats", func(req Request) (interface{}, error) { return nil, nil })

	broker.Unsubscribe("helperbot/request/bot/stats")
	mc.resubscribe()

	if !broker.subscribed("helperbot/request/bot/stats") {
		t.Error("route should be subscribed again after reconnect")
	}

	mc.Unsubscribe("helperbot/request/bot/stats")
	mc.resubscribe()
	if broker.subscribed("helperbot/request/bot/stats") {
		t.Error("unsubscribed route should not come back")
	}
}
