package sio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/signal"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(ctx context.Context) *signal.Env {
	return &signal.Env{
		Ctx:       ctx,
		Scheduler: signal.NewScheduler(),
	}
}

// await ticks the scheduler until the signal has a value that
// satisfies ok.
func await(t *testing.T, env *signal.Env, s *signal.Signal, ok func(core.Value) bool) core.Value {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		env.Scheduler.Tick(10 * time.Millisecond)
		if v, have := s.Last(); have && ok(v) {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("signal %s timed out", s.Name)
	return core.Value{}
}

func TestHTTPProvider(t *testing.T) {
	var n int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"sensor":{"temp":%d}}`, atomic.AddInt64(&n, 1))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testEnv(ctx)

	p, err := NewHTTPProvider()
	require.NoError(t, err)
	s, err := p.Make(env, &core.SignalSpec{
		Name:   "temp",
		Source: "http",
		Target: srv.URL,
		Params: map[string]interface{}{
			"interval": "20ms",
			"property": "sensor.temp",
		},
	})
	require.NoError(t, err)
	defer s.Close()

	v := await(t, env, s, func(v core.Value) bool {
		return v.Kind == core.Number && 2 <= v.N
	})
	assert.Equal(t, core.Number, v.Kind)
}

func TestHTTPProviderBad(t *testing.T) {
	env := testEnv(context.Background())
	p, err := NewHTTPProvider()
	require.NoError(t, err)

	var bad *core.BadMorph
	_, err = p.Make(env, &core.SignalSpec{Name: "x", Source: "http"})
	assert.True(t, errors.As(err, &bad))

	_, err = p.Make(env, &core.SignalSpec{
		Name:   "x",
		Source: "http",
		Target: "http://localhost/",
		Params: map[string]interface{}{"interval": "often"},
	})
	assert.True(t, errors.As(err, &bad))
}

func TestPayloadValue(t *testing.T) {
	v, err := payloadValue([]byte(`{"a":{"b":true}}`), core.SplitPath("a.b"))
	require.NoError(t, err)
	assert.Equal(t, core.BoolValue(true), v)

	v, err = payloadValue([]byte(`hello`), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StringValue("hello"), v)

	v, err = payloadValue([]byte(`{"a":1}`), core.SplitPath("b"))
	require.NoError(t, err)
	assert.Equal(t, core.Value{}, v)

	_, err = payloadValue([]byte(`{"a":1}`), nil)
	assert.Error(t, err)
}

type token struct {
	mqtt.Token
}

func (t token) Wait() bool                     { return true }
func (t token) WaitTimeout(time.Duration) bool { return true }
func (t token) Error() error                   { return nil }

type message struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *message) Topic() string   { return m.topic }
func (m *message) Payload() []byte { return m.payload }

type client struct {
	handlers     map[string]mqtt.MessageHandler
	qos          map[string]byte
	unsubscribed []string
}

func (c *client) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	c.handlers[topic] = cb
	c.qos[topic] = qos
	return token{}
}

func (c *client) Unsubscribe(topics ...string) mqtt.Token {
	c.unsubscribed = append(c.unsubscribed, topics...)
	return token{}
}

func (c *client) publish(topic, payload string) {
	if h, have := c.handlers[topic]; have {
		h(nil, &message{topic: topic, payload: []byte(payload)})
	}
}

func TestMQTTProvider(t *testing.T) {
	c := &client{
		handlers: make(map[string]mqtt.MessageHandler),
		qos:      make(map[string]byte),
	}
	p := &MQTTProvider{
		Client:     c,
		SubTimeout: time.Second,
	}
	env := testEnv(context.Background())

	s, err := p.Make(env, &core.SignalSpec{
		Name:   "grab",
		Source: "mqtt",
		Target: "vis/grab:1",
		Value:  false,
		Params: map[string]interface{}{"property": "on"},
	})
	require.NoError(t, err)

	assert.Equal(t, byte(1), c.qos["vis/grab"])
	v, have := s.Last()
	require.True(t, have)
	assert.Equal(t, core.BoolValue(false), v)

	c.publish("vis/grab", `{"on":true}`)
	// Nothing until the next frame.
	v, _ = s.Last()
	assert.Equal(t, core.BoolValue(false), v)
	env.Scheduler.Tick(time.Millisecond)
	v, _ = s.Last()
	assert.Equal(t, core.BoolValue(true), v)

	s.Close()
	assert.Equal(t, []string{"vis/grab"}, c.unsubscribed)
}

func TestMQTTProviderBad(t *testing.T) {
	p := &MQTTProvider{}
	env := testEnv(context.Background())
	var bad *core.BadMorph

	_, err := p.Make(env, &core.SignalSpec{Name: "x", Source: "mqtt"})
	assert.True(t, errors.As(err, &bad))

	_, err = p.Make(env, &core.SignalSpec{
		Name:   "x",
		Source: "mqtt",
		Target: "t",
		Params: map[string]interface{}{"qos": 3.0},
	})
	assert.True(t, errors.As(err, &bad))
}

func TestParseTopic(t *testing.T) {
	for _, c := range []struct {
		in    string
		topic string
		qos   byte
	}{
		{"a/b", "a/b", 0},
		{"a/b:2", "a/b", 2},
		{"a/b:9", "a/b:9", 0},
		{"a:b", "a:b", 0},
	} {
		topic, qos := parseTopic(c.in)
		assert.Equal(t, c.topic, topic, c.in)
		assert.Equal(t, c.qos, qos, c.in)
	}
}

func TestCronProvider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testEnv(ctx)

	p := &CronProvider{}
	s, err := p.Make(env, &core.SignalSpec{
		Name:   "tick",
		Source: "cron",
		Target: "* * * * * * *",
		Params: map[string]interface{}{"hold": "50ms"},
	})
	require.NoError(t, err)
	defer s.Close()

	v, have := s.Last()
	require.True(t, have)
	assert.Equal(t, core.BoolValue(false), v)

	await(t, env, s, core.Value.Truthy)
	await(t, env, s, func(v core.Value) bool {
		return !v.Truthy()
	})
}

func TestCronProviderBad(t *testing.T) {
	p := &CronProvider{}
	env := testEnv(context.Background())
	var bad *core.BadMorph

	_, err := p.Make(env, &core.SignalSpec{Name: "x", Source: "cron", Target: "whenever"})
	assert.True(t, errors.As(err, &bad))

	_, err = p.Make(env, &core.SignalSpec{
		Name:   "x",
		Source: "cron",
		Target: "* * * * *",
		Params: map[string]interface{}{"hold": "-1s"},
	})
	assert.True(t, errors.As(err, &bad))
}
