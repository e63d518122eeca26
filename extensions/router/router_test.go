package router

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/mqttlite"
)

func accept(topics *[]string) Handler {
	return func(msg *mqttlite.Message) bool {
		*topics = append(*topics, msg.Topic)
		return true
	}
}

func TestRouterHandle(t *testing.T) {
	r := New()

	var called bool
	r.Handle(func(_ *mqttlite.Message) bool {
		called = true
		return true
	}, WithTopic("test/topic"))

	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Route(&mqttlite.Message{Topic: "test/topic"}))
	assert.True(t, called)
}

func TestRouterTopicFilters(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		topics  []string
		matched []string
	}{
		{
			name:    "exact",
			filter:  "sensors/temperature",
			topics:  []string{"sensors/temperature", "sensors/humidity"},
			matched: []string{"sensors/temperature"},
		},
		{
			name:    "single level",
			filter:  "sensors/+/value",
			topics:  []string{"sensors/temp/value", "sensors/humidity/value", "sensors/temp/other"},
			matched: []string{"sensors/temp/value", "sensors/humidity/value"},
		},
		{
			name:    "multi level",
			filter:  "sensors/#",
			topics:  []string{"sensors", "sensors/temp", "sensors/a/b/c", "other/topic"},
			matched: []string{"sensors", "sensors/temp", "sensors/a/b/c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			var got []string
			r.Handle(accept(&got), WithTopic(tt.filter))

			for _, topic := range tt.topics {
				r.Route(&mqttlite.Message{Topic: topic})
			}
			assert.Equal(t, tt.matched, got)
		})
	}
}

func TestRouterAcceptance(t *testing.T) {
	r := New()
	r.Handle(func(_ *mqttlite.Message) bool { return true }, WithTopic("a/#"))
	r.Handle(func(_ *mqttlite.Message) bool { return false }, WithTopic("a/b"))

	assert.True(t, r.Route(&mqttlite.Message{Topic: "a/c"}))
	assert.False(t, r.Route(&mqttlite.Message{Topic: "a/b"}), "one refusing handler refuses the message")
}

func TestRouterUnmatched(t *testing.T) {
	r := New()
	r.Handle(func(_ *mqttlite.Message) bool { return true }, WithTopic("a"))

	assert.True(t, r.Route(&mqttlite.Message{Topic: "b"}), "accepted without unmatched handler")

	var seen string
	r.HandleUnmatched(func(msg *mqttlite.Message) bool {
		seen = msg.Topic
		return false
	})
	assert.False(t, r.Route(&mqttlite.Message{Topic: "b"}))
	assert.Equal(t, "b", seen)
}

func TestRouterNilMessage(t *testing.T) {
	r := New()
	var called bool
	r.Handle(func(_ *mqttlite.Message) bool {
		called = true
		return true
	})

	assert.False(t, r.Route(nil))
	assert.False(t, called)
}

func TestRouterFilters(t *testing.T) {
	r := New()
	noop := func(_ *mqttlite.Message) bool { return true }
	r.Handle(noop, WithTopic("a/+"))
	r.Handle(noop, WithTopic("b/#"))
	r.Handle(noop, WithTopic("a/+"))
	r.Handle(noop, WithQoS(1))

	assert.Equal(t, []string{"a/+", "b/#"}, r.Filters())
	assert.Equal(t, []mqttlite.Subscription{
		{TopicFilter: "a/+", QoS: 1},
		{TopicFilter: "b/#", QoS: 1},
	}, r.Subscriptions(1))
}

func TestRouterClear(t *testing.T) {
	r := New()
	r.Handle(func(_ *mqttlite.Message) bool { return true }, WithTopic("a"))
	r.HandleUnmatched(func(_ *mqttlite.Message) bool { return false })

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.Route(&mqttlite.Message{Topic: "a"}))
}

func TestRouterConditions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []ConditionOption
		msg   mqttlite.Message
		match bool
	}{
		{"qos match", []ConditionOption{WithQoS(1)}, mqttlite.Message{QoS: 1}, true},
		{"qos mismatch", []ConditionOption{WithQoS(1)}, mqttlite.Message{QoS: 0}, false},
		{"retain match", []ConditionOption{WithRetain(true)}, mqttlite.Message{Retain: true}, true},
		{"retain mismatch", []ConditionOption{WithRetain(true)}, mqttlite.Message{}, false},
		{
			"content type",
			[]ConditionOption{WithContentType(regexp.MustCompile(`^application/json`))},
			mqttlite.Message{ContentType: "application/json; charset=utf-8"},
			true,
		},
		{
			"content type mismatch",
			[]ConditionOption{WithContentType(regexp.MustCompile(`^application/json`))},
			mqttlite.Message{ContentType: "text/plain"},
			false,
		},
		{
			"response topic",
			[]ConditionOption{WithResponseTopic(regexp.MustCompile(`^reply/`))},
			mqttlite.Message{ResponseTopic: "reply/42"},
			true,
		},
		{
			"user property",
			[]ConditionOption{WithUserProperty(regexp.MustCompile(`^unit$`), regexp.MustCompile(`^C$`))},
			mqttlite.Message{UserProperties: []mqttlite.StringPair{{Key: "room", Value: "1"}, {Key: "unit", Value: "C"}}},
			true,
		},
		{
			"all user properties required",
			[]ConditionOption{
				WithUserProperty(regexp.MustCompile(`^unit$`), regexp.MustCompile(`.*`)),
				WithUserProperty(regexp.MustCompile(`^room$`), regexp.MustCompile(`.*`)),
			},
			mqttlite.Message{UserProperties: []mqttlite.StringPair{{Key: "unit", Value: "C"}}},
			false,
		},
		{
			"topic and qos",
			[]ConditionOption{WithTopic("s/#"), WithQoS(1)},
			mqttlite.Message{Topic: "s/t", QoS: 1},
			true,
		},
		{
			"topic and qos mismatch",
			[]ConditionOption{WithTopic("s/#"), WithQoS(1)},
			mqttlite.Message{Topic: "x/t", QoS: 1},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			var matched bool
			r.Handle(func(_ *mqttlite.Message) bool {
				matched = true
				return true
			}, tt.opts...)

			msg := tt.msg
			r.Route(&msg)
			assert.Equal(t, tt.match, matched)
		})
	}
}

func TestRouterPublishHandler(t *testing.T) {
	r := New()
	r.Handle(func(_ *mqttlite.Message) bool { return false }, WithTopic("deny"))

	h := r.PublishHandler()
	require.NotNil(t, h)
	assert.False(t, h(&mqttlite.Message{Topic: "deny"}))
	assert.True(t, h(&mqttlite.Message{Topic: "allow"}))
}

func TestRouterConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Handle(func(_ *mqttlite.Message) bool { return true }, WithTopic("c/#"))
		}()
		go func() {
			defer wg.Done()
			r.Route(&mqttlite.Message{Topic: "c/d"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, r.Len())
}
