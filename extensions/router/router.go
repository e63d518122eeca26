// Package router dispatches inbound publishes to handlers by topic filter
// and message metadata.
package router

import (
	"regexp"
	"slices"
	"sync"

	"github.com/vitalvas/mqttlite"
)

// Handler processes an MQTT message. For QoS 1 messages the result selects
// the PUBACK reason code.
type Handler func(msg *mqttlite.Message) bool

// userPropertyMatcher holds regexp patterns for matching user properties.
type userPropertyMatcher struct {
	keyPattern   *regexp.Regexp
	valuePattern *regexp.Regexp
}

// Condition defines filtering criteria for message routing.
type Condition struct {
	topicFilter         *string
	qos                 *byte
	retain              *bool
	contentTypeRegexp   *regexp.Regexp
	responseTopicRegexp *regexp.Regexp
	userProperties      []userPropertyMatcher
}

// ConditionOption configures a Condition.
type ConditionOption func(*Condition)

// WithTopic sets the topic filter for message matching.
// Supports MQTT wildcards: + (single level) and # (multi level).
func WithTopic(filter string) ConditionOption {
	return func(c *Condition) {
		c.topicFilter = &filter
	}
}

// WithQoS filters messages by QoS level.
func WithQoS(qos byte) ConditionOption {
	return func(c *Condition) {
		c.qos = &qos
	}
}

// WithRetain filters messages by their retain flag.
func WithRetain(retain bool) ConditionOption {
	return func(c *Condition) {
		c.retain = &retain
	}
}

// WithContentType filters messages by content type regexp pattern.
func WithContentType(pattern *regexp.Regexp) ConditionOption {
	return func(c *Condition) {
		c.contentTypeRegexp = pattern
	}
}

// WithResponseTopic filters messages by response topic regexp pattern.
func WithResponseTopic(pattern *regexp.Regexp) ConditionOption {
	return func(c *Condition) {
		c.responseTopicRegexp = pattern
	}
}

// WithUserProperty filters messages by user property key/value regexp patterns.
// Both key and value must match for the condition to pass.
// Can be called multiple times to match multiple properties.
func WithUserProperty(keyPattern, valuePattern *regexp.Regexp) ConditionOption {
	return func(c *Condition) {
		c.userProperties = append(c.userProperties, userPropertyMatcher{
			keyPattern:   keyPattern,
			valuePattern: valuePattern,
		})
	}
}

type registration struct {
	handler   Handler
	condition Condition
}

// Router dispatches messages to handlers based on conditions.
type Router struct {
	mu        sync.RWMutex
	handlers  []registration
	unmatched Handler
}

// New creates a new Router.
func New() *Router {
	return &Router{
		handlers: make([]registration, 0),
	}
}

// Handle registers a handler with optional conditions.
//
// Examples:
//
//	r.Handle(handler, WithTopic("sensors/#"))
//	r.Handle(handler, WithTopic("sensors/#"), WithQoS(1))
//	r.Handle(handler, WithTopic("sensors/#"), WithContentType(regexp.MustCompile(`^application/json`)))
func (r *Router) Handle(handler Handler, opts ...ConditionOption) {
	var cond Condition
	for _, opt := range opts {
		opt(&cond)
	}

	r.mu.Lock()
	r.handlers = append(r.handlers, registration{
		handler:   handler,
		condition: cond,
	})
	r.mu.Unlock()
}

// HandleUnmatched sets the handler for messages no condition matched.
// Without one, unmatched messages are accepted.
func (r *Router) HandleUnmatched(handler Handler) {
	r.mu.Lock()
	r.unmatched = handler
	r.mu.Unlock()
}

func (c *Condition) matches(msg *mqttlite.Message) bool {
	if c.topicFilter != nil && !mqttlite.TopicMatch(*c.topicFilter, msg.Topic) {
		return false
	}
	if c.qos != nil && *c.qos != msg.QoS {
		return false
	}
	if c.retain != nil && *c.retain != msg.Retain {
		return false
	}
	if c.contentTypeRegexp != nil && !c.contentTypeRegexp.MatchString(msg.ContentType) {
		return false
	}
	if c.responseTopicRegexp != nil && !c.responseTopicRegexp.MatchString(msg.ResponseTopic) {
		return false
	}
	if len(c.userProperties) > 0 && !c.matchUserProperties(msg.UserProperties) {
		return false
	}
	return true
}

// matchUserProperties checks if all user property matchers find a match.
func (c *Condition) matchUserProperties(props []mqttlite.StringPair) bool {
	for _, matcher := range c.userProperties {
		found := slices.ContainsFunc(props, func(p mqttlite.StringPair) bool {
			return matcher.keyPattern.MatchString(p.Key) && matcher.valuePattern.MatchString(p.Value)
		})
		if !found {
			return false
		}
	}
	return true
}

// Route dispatches a message to all matching handlers and reports whether
// every one of them accepted it.
func (r *Router) Route(msg *mqttlite.Message) bool {
	if msg == nil {
		return false
	}

	r.mu.RLock()
	var matched []Handler
	for _, reg := range r.handlers {
		if reg.condition.matches(msg) {
			matched = append(matched, reg.handler)
		}
	}
	unmatched := r.unmatched
	r.mu.RUnlock()

	if len(matched) == 0 {
		if unmatched != nil {
			return unmatched(msg)
		}
		return true
	}

	accepted := true
	for _, handler := range matched {
		if !handler(msg) {
			accepted = false
		}
	}
	return accepted
}

// Filters returns the registered topic filters in registration order,
// without duplicates.
func (r *Router) Filters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filters []string
	for _, reg := range r.handlers {
		if f := reg.condition.topicFilter; f != nil && !slices.Contains(filters, *f) {
			filters = append(filters, *f)
		}
	}
	return filters
}

// Subscriptions returns one subscription per registered topic filter, for
// Client.Subscribe.
func (r *Router) Subscriptions(qos byte) []mqttlite.Subscription {
	filters := r.Filters()
	subs := make([]mqttlite.Subscription, 0, len(filters))
	for _, f := range filters {
		subs = append(subs, mqttlite.Subscription{TopicFilter: f, QoS: qos})
	}
	return subs
}

// Len returns the number of registered handlers.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes all handlers.
func (r *Router) Clear() {
	r.mu.Lock()
	r.handlers = r.handlers[:0]
	r.unmatched = nil
	r.mu.Unlock()
}

// PublishHandler returns the router as a client publish handler.
//
//	client := mqttlite.New(stream, mqttlite.WithPublishHandler(r.PublishHandler()))
func (r *Router) PublishHandler() mqttlite.PublishHandler {
	return r.Route
}
