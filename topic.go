package mqttlite

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidTopicName   = errors.New("invalid topic name")
	ErrInvalidTopicFilter = errors.New("invalid topic filter")
	ErrEmptyTopic         = errors.New("topic cannot be empty")
)

const (
	topicSeparator      = "/"
	singleLevelWildcard = "+"
	multiLevelWildcard  = "#"
)

// ValidateTopicName checks a topic used for publishing: non-empty, valid
// UTF-8, no null character and no wildcards.
func ValidateTopicName(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if !utf8.ValidString(topic) || strings.ContainsAny(topic, "\x00+#") {
		return ErrInvalidTopicName
	}
	return nil
}

// ValidateTopicFilter checks a subscription filter. A wildcard must take a
// whole level and # must be the last level.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrEmptyTopic
	}
	if !utf8.ValidString(filter) || strings.ContainsRune(filter, 0) {
		return ErrInvalidTopicFilter
	}

	rest := filter
	for {
		level, tail, more := strings.Cut(rest, topicSeparator)
		if strings.Contains(level, singleLevelWildcard) && level != singleLevelWildcard {
			return ErrInvalidTopicFilter
		}
		if strings.Contains(level, multiLevelWildcard) && (level != multiLevelWildcard || more) {
			return ErrInvalidTopicFilter
		}
		if !more {
			return nil
		}
		rest = tail
	}
}

// TopicMatch reports whether topic matches filter. Topics starting with $
// are not matched by a leading wildcard.
func TopicMatch(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}
	if topic[0] == '$' && (filter[0] == '+' || filter[0] == '#') {
		return false
	}

	for {
		flevel, frest, fmore := strings.Cut(filter, topicSeparator)
		if flevel == multiLevelWildcard {
			return true
		}

		tlevel, trest, tmore := strings.Cut(topic, topicSeparator)
		if flevel != singleLevelWildcard && flevel != tlevel {
			return false
		}

		switch {
		case !fmore && !tmore:
			return true
		case !tmore:
			// "a/#" matches "a".
			return frest == multiLevelWildcard
		case !fmore:
			return false
		}
		filter, topic = frest, trest
	}
}
