package mqttlite

import (
	"errors"
	"fmt"
)

// ErrInvalidLimits is returned by Limits.Validate.
var ErrInvalidLimits = errors.New("invalid limits")

// Limits bounds every container the client decodes into. Values larger
// than a limit are truncated and the excess is skipped on the wire.
// A zero field takes its default.
type Limits struct {
	MaxProtocolName   int `yaml:"max_protocol_name"`
	MaxClientID       int `yaml:"max_client_id"`
	MaxTopic          int `yaml:"max_topic"`
	MaxPropertyString int `yaml:"max_property_string"`
	MaxPropertyBinary int `yaml:"max_property_binary"`
	MaxWillPayload    int `yaml:"max_will_payload"`
	MaxUsername       int `yaml:"max_username"`
	MaxPassword       int `yaml:"max_password"`
	MaxPayload        int `yaml:"max_payload"`
	MaxSubscriptions  int `yaml:"max_subscriptions"`
	PendingPublishes  int `yaml:"pending_publishes"`

	ConnectProperties    int `yaml:"connect_properties"`
	ConnackProperties    int `yaml:"connack_properties"`
	WillProperties       int `yaml:"will_properties"`
	PublishProperties    int `yaml:"publish_properties"`
	AckProperties        int `yaml:"ack_properties"`
	SubscribeProperties  int `yaml:"subscribe_properties"`
	DisconnectProperties int `yaml:"disconnect_properties"`
	AuthProperties       int `yaml:"auth_properties"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxProtocolName:   6,
		MaxClientID:       23,
		MaxTopic:          64,
		MaxPropertyString: 32,
		MaxPropertyBinary: 64,
		MaxWillPayload:    16,
		MaxUsername:       16,
		MaxPassword:       16,
		MaxPayload:        1024,
		MaxSubscriptions:  3,
		PendingPublishes:  16,

		ConnectProperties:    8,
		ConnackProperties:    17,
		WillProperties:       8,
		PublishProperties:    7,
		AckProperties:        3,
		SubscribeProperties:  3,
		DisconnectProperties: 4,
		AuthProperties:       4,
	}
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (l Limits) WithDefaults() Limits {
	def := DefaultLimits()
	fill := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}

	fill(&l.MaxProtocolName, def.MaxProtocolName)
	fill(&l.MaxClientID, def.MaxClientID)
	fill(&l.MaxTopic, def.MaxTopic)
	fill(&l.MaxPropertyString, def.MaxPropertyString)
	fill(&l.MaxPropertyBinary, def.MaxPropertyBinary)
	fill(&l.MaxWillPayload, def.MaxWillPayload)
	fill(&l.MaxUsername, def.MaxUsername)
	fill(&l.MaxPassword, def.MaxPassword)
	fill(&l.MaxPayload, def.MaxPayload)
	fill(&l.MaxSubscriptions, def.MaxSubscriptions)
	fill(&l.PendingPublishes, def.PendingPublishes)
	fill(&l.ConnectProperties, def.ConnectProperties)
	fill(&l.ConnackProperties, def.ConnackProperties)
	fill(&l.WillProperties, def.WillProperties)
	fill(&l.PublishProperties, def.PublishProperties)
	fill(&l.AckProperties, def.AckProperties)
	fill(&l.SubscribeProperties, def.SubscribeProperties)
	fill(&l.DisconnectProperties, def.DisconnectProperties)
	fill(&l.AuthProperties, def.AuthProperties)

	return l
}

// Validate rejects negative limits and a payload limit beyond the largest packet.
func (l Limits) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"max_protocol_name", l.MaxProtocolName},
		{"max_client_id", l.MaxClientID},
		{"max_topic", l.MaxTopic},
		{"max_property_string", l.MaxPropertyString},
		{"max_property_binary", l.MaxPropertyBinary},
		{"max_will_payload", l.MaxWillPayload},
		{"max_username", l.MaxUsername},
		{"max_password", l.MaxPassword},
		{"max_payload", l.MaxPayload},
		{"max_subscriptions", l.MaxSubscriptions},
		{"pending_publishes", l.PendingPublishes},
		{"connect_properties", l.ConnectProperties},
		{"connack_properties", l.ConnackProperties},
		{"will_properties", l.WillProperties},
		{"publish_properties", l.PublishProperties},
		{"ack_properties", l.AckProperties},
		{"subscribe_properties", l.SubscribeProperties},
		{"disconnect_properties", l.DisconnectProperties},
		{"auth_properties", l.AuthProperties},
	}

	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidLimits, f.name)
		}
	}

	if l.MaxPayload > maxVarint {
		return fmt.Errorf("%w: max_payload exceeds %d", ErrInvalidLimits, maxVarint)
	}

	return nil
}

func (l *Limits) propertyLimits() PropertyLimits {
	return PropertyLimits{MaxString: l.MaxPropertyString, MaxBinary: l.MaxPropertyBinary}
}
