package mqttlite

import (
	"errors"
	"fmt"
)

// PropertyID represents an MQTT v5.0 property identifier.
type PropertyID byte

// Property identifiers as defined by MQTT v5.0.
const (
	PropPayloadFormatIndicator   PropertyID = 0x01
	PropMessageExpiryInterval    PropertyID = 0x02
	PropContentType              PropertyID = 0x03
	PropResponseTopic            PropertyID = 0x08
	PropCorrelationData          PropertyID = 0x09
	PropSubscriptionIdentifier   PropertyID = 0x0B
	PropSessionExpiryInterval    PropertyID = 0x11
	PropAssignedClientIdentifier PropertyID = 0x12
	PropServerKeepAlive          PropertyID = 0x13
	PropAuthenticationMethod     PropertyID = 0x15
	PropAuthenticationData       PropertyID = 0x16
	PropRequestProblemInfo       PropertyID = 0x17
	PropWillDelayInterval        PropertyID = 0x18
	PropRequestResponseInfo      PropertyID = 0x19
	PropResponseInformation      PropertyID = 0x1A
	PropServerReference          PropertyID = 0x1C
	PropReasonString             PropertyID = 0x1F
	PropReceiveMaximum           PropertyID = 0x21
	PropTopicAliasMaximum        PropertyID = 0x22
	PropTopicAlias               PropertyID = 0x23
	PropMaximumQoS               PropertyID = 0x24
	PropRetainAvailable          PropertyID = 0x25
	PropUserProperty             PropertyID = 0x26
	PropMaximumPacketSize        PropertyID = 0x27
	PropWildcardSubAvailable     PropertyID = 0x28
	PropSubscriptionIDAvailable  PropertyID = 0x29
	PropSharedSubAvailable       PropertyID = 0x2A
)

// PropertyType represents the wire type of a property value.
type PropertyType byte

const (
	PropTypeByte        PropertyType = 0 // Single byte
	PropTypeTwoByteInt  PropertyType = 1 // Two byte integer (uint16)
	PropTypeFourByteInt PropertyType = 2 // Four byte integer (uint32)
	PropTypeVarInt      PropertyType = 3 // Variable byte integer (uint32)
	PropTypeString      PropertyType = 4 // UTF-8 encoded string
	PropTypeBinary      PropertyType = 5 // Binary data
	PropTypeStringPair  PropertyType = 6 // UTF-8 string pair
)

var propertyTypeMap = map[PropertyID]PropertyType{
	PropPayloadFormatIndicator:   PropTypeByte,
	PropMessageExpiryInterval:    PropTypeFourByteInt,
	PropContentType:              PropTypeString,
	PropResponseTopic:            PropTypeString,
	PropCorrelationData:          PropTypeBinary,
	PropSubscriptionIdentifier:   PropTypeVarInt,
	PropSessionExpiryInterval:    PropTypeFourByteInt,
	PropAssignedClientIdentifier: PropTypeString,
	PropServerKeepAlive:          PropTypeTwoByteInt,
	PropAuthenticationMethod:     PropTypeString,
	PropAuthenticationData:       PropTypeBinary,
	PropRequestProblemInfo:       PropTypeByte,
	PropWillDelayInterval:        PropTypeFourByteInt,
	PropRequestResponseInfo:      PropTypeByte,
	PropResponseInformation:      PropTypeString,
	PropServerReference:          PropTypeString,
	PropReasonString:             PropTypeString,
	PropReceiveMaximum:           PropTypeTwoByteInt,
	PropTopicAliasMaximum:        PropTypeTwoByteInt,
	PropTopicAlias:               PropTypeTwoByteInt,
	PropMaximumQoS:               PropTypeByte,
	PropRetainAvailable:          PropTypeByte,
	PropUserProperty:             PropTypeStringPair,
	PropMaximumPacketSize:        PropTypeFourByteInt,
	PropWildcardSubAvailable:     PropTypeByte,
	PropSubscriptionIDAvailable:  PropTypeByte,
	PropSharedSubAvailable:       PropTypeByte,
}

// Known reports whether the identifier is defined by MQTT v5.0.
func (p PropertyID) Known() bool {
	_, ok := propertyTypeMap[p]
	return ok
}

// PropertyType returns the wire type for this property ID.
func (p PropertyID) PropertyType() (PropertyType, bool) {
	t, ok := propertyTypeMap[p]
	return t, ok
}

// Property errors.
var (
	ErrInvalidPropertyType = errors.New("invalid property type for identifier")
	ErrUnknownPropertyID   = errors.New("unknown property identifier")
	ErrMalformedProperties = errors.New("malformed properties")
)

// invalidPropertyValue is the value stored for an identifier this package
// does not know.
const invalidPropertyValue = "Invalid"

// Property is a single identifier and value pair. Value holds byte, uint16,
// uint32, string, []byte or StringPair depending on the identifier.
type Property struct {
	ID    PropertyID
	Value any
}

// Invalid reports whether the property is the placeholder for an unknown identifier.
func (p Property) Invalid() bool {
	s, ok := p.Value.(string)
	return ok && s == invalidPropertyValue && !p.ID.Known()
}

func (p Property) size() int {
	t, _ := p.ID.PropertyType()
	size := 1

	switch t {
	case PropTypeByte:
		size++
	case PropTypeTwoByteInt:
		size += 2
	case PropTypeFourByteInt:
		size += 4
	case PropTypeVarInt:
		v, _ := p.Value.(uint32)
		size += VarintSize(v)
	case PropTypeString:
		s, _ := p.Value.(string)
		size += 2 + len(s)
	case PropTypeBinary:
		b, _ := p.Value.([]byte)
		size += 2 + len(b)
	case PropTypeStringPair:
		sp, _ := p.Value.(StringPair)
		size += 2 + len(sp.Key) + 2 + len(sp.Value)
	}
	return size
}

func (p Property) encode(e *Encoder) error {
	t, ok := p.ID.PropertyType()
	if !ok {
		return fmt.Errorf("%w: 0x%02X", ErrUnknownPropertyID, byte(p.ID))
	}
	if err := e.WriteByte(byte(p.ID)); err != nil {
		return err
	}

	mismatch := func() error {
		return fmt.Errorf("%w: 0x%02X holds %T", ErrInvalidPropertyType, byte(p.ID), p.Value)
	}

	switch t {
	case PropTypeByte:
		v, ok := p.Value.(byte)
		if !ok {
			return mismatch()
		}
		return e.WriteByte(v)
	case PropTypeTwoByteInt:
		v, ok := p.Value.(uint16)
		if !ok {
			return mismatch()
		}
		return e.WriteUint16(v)
	case PropTypeFourByteInt:
		v, ok := p.Value.(uint32)
		if !ok {
			return mismatch()
		}
		return e.WriteUint32(v)
	case PropTypeVarInt:
		v, ok := p.Value.(uint32)
		if !ok {
			return mismatch()
		}
		return e.WriteVarint(v)
	case PropTypeString:
		v, ok := p.Value.(string)
		if !ok {
			return mismatch()
		}
		return e.WriteString(v)
	case PropTypeBinary:
		v, ok := p.Value.([]byte)
		if !ok {
			return mismatch()
		}
		return e.WriteBinary(v)
	case PropTypeStringPair:
		v, ok := p.Value.(StringPair)
		if !ok {
			return mismatch()
		}
		return e.WriteStringPair(v)
	}
	return mismatch()
}

// Properties is a bounded list of MQTT v5.0 properties.
// A zero capacity means the list is unbounded.
type Properties struct {
	items    []Property
	capacity int
}

// NewProperties creates a property list holding at most capacity entries.
func NewProperties(capacity int) Properties {
	return Properties{
		items:    make([]Property, 0, max(0, capacity)),
		capacity: capacity,
	}
}

// Len returns the number of properties in the list.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// Cap returns the list capacity; zero means unbounded.
func (p *Properties) Cap() int {
	return p.capacity
}

// Full reports whether no more properties can be added.
func (p *Properties) Full() bool {
	return p.capacity > 0 && len(p.items) >= p.capacity
}

// All returns the stored properties in wire order.
func (p *Properties) All() []Property {
	if p == nil {
		return nil
	}
	return p.items
}

// Reset removes all properties, keeping the capacity.
func (p *Properties) Reset() {
	clear(p.items)
	p.items = p.items[:0]
}

// Has returns true if the property with the given ID exists.
func (p *Properties) Has(id PropertyID) bool {
	if p == nil {
		return false
	}
	for i := range p.items {
		if p.items[i].ID == id {
			return true
		}
	}
	return false
}

// Get returns the value of the first property with the given ID, or nil.
func (p *Properties) Get(id PropertyID) any {
	if p == nil {
		return nil
	}
	for i := range p.items {
		if p.items[i].ID == id {
			return p.items[i].Value
		}
	}
	return nil
}

// GetAll returns all values for properties with the given ID.
// Useful for properties that can appear multiple times (e.g., UserProperty).
func (p *Properties) GetAll(id PropertyID) []any {
	if p == nil {
		return nil
	}
	var result []any
	for i := range p.items {
		if p.items[i].ID == id {
			result = append(result, p.items[i].Value)
		}
	}
	return result
}

// Add appends a property. It returns false and drops the property when the
// list is full.
func (p *Properties) Add(id PropertyID, value any) bool {
	if p.Full() {
		return false
	}
	p.items = append(p.items, Property{ID: id, Value: value})
	return true
}

// Set replaces the first property with the given ID or adds it.
// It returns false when the property had to be added and the list is full.
func (p *Properties) Set(id PropertyID, value any) bool {
	for i := range p.items {
		if p.items[i].ID == id {
			p.items[i].Value = value
			return true
		}
	}
	return p.Add(id, value)
}

// Delete removes all properties with the given ID.
func (p *Properties) Delete(id PropertyID) {
	n := 0
	for i := range p.items {
		if p.items[i].ID != id {
			p.items[n] = p.items[i]
			n++
		}
	}
	clear(p.items[n:])
	p.items = p.items[:n]
}

// GetByte returns the byte value of a property, or 0 if not found.
func (p *Properties) GetByte(id PropertyID) byte {
	v, _ := p.Get(id).(byte)
	return v
}

// GetUint16 returns the uint16 value of a property, or 0 if not found.
func (p *Properties) GetUint16(id PropertyID) uint16 {
	v, _ := p.Get(id).(uint16)
	return v
}

// GetUint32 returns the uint32 value of a property, or 0 if not found.
func (p *Properties) GetUint32(id PropertyID) uint32 {
	v, _ := p.Get(id).(uint32)
	return v
}

// GetString returns the string value of a property, or empty string if not found.
func (p *Properties) GetString(id PropertyID) string {
	v, _ := p.Get(id).(string)
	return v
}

// GetBinary returns the binary value of a property, or nil if not found.
func (p *Properties) GetBinary(id PropertyID) []byte {
	v, _ := p.Get(id).([]byte)
	return v
}

// GetAllStringPairs returns all string pair values for the given property ID.
func (p *Properties) GetAllStringPairs(id PropertyID) []StringPair {
	all := p.GetAll(id)
	if all == nil {
		return nil
	}
	result := make([]StringPair, 0, len(all))
	for _, v := range all {
		if sp, ok := v.(StringPair); ok {
			result = append(result, sp)
		}
	}
	return result
}

// Size returns the encoded size of the property list contents, excluding
// the length prefix.
func (p *Properties) Size() int {
	if p == nil {
		return 0
	}
	size := 0
	for i := range p.items {
		size += p.items[i].size()
	}
	return size
}

// EncodedSize returns the encoded size including the length prefix.
func (p *Properties) EncodedSize() int {
	size := p.Size()
	return VarintSize(uint32(size)) + size
}

// Encode writes the length prefix followed by every property.
// The length is always computed from the current contents.
func (p *Properties) Encode(e *Encoder) error {
	if err := e.WriteVarint(uint32(p.Size())); err != nil {
		return err
	}
	for i := range p.All() {
		if err := p.items[i].encode(e); err != nil {
			return err
		}
	}
	return nil
}

// PropertyLimits bounds decoded string and binary property values.
type PropertyLimits struct {
	MaxString int
	MaxBinary int
}

// Decode replaces the list contents with properties read from d.
//
// The length prefix is a consumption budget: decoding stops exactly at its
// end. Properties beyond capacity are skipped. An unknown identifier is
// stored as an invalid placeholder and ends decoding of the list, since its
// value size cannot be known.
func (p *Properties) Decode(d *Decoder, lim PropertyLimits) error {
	p.Reset()

	length, err := d.ReadVarint()
	if err != nil {
		return err
	}

	prev, err := d.limit(int(length))
	if err != nil {
		return fmt.Errorf("%w: length %d exceeds packet", ErrMalformedProperties, length)
	}
	defer d.restore(prev)

	for d.Remaining() > 0 {
		if p.Full() {
			dropped := d.Remaining()
			if err := d.Skip(dropped); err != nil {
				return err
			}
			d.observe(DroppedProperties, dropped)
			return nil
		}

		idByte, err := d.ReadByte()
		if err != nil {
			return err
		}
		id := PropertyID(idByte)

		t, ok := id.PropertyType()
		if !ok {
			p.items = append(p.items, Property{ID: id, Value: invalidPropertyValue})
			dropped := d.Remaining()
			if err := d.Skip(dropped); err != nil {
				return err
			}
			d.observe(UnknownProperty, dropped)
			return nil
		}

		value, err := decodePropertyValue(d, t, lim)
		if err != nil {
			if errors.Is(err, ErrFieldOverrun) {
				return fmt.Errorf("%w: property 0x%02X: %w", ErrMalformedProperties, idByte, err)
			}
			return err
		}
		p.items = append(p.items, Property{ID: id, Value: value})
	}
	return nil
}

func decodePropertyValue(d *Decoder, t PropertyType, lim PropertyLimits) (any, error) {
	switch t {
	case PropTypeByte:
		return d.ReadByte()
	case PropTypeTwoByteInt:
		return d.ReadUint16()
	case PropTypeFourByteInt:
		return d.ReadUint32()
	case PropTypeVarInt:
		return d.ReadVarint()
	case PropTypeString:
		return d.ReadString(lim.MaxString)
	case PropTypeBinary:
		return d.ReadBinary(lim.MaxBinary)
	case PropTypeStringPair:
		return d.ReadStringPair(lim.MaxString)
	}
	return nil, ErrInvalidPropertyType
}

// Clone returns a copy that does not share storage with p.
func (p *Properties) Clone() Properties {
	out := Properties{capacity: p.capacity}
	if len(p.items) > 0 {
		out.items = make([]Property, len(p.items))
		for i, it := range p.items {
			if b, ok := it.Value.([]byte); ok {
				it.Value = cloneBytes(b)
			}
			out.items[i] = it
		}
	}
	return out
}
