package mqttlite

import "fmt"

// field is one entry of a packet layout: how to size, encode and decode a
// single wire field, and when it is on the wire at all.
//
// present is evaluated against the packet as decoded so far, so a field may
// depend on any sibling that precedes it. A tail field may be missing when
// the packet budget is exhausted and then keeps its zero value.
type field struct {
	name    string
	present func() bool
	tail    bool
	size    func() int
	encode  func(e *Encoder) error
	decode  func(d *Decoder) error
}

// when makes the field conditional on pred.
func (f field) when(pred func() bool) field {
	if f.present == nil {
		f.present = pred
		return f
	}
	prev := f.present
	f.present = func() bool { return prev() && pred() }
	return f
}

// optional marks the field as a tail field.
func (f field) optional() field {
	f.tail = true
	return f
}

func (f field) isPresent() bool {
	return f.present == nil || f.present()
}

// record is an ordered list of fields making up a variable header or payload.
type record []field

func (r record) size() int {
	n := 0
	for _, f := range r {
		if f.isPresent() {
			n += f.size()
		}
	}
	return n
}

func (r record) encode(e *Encoder) error {
	for _, f := range r {
		if !f.isPresent() {
			continue
		}
		if err := f.encode(e); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

func (r record) decode(d *Decoder) error {
	for _, f := range r {
		if !f.isPresent() {
			continue
		}
		if f.tail && d.Remaining() == 0 {
			continue
		}
		if err := f.decode(d); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

func byteField(name string, v *byte) field {
	return field{
		name:   name,
		size:   func() int { return 1 },
		encode: func(e *Encoder) error { return e.WriteByte(*v) },
		decode: func(d *Decoder) (err error) {
			*v, err = d.ReadByte()
			return err
		},
	}
}

func reasonField(name string, v *ReasonCode) field {
	return field{
		name:   name,
		size:   func() int { return 1 },
		encode: func(e *Encoder) error { return e.WriteByte(byte(*v)) },
		decode: func(d *Decoder) error {
			b, err := d.ReadByte()
			*v = ReasonCode(b)
			return err
		},
	}
}

func uint16Field(name string, v *uint16) field {
	return field{
		name:   name,
		size:   func() int { return 2 },
		encode: func(e *Encoder) error { return e.WriteUint16(*v) },
		decode: func(d *Decoder) (err error) {
			*v, err = d.ReadUint16()
			return err
		},
	}
}

func stringField(name string, v *string, capacity int) field {
	return field{
		name:   name,
		size:   func() int { return 2 + len(*v) },
		encode: func(e *Encoder) error { return e.WriteString(*v) },
		decode: func(d *Decoder) (err error) {
			*v, err = d.ReadString(capacity)
			return err
		},
	}
}

func binaryField(name string, v *[]byte, capacity int) field {
	return field{
		name:   name,
		size:   func() int { return 2 + len(*v) },
		encode: func(e *Encoder) error { return e.WriteBinary(*v) },
		decode: func(d *Decoder) (err error) {
			*v, err = d.ReadBinary(capacity)
			return err
		},
	}
}

func propertiesField(name string, p *Properties, lim PropertyLimits) field {
	return field{
		name:   name,
		size:   p.EncodedSize,
		encode: p.Encode,
		decode: func(d *Decoder) error { return p.Decode(d, lim) },
	}
}

// restField takes every byte left in the packet, keeping at most capacity.
func restField(name string, v *[]byte, capacity int) field {
	return field{
		name:   name,
		size:   func() int { return len(*v) },
		encode: func(e *Encoder) error { return e.WriteBytes(*v) },
		decode: func(d *Decoder) (err error) {
			*v, err = d.ReadBytes(d.Remaining(), capacity, TruncatedPayload)
			return err
		},
	}
}

// element describes how one list entry is put on the wire.
type element[T any] struct {
	size   func(T) int
	encode func(*Encoder, T) error
	decode func(*Decoder) (T, error)
}

// listField repeats an element until the packet budget ends. Entries beyond
// capacity are skipped; a zero capacity keeps everything.
func listField[T any](name string, items *[]T, capacity int, el element[T]) field {
	return field{
		name: name,
		size: func() int {
			n := 0
			for _, it := range *items {
				n += el.size(it)
			}
			return n
		},
		encode: func(e *Encoder) error {
			for _, it := range *items {
				if err := el.encode(e, it); err != nil {
					return err
				}
			}
			return nil
		},
		decode: func(d *Decoder) error {
			*items = (*items)[:0]
			for d.Remaining() > 0 {
				if capacity > 0 && len(*items) >= capacity {
					dropped := d.Remaining()
					if err := d.Skip(dropped); err != nil {
						return err
					}
					d.observe(DroppedListItems, dropped)
					return nil
				}

				it, err := el.decode(d)
				if err != nil {
					return err
				}
				*items = append(*items, it)
			}
			return nil
		},
	}
}

var reasonElement = element[ReasonCode]{
	size:   func(ReasonCode) int { return 1 },
	encode: func(e *Encoder, r ReasonCode) error { return e.WriteByte(byte(r)) },
	decode: func(d *Decoder) (ReasonCode, error) {
		b, err := d.ReadByte()
		return ReasonCode(b), err
	},
}

func topicElement(capacity int) element[string] {
	return element[string]{
		size:   func(s string) int { return 2 + len(s) },
		encode: func(e *Encoder, s string) error { return e.WriteString(s) },
		decode: func(d *Decoder) (string, error) { return d.ReadString(capacity) },
	}
}
