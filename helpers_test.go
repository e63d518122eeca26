package mqttlite

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testConn feeds in to the reader and collects everything written in out.
type testConn struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (c *testConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *testConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *testConn) Len() int                    { return c.in.Len() }

// fakeClock advances only when slept on.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	c.now = c.now.Add(d)
}

type truncation struct {
	kind    TruncationKind
	dropped int
}

// newTestDecoder returns a decoder over data that never waits on a real clock.
func newTestDecoder(data []byte) (*Decoder, *[]truncation) {
	conn := &testConn{}
	conn.in.Write(data)

	var seen []truncation
	d := NewDecoder(NewStream(conn), DecoderOptions{
		Clock:        newFakeClock(),
		Timeout:      10 * time.Millisecond,
		PollInterval: time.Millisecond,
		Observer: func(kind TruncationKind, dropped int) {
			seen = append(seen, truncation{kind, dropped})
		},
	})
	return d, &seen
}

func encodeToBytes(t testing.TB, p Packet, version byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := WritePacket(&buf, p, version)
	require.NoError(t, err)
	return buf.Bytes()
}
