// Package mqttlite is a small MQTT v3.1.1 and v5.0 client for bounded
// memory: every container it decodes into has a fixed capacity taken from
// Limits, and input past a capacity is skipped on the wire instead of
// growing buffers.
//
// # Features
//
//   - Codec for all 15 control packet types, v5 properties included
//   - Polled client: no goroutines, the caller drives Process
//   - QoS 0 and 1 in both directions; inbound QoS 2 is counted and dropped
//   - Truncation and drops are reported through a TruncationObserver,
//     metrics and logs
//   - Streams over TCP, TLS, WebSocket, QUIC, Unix sockets and proxies
//
// # Streams
//
// The client talks over a Stream: a byte channel that can report whether
// data is waiting and can skip input. Every read has its own deadline of
// Clock.Now plus the read timeout.
//
//	stream, err := mqttlite.DialStream(ctx, "tcp://localhost:1883")
//
// In-memory buffers work too:
//
//	stream := mqttlite.NewStream(&bytes.Buffer{})
//
// # Codec
//
// Use ReadPacket and WritePacket directly when no client state is needed:
//
//	d := mqttlite.NewDecoder(stream, mqttlite.DecoderOptions{})
//	pkt, err := mqttlite.ReadPacket(d, mqttlite.ProtocolV5, nil)
//
//	n, err := mqttlite.WritePacket(w, pkt, mqttlite.ProtocolV5)
//
// Each packet describes its wire form as an ordered list of fields with
// presence predicates, so encoding, sizing and decoding share one layout.
//
// # Client
//
//	client := mqttlite.New(stream,
//	    mqttlite.WithClientID("sensor-1"),
//	    mqttlite.WithPublishHandler(func(msg *mqttlite.Message) bool {
//	        return handle(msg)
//	    }),
//	)
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//	for {
//	    if err := client.Process(); err != nil && !errors.Is(err, mqttlite.ErrTimeout) {
//	        return err
//	    }
//	}
//
// Publish returns the packet id of a QoS 1 message; it stays in Pending until
// the PUBACK arrives. Redelivery is up to the caller, see Redeliver.
//
// The client has no timers either. Poll PingDue to send PINGREQ in time and
// KeepAliveExpired to notice a silent broker. QoS 1 publishes beyond the
// server's Receive Maximum fail with ErrQuotaExceeded until PUBACKs arrive.
//
// # Configuration
//
// Options can also come from a YAML file with MQTTLITE_* environment
// overrides:
//
//	cfg, err := mqttlite.LoadConfig("client.yaml")
//	client := mqttlite.New(stream, cfg.Options()...)
//
// # Extensions
//
//   - extensions/router: dispatch inbound publishes by topic filter
//   - extensions/logging: zap, logrus and slog adapters for Logger
package mqttlite
