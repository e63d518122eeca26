package mqttlite

// ReasonCode is an MQTT v5.0 reason code. A v3.1.1 CONNACK return code is
// translated with ReasonFromReturnCode.
type ReasonCode byte

const (
	ReasonSuccess                    ReasonCode = 0x00
	ReasonGrantedQoS1                ReasonCode = 0x01
	ReasonGrantedQoS2                ReasonCode = 0x02
	ReasonDisconnectWithWill         ReasonCode = 0x04
	ReasonNoMatchingSubscribers      ReasonCode = 0x10
	ReasonNoSubscriptionExisted      ReasonCode = 0x11
	ReasonContinueAuth               ReasonCode = 0x18
	ReasonReAuth                     ReasonCode = 0x19
	ReasonUnspecifiedError           ReasonCode = 0x80
	ReasonMalformedPacket            ReasonCode = 0x81
	ReasonProtocolError              ReasonCode = 0x82
	ReasonImplSpecificError          ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion ReasonCode = 0x84
	ReasonClientIDNotValid           ReasonCode = 0x85
	ReasonBadUserNameOrPassword      ReasonCode = 0x86
	ReasonNotAuthorized              ReasonCode = 0x87
	ReasonServerUnavailable          ReasonCode = 0x88
	ReasonServerBusy                 ReasonCode = 0x89
	ReasonBanned                     ReasonCode = 0x8A
	ReasonServerShuttingDown         ReasonCode = 0x8B
	ReasonBadAuthMethod              ReasonCode = 0x8C
	ReasonKeepAliveTimeout           ReasonCode = 0x8D
	ReasonSessionTakenOver           ReasonCode = 0x8E
	ReasonTopicFilterInvalid         ReasonCode = 0x8F
	ReasonTopicNameInvalid           ReasonCode = 0x90
	ReasonPacketIDInUse              ReasonCode = 0x91
	ReasonPacketIDNotFound           ReasonCode = 0x92
	ReasonReceiveMaxExceeded         ReasonCode = 0x93
	ReasonTopicAliasInvalid          ReasonCode = 0x94
	ReasonPacketTooLarge             ReasonCode = 0x95
	ReasonMessageRateTooHigh         ReasonCode = 0x96
	ReasonQuotaExceeded              ReasonCode = 0x97
	ReasonAdminAction                ReasonCode = 0x98
	ReasonPayloadFormatInvalid       ReasonCode = 0x99
	ReasonRetainNotSupported         ReasonCode = 0x9A
	ReasonQoSNotSupported            ReasonCode = 0x9B
	ReasonUseAnotherServer           ReasonCode = 0x9C
	ReasonServerMoved                ReasonCode = 0x9D
	ReasonSharedSubsNotSupported     ReasonCode = 0x9E
	ReasonConnectionRateExceeded     ReasonCode = 0x9F
	ReasonMaxConnectTime             ReasonCode = 0xA0
	ReasonSubIDsNotSupported         ReasonCode = 0xA1
	ReasonWildcardSubsNotSupported   ReasonCode = 0xA2
)

// ReasonGrantedQoS0 is the SUBACK spelling of ReasonSuccess.
const ReasonGrantedQoS0 = ReasonSuccess

// StatusNotConnected is the connection status before any CONNACK arrived.
// It is never sent on the wire.
const StatusNotConnected ReasonCode = 0xFF

// packetSet is a bit per packet type.
type packetSet uint16

func (s packetSet) has(t PacketType) bool {
	return t.Valid() && s&(1<<t) != 0
}

const (
	onConnack    packetSet = 1 << PacketCONNACK
	onAck        packetSet = 1<<PacketPUBACK | 1<<PacketPUBREC
	onRel        packetSet = 1<<PacketPUBREL | 1<<PacketPUBCOMP
	onSuback     packetSet = 1 << PacketSUBACK
	onUnsuback   packetSet = 1 << PacketUNSUBACK
	onDisconnect packetSet = 1 << PacketDISCONNECT
	onAuth       packetSet = 1 << PacketAUTH
)

type reasonInfo struct {
	name    string
	packets packetSet
}

// reasons lists every code with the packets allowed to carry it.
var reasons = map[ReasonCode]reasonInfo{
	StatusNotConnected:               {"Not connected", 0},
	ReasonSuccess:                    {"Success", onConnack | onAck | onRel | onSuback | onUnsuback | onDisconnect | onAuth},
	ReasonGrantedQoS1:                {"Granted QoS 1", onSuback},
	ReasonGrantedQoS2:                {"Granted QoS 2", onSuback},
	ReasonDisconnectWithWill:         {"Disconnect with Will Message", onDisconnect},
	ReasonNoMatchingSubscribers:      {"No matching subscribers", onAck},
	ReasonNoSubscriptionExisted:      {"No subscription existed", onUnsuback},
	ReasonContinueAuth:               {"Continue authentication", onAuth},
	ReasonReAuth:                     {"Re-authenticate", onAuth},
	ReasonUnspecifiedError:           {"Unspecified error", onConnack | onAck | onSuback | onUnsuback | onDisconnect},
	ReasonMalformedPacket:            {"Malformed Packet", onConnack | onDisconnect},
	ReasonProtocolError:              {"Protocol Error", onConnack | onDisconnect},
	ReasonImplSpecificError:          {"Implementation specific error", onConnack | onAck | onSuback | onUnsuback | onDisconnect},
	ReasonUnsupportedProtocolVersion: {"Unsupported Protocol Version", onConnack},
	ReasonClientIDNotValid:           {"Client Identifier not valid", onConnack},
	ReasonBadUserNameOrPassword:      {"Bad User Name or Password", onConnack},
	ReasonNotAuthorized:              {"Not authorized", onConnack | onAck | onSuback | onUnsuback | onDisconnect},
	ReasonServerUnavailable:          {"Server unavailable", onConnack},
	ReasonServerBusy:                 {"Server busy", onConnack | onDisconnect},
	ReasonBanned:                     {"Banned", onConnack},
	ReasonServerShuttingDown:         {"Server shutting down", onDisconnect},
	ReasonBadAuthMethod:              {"Bad authentication method", onConnack},
	ReasonKeepAliveTimeout:           {"Keep Alive timeout", onDisconnect},
	ReasonSessionTakenOver:           {"Session taken over", onDisconnect},
	ReasonTopicFilterInvalid:         {"Topic Filter invalid", onSuback | onUnsuback | onDisconnect},
	ReasonTopicNameInvalid:           {"Topic Name invalid", onConnack | onAck | onDisconnect},
	ReasonPacketIDInUse:              {"Packet Identifier in use", onAck | onSuback | onUnsuback},
	ReasonPacketIDNotFound:           {"Packet Identifier not found", onRel},
	ReasonReceiveMaxExceeded:         {"Receive Maximum exceeded", onDisconnect},
	ReasonTopicAliasInvalid:          {"Topic Alias invalid", onDisconnect},
	ReasonPacketTooLarge:             {"Packet too large", onConnack | onDisconnect},
	ReasonMessageRateTooHigh:         {"Message rate too high", onDisconnect},
	ReasonQuotaExceeded:              {"Quota exceeded", onConnack | onAck | onSuback | onDisconnect},
	ReasonAdminAction:                {"Administrative action", onDisconnect},
	ReasonPayloadFormatInvalid:       {"Payload format invalid", onConnack | onAck | onDisconnect},
	ReasonRetainNotSupported:         {"Retain not supported", onConnack | onDisconnect},
	ReasonQoSNotSupported:            {"QoS not supported", onConnack | onDisconnect},
	ReasonUseAnotherServer:           {"Use another server", onConnack | onDisconnect},
	ReasonServerMoved:                {"Server moved", onConnack | onDisconnect},
	ReasonSharedSubsNotSupported:     {"Shared Subscriptions not supported", onSuback | onDisconnect},
	ReasonConnectionRateExceeded:     {"Connection rate exceeded", onConnack | onDisconnect},
	ReasonMaxConnectTime:             {"Maximum connect time", onDisconnect},
	ReasonSubIDsNotSupported:         {"Subscription Identifiers not supported", onSuback | onDisconnect},
	ReasonWildcardSubsNotSupported:   {"Wildcard Subscriptions not supported", onSuback | onDisconnect},
}

// String returns the description of the reason code.
func (r ReasonCode) String() string {
	if info, ok := reasons[r]; ok {
		return info.name
	}
	return "Unknown reason code"
}

// IsError reports whether the code is 0x80 or above.
func (r ReasonCode) IsError() bool {
	return r >= 0x80
}

// IsSuccess reports whether the code is below 0x80.
func (r ReasonCode) IsSuccess() bool {
	return r < 0x80
}

// ValidFor reports whether a packet of type t may carry the code.
func (r ReasonCode) ValidFor(t PacketType) bool {
	info, ok := reasons[r]
	return ok && info.packets.has(t)
}

// v3.1.1 CONNACK return codes indexed by value.
var returnCodeReasons = [...]ReasonCode{
	0: ReasonSuccess,
	1: ReasonUnsupportedProtocolVersion,
	2: ReasonClientIDNotValid,
	3: ReasonServerUnavailable,
	4: ReasonBadUserNameOrPassword,
	5: ReasonNotAuthorized,
}

// ReasonFromReturnCode translates a v3.1.1 CONNACK return code.
// Unknown codes map to ReasonUnspecifiedError.
func ReasonFromReturnCode(code byte) ReasonCode {
	if int(code) < len(returnCodeReasons) {
		return returnCodeReasons[code]
	}
	return ReasonUnspecifiedError
}
