package unii

import "fmt"

// Command is a 16-bit protocol command id. Ids below 0x0008 are
// connection-management commands and carry a distinct packet-type tag
// on the wire.
type Command uint16

const (
	CmdConnectionRequest  Command = 0x0001
	CmdConnectionAccepted Command = 0x0002
	CmdConnectionRejected Command = 0x0003
	CmdNormalDisconnect   Command = 0x0014

	CmdInputStatusResponse Command = 0x0105
	CmdRequestInputStatus  Command = 0x0106

	// CmdEventOccurred carries a free-text panel log entry.
	CmdEventOccurred Command = 0x0102

	CmdArmSection            Command = 0x0112
	CmdArmSectionResponse    Command = 0x0113
	CmdDisarmSection         Command = 0x0114
	CmdDisarmSectionResponse Command = 0x0115

	CmdRequestSectionStatus  Command = 0x0116
	CmdSectionStatusResponse Command = 0x0117

	CmdBypassInput   Command = 0x0118
	CmdUnbypassInput Command = 0x011A

	// 0x0119 doubles as the bypass response and the unsolicited
	// section state change notification. The correlator resolves the
	// collision: while a bypass exchange is pending the frame is the
	// response, otherwise it is an event.
	CmdBypassInputResponse      Command = 0x0119
	CmdSectionArmedStateChanged Command = 0x0119
	CmdUnbypassInputResponse    Command = 0x011B

	CmdRequestInputArrangement  Command = 0x0140
	CmdInputArrangementResponse Command = 0x0141
)

func (c Command) String() string {
	switch c {
	case CmdConnectionRequest:
		return "connection request"
	case CmdConnectionAccepted:
		return "connection accepted"
	case CmdConnectionRejected:
		return "connection rejected"
	case CmdNormalDisconnect:
		return "normal disconnect"
	case CmdEventOccurred:
		return "event occurred"
	case CmdInputStatusResponse:
		return "input status response"
	case CmdRequestInputStatus:
		return "request input status"
	case CmdArmSection:
		return "arm section"
	case CmdArmSectionResponse:
		return "arm section response"
	case CmdDisarmSection:
		return "disarm section"
	case CmdDisarmSectionResponse:
		return "disarm section response"
	case CmdRequestSectionStatus:
		return "request section status"
	case CmdSectionStatusResponse:
		return "section status response"
	case CmdBypassInput:
		return "bypass input"
	case CmdBypassInputResponse:
		return "bypass response/section state changed"
	case CmdUnbypassInput:
		return "unbypass input"
	case CmdUnbypassInputResponse:
		return "unbypass input response"
	case CmdRequestInputArrangement:
		return "request input arrangement"
	case CmdInputArrangementResponse:
		return "input arrangement response"
	default:
		return fmt.Sprintf("command 0x%04X", uint16(c))
	}
}

// packetType returns the wire tag distinguishing connection-management
// commands from application commands.
func (c Command) packetType() byte {
	if c < 0x0008 {
		return 0x01
	}
	return 0x02
}

// isEventCommand reports whether a frame with this command id is an
// unsolicited notification when no exchange is expecting it.
func isEventCommand(c Command) bool {
	return c == CmdSectionArmedStateChanged || c == CmdEventOccurred
}
