package dtls

import "strconv"

// State is the lifecycle state of a Session.
type State int32

const (
	StateUnstarted State = iota
	StateHandshaking
	StateEstablished
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateUnstarted:   "Unstarted",
	StateHandshaking: "Handshaking",
	StateEstablished: "Established",
	StateClosed:      "Closed",
	StateFailed:      "Failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// IsTerminal reports whether no further sends can succeed.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateFailed
}

// Mode is the authentication mode selected by the peer during the handshake.
type Mode int32

const (
	ModeUnknown Mode = iota
	ModePSK
	ModeCertificate
)

func (m Mode) String() string {
	switch m {
	case ModePSK:
		return "psk"
	case ModeCertificate:
		return "certificate"
	}
	return "unknown"
}
