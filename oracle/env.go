package oracle

import "time"

// Env supplies the host-provided ambient values for a single contract call:
// the identity of the calling account, the host clock reading at the moment
// of the call, and a fire-and-forget event sink. Injecting these per call
// keeps the contract testable without any host runtime.
type Env interface {
	// Caller returns the account identifier of the current invocation.
	Caller() string

	// BlockTimestamp returns the host clock reading in nanoseconds.
	BlockTimestamp() uint64

	// Emit sends a free-form event line to the host event sink.
	// No acknowledgement is consumed.
	Emit(event string)
}

// EventSink accepts contract event lines.
type EventSink interface {
	Emit(event string)
}

// SinkFunc adapts a plain function to an EventSink.
type SinkFunc func(event string)

func (f SinkFunc) Emit(event string) { f(event) }

// CallEnv is an Env with fixed values, used by hosts that resolve the
// caller and timestamp upfront (and by tests).
type CallEnv struct {
	Account   string
	Timestamp uint64
	Events    EventSink
}

func (e CallEnv) Caller() string { return e.Account }

func (e CallEnv) BlockTimestamp() uint64 { return e.Timestamp }

func (e CallEnv) Emit(event string) {
	if e.Events != nil {
		e.Events.Emit(event)
	}
}

// SystemEnv returns an Env bound to the given account that reads the
// system nanosecond clock at call time.
func SystemEnv(account string, events EventSink) Env {
	return systemEnv{account: account, events: events}
}

type systemEnv struct {
	account string
	events  EventSink
}

func (e systemEnv) Caller() string { return e.account }

func (e systemEnv) BlockTimestamp() uint64 { return uint64(time.Now().UnixNano()) }

func (e systemEnv) Emit(event string) {
	if e.events != nil {
		e.events.Emit(event)
	}
}
