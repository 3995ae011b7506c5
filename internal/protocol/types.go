package protocol

import "fmt"

// MessageKind identifies one IPC operation or event category. Request/reply
// kinds are small non-negative integers; event kinds have the high bit set.
// Values outside the known set round-trip losslessly so a newer compositor
// can emit kinds this client has never heard of.
type MessageKind uint32

// EventOffset marks the event half of the kind space.
const EventOffset MessageKind = 0x80000000

// Request/reply kinds.
const (
	RunCommand      MessageKind = 0
	GetWorkspaces   MessageKind = 1
	Subscribe       MessageKind = 2
	GetOutputs      MessageKind = 3
	GetTree         MessageKind = 4
	GetMarks        MessageKind = 5
	GetBarConfig    MessageKind = 6
	GetVersion      MessageKind = 7
	GetBindingModes MessageKind = 8
	GetConfig       MessageKind = 9
	SendTick        MessageKind = 10
	Sync            MessageKind = 11
	GetBindingState MessageKind = 12
	GetInputs       MessageKind = 100
	GetSeats        MessageKind = 101
)

// Event kinds.
const (
	EventWorkspace       MessageKind = EventOffset | 0
	EventMode            MessageKind = EventOffset | 2
	EventWindow          MessageKind = EventOffset | 3
	EventBarconfigUpdate MessageKind = EventOffset | 4
	EventBinding         MessageKind = EventOffset | 5
	EventShutdown        MessageKind = EventOffset | 6
	EventTick            MessageKind = EventOffset | 7
	EventBarStateUpdate  MessageKind = EventOffset | 14
	EventInput           MessageKind = EventOffset | 15
)

// IsEvent reports whether k falls in the event range.
func (k MessageKind) IsEvent() bool {
	return k >= EventOffset
}

var requestNames = map[MessageKind]string{
	RunCommand:      "run_command",
	GetWorkspaces:   "get_workspaces",
	Subscribe:       "subscribe",
	GetOutputs:      "get_outputs",
	GetTree:         "get_tree",
	GetMarks:        "get_marks",
	GetBarConfig:    "get_bar_config",
	GetVersion:      "get_version",
	GetBindingModes: "get_binding_modes",
	GetConfig:       "get_config",
	SendTick:        "send_tick",
	Sync:            "sync",
	GetBindingState: "get_binding_state",
	GetInputs:       "get_inputs",
	GetSeats:        "get_seats",
}

func (k MessageKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	if name, ok := requestNames[k]; ok {
		return name
	}
	if k.IsEvent() {
		return fmt.Sprintf("event(0x80000000|%d)", uint32(k&^EventOffset))
	}
	return fmt.Sprintf("request(%d)", uint32(k))
}

// EventRecord is one decoded event frame handed to the dispatcher. Body is
// the raw payload; only the "change" discriminator is peeked at by the
// dispatcher, full parsing belongs to handlers.
type EventRecord struct {
	Kind MessageKind
	Body []byte
}
