package protocol

// eventNames maps each event kind to the name the SUBSCRIBE payload and
// sway-ipc(7) use for it.
var eventNames = map[MessageKind]string{
	EventWorkspace:       "workspace",
	EventMode:            "mode",
	EventWindow:          "window",
	EventBarconfigUpdate: "barconfig_update",
	EventBinding:         "binding",
	EventShutdown:        "shutdown",
	EventTick:            "tick",
	EventBarStateUpdate:  "bar_state_update",
	EventInput:           "input",
}

var eventKinds = func() map[string]MessageKind {
	m := make(map[string]MessageKind, len(eventNames))
	for k, name := range eventNames {
		m[name] = k
	}
	return m
}()

// EventName returns the subscription name for an event kind, or false for
// request kinds and events unknown to this client.
func EventName(k MessageKind) (string, bool) {
	name, ok := eventNames[k]
	return name, ok
}

// EventKindByName resolves a subscription name back to its kind.
func EventKindByName(name string) (MessageKind, bool) {
	k, ok := eventKinds[name]
	return k, ok
}

// AllEventKinds lists every event kind this client knows, in wire-value
// order.
func AllEventKinds() []MessageKind {
	return []MessageKind{
		EventWorkspace,
		EventMode,
		EventWindow,
		EventBarconfigUpdate,
		EventBinding,
		EventShutdown,
		EventTick,
		EventBarStateUpdate,
		EventInput,
	}
}

// Change-type values carried in the "change" field of workspace events.
const (
	WorkspaceInit   = "init"
	WorkspaceEmpty  = "empty"
	WorkspaceFocus  = "focus"
	WorkspaceMove   = "move"
	WorkspaceRename = "rename"
	WorkspaceUrgent = "urgent"
	WorkspaceReload = "reload"
)

// Change-type values carried in the "change" field of window events.
const (
	WindowNew            = "new"
	WindowClose          = "close"
	WindowFocus          = "focus"
	WindowTitle          = "title"
	WindowFullscreenMode = "fullscreen_mode"
	WindowMove           = "move"
	WindowFloating       = "floating"
	WindowUrgent         = "urgent"
	WindowMark           = "mark"
)
