package system

// Linux input-event-codes.h
const (
	evKey = 0x01

	keyS         = 31
	keyLeftCtrl  = 29
	keyRightCtrl = 97
	keyF4        = 62
)

// Key values of an EV_KEY event.
const (
	keyReleased = 0
	keyPressed  = 1
	keyRepeated = 2
)

type KeyAction int

const (
	KeyNone KeyAction = iota
	KeySave
	KeyClose
)

func (a KeyAction) String() string {
	switch a {
	case KeySave:
		return "save"
	case KeyClose:
		return "close"
	default:
		return "none"
	}
}

// KeyHandlers are invoked by WatchKeyboard. Either may be nil.
type KeyHandlers struct {
	Save  func()
	Close func()
}

// keyState tracks modifier state for one input device.
type keyState struct {
	leftCtrl  bool
	rightCtrl bool
}

// feed folds one evdev record into the state and reports the board action it
// completes, if any. Autorepeat never triggers an action.
func (k *keyState) feed(typ, code uint16, value int32) KeyAction {
	if typ != evKey {
		return KeyNone
	}
	switch code {
	case keyLeftCtrl:
		k.leftCtrl = value != keyReleased
	case keyRightCtrl:
		k.rightCtrl = value != keyReleased
	case keyS:
		if value == keyPressed && (k.leftCtrl || k.rightCtrl) {
			return KeySave
		}
	case keyF4:
		if value == keyPressed {
			return KeyClose
		}
	}
	return KeyNone
}

func (h KeyHandlers) run(action KeyAction) {
	switch action {
	case KeySave:
		if h.Save != nil {
			h.Save()
		}
	case KeyClose:
		if h.Close != nil {
			h.Close()
		}
	}
}
