package core

import (
	"sync"

	"github.com/spaghettifunk/parallax/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed. Data: *MouseEvent
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released. Data: *MouseEvent
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved. Data: *MouseEvent
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel. Data: *MouseEvent
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS. Data: *SystemEvent
	EVENT_CODE_RESIZED EventCode = 0x08

	// An asset on disk changed. Data: AssetEvent
	EVENT_CODE_ASSET_CHANGED EventCode = 0x09

	// The head tracker connected or disconnected. Data: bool
	EVENT_CODE_TRACKER_STATE EventCode = 0x0A

	MAX_EVENT_CODE EventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

// Capacity of the deferred event queue.
const EVENT_QUEUE_SIZE = 256

type EventContext struct {
	Type   EventCode
	Sender interface{}
	Data   interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path    string
	Removed bool
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	registered [MAX_MESSAGE_CODES][]*registeredEvent
	// events posted from other goroutines, drained on the render thread
	pending *containers.RingQueue[EventContext]
	mutex   sync.Mutex
}

var eventState *eventSystemState = nil

/**
 * @brief Initializes the event system. Calling it again resets every registration.
 */
func EventSystemInitialize() bool {
	eventState = &eventSystemState{
		pending: containers.NewRingQueue[EventContext](EVENT_QUEUE_SIZE),
	}
	return true
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	for i := range eventState.registered {
		eventState.registered[i] = nil
	}
	eventState = nil
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 * @param code The event code to listen for.
 * @param listener A pointer to a listener instance. Can be nil.
 * @param onEvent The callback function to be invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func EventRegister(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil {
		return false
	}
	for _, e := range eventState.registered[code] {
		if listener != nil && e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code.
 * @returns true if the event is successfully unregistered; otherwise false.
 */
func EventUnregister(code EventCode, listener interface{}) bool {
	if eventState == nil {
		return false
	}
	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * Must be called from the render thread.
 * @returns true if handled, otherwise false.
 */
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	for _, e := range eventState.registered[context.Type] {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// EventPost queues an event from any goroutine. It is delivered by the next EventDispatchPending.
func EventPost(context EventContext) error {
	if eventState == nil {
		return nil
	}
	eventState.mutex.Lock()
	defer eventState.mutex.Unlock()
	if err := eventState.pending.Enqueue(context); err != nil {
		return ErrQueueFull
	}
	return nil
}

// EventDispatchPending fires every queued event in post order and returns how many were delivered.
func EventDispatchPending() int {
	if eventState == nil {
		return 0
	}
	eventState.mutex.Lock()
	batch := make([]EventContext, 0, 8)
	for !eventState.pending.IsEmpty() {
		v, err := eventState.pending.Dequeue()
		if err != nil {
			break
		}
		batch = append(batch, v)
	}
	eventState.mutex.Unlock()

	for _, ctx := range batch {
		EventFire(ctx)
	}
	return len(batch)
}
