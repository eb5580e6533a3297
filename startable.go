package trace

import (
	"fmt"
	"sync"
	"sync/atomic"
	"weak"
)

// State enumerates the lifecycle states shared by every managed component.
type State int32

const (
	StateUnstarted State = iota
	StateStarting
	StateStarted
	StateRestarting
	StateStopping
	StateStopped
	StateFailedToStart
	StateFailedToStop
	StateDisposing
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "Unstarted"
	case StateStarting:
		return "Starting"
	case StateStarted:
		return "Started"
	case StateRestarting:
		return "Restarting"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateFailedToStart:
		return "FailedToStart"
	case StateFailedToStop:
		return "FailedToStop"
	case StateDisposing:
		return "Disposing"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// IsDisposed reports whether the disposal path has been entered.
func (s State) IsDisposed() bool {
	return s == StateDisposing || s == StateDisposed
}

// Startable is the lifecycle contract implemented by every managed component.
type Startable interface {
	Start() error
	Stop() error
	Dispose() error
	State() State
}

// Disposable is implemented by components that release resources on dispose.
type Disposable interface {
	Dispose() error
}

// disposeRef resolves a weakly-held disposable, nil once collected.
type disposeRef func() Disposable

// Lifecycle implements the shared start/stop/dispose state machine.
// Components embed it by value and wire hooks through Init before first use.
// Transitions are guarded by a per-object mutex; the state field itself is
// atomic so readers outside a transition never take the lock.
type Lifecycle struct {
	mu    sync.Mutex
	state atomic.Int32

	name      string
	setup     *SetupLog
	onStart   func() error
	onStop    func() error
	onDispose func() error

	onChange  []func(from, to State)
	autoTried bool

	stopRefs []disposeRef // disposed on every stop, then cleared
	linkRefs []disposeRef // disposed only when this component is disposed
}

// Init wires the lifecycle before first use. Hooks may be nil.
func (lc *Lifecycle) Init(name string, setup *SetupLog, onStart, onStop, onDispose func() error) {
	lc.name = name
	lc.setup = setup
	lc.onStart = onStart
	lc.onStop = onStop
	lc.onDispose = onDispose
}

// State returns the current lifecycle state without locking.
func (lc *Lifecycle) State() State {
	return State(lc.state.Load())
}

// Name returns the component name used in setup log entries.
func (lc *Lifecycle) Name() string {
	return lc.name
}

// OnStateChange registers a handler fired on every state transition.
func (lc *Lifecycle) OnStateChange(fn func(from, to State)) {
	lc.mu.Lock()
	lc.onChange = append(lc.onChange, fn)
	lc.mu.Unlock()
}

// setState transitions to the given state and fires change handlers.
// Caller must hold mu.
func (lc *Lifecycle) setState(to State) {
	from := State(lc.state.Load())
	if from == to {
		return
	}
	lc.state.Store(int32(to))
	for _, fn := range lc.onChange {
		fn(from, to)
	}
}

// Start moves the component to Started, restarting if already started.
// Start on a disposed component fails with ErrDisposed.
func (lc *Lifecycle) Start() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	switch lc.State() {
	case StateDisposing, StateDisposed:
		return fmt.Errorf("%s: %w", lc.name, ErrDisposed)
	case StateStarting, StateRestarting:
		return nil
	case StateStarted:
		lc.setState(StateRestarting)
		if lc.onStop != nil {
			if err := lc.onStop(); err != nil {
				lc.setState(StateFailedToStart)
				return &StartError{Component: lc.name, Cause: err}
			}
		}
	default:
		lc.setState(StateStarting)
	}

	if lc.onStart != nil {
		if err := lc.onStart(); err != nil {
			lc.setState(StateFailedToStart)
			if lc.setup != nil {
				lc.setup.Error(lc.name, err, "start failed")
			}
			return &StartError{Component: lc.name, Cause: err}
		}
	}

	lc.setState(StateStarted)
	if lc.setup != nil {
		lc.setup.Verbose(lc.name, "started")
	}
	return nil
}

// Stop moves a started component to Stopped and disposes the stop-list.
// Stop is idempotent: a no-op from Unstarted, Stopped and Disposed.
func (lc *Lifecycle) Stop() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.stopLocked()
}

func (lc *Lifecycle) stopLocked() error {
	switch lc.State() {
	case StateStarted, StateFailedToStart:
	default:
		return nil
	}

	lc.setState(StateStopping)

	var err error
	if lc.onStop != nil {
		err = lc.onStop()
	}
	lc.disposeRefs(&lc.stopRefs)

	if err != nil {
		lc.setState(StateFailedToStop)
		if lc.setup != nil {
			lc.setup.Error(lc.name, err, "stop failed")
		}
		return fmt.Errorf("trace: failed to stop %s: %w", lc.name, err)
	}

	lc.setState(StateStopped)
	if lc.setup != nil {
		lc.setup.Verbose(lc.name, "stopped")
	}
	return nil
}

// Dispose stops the component if needed and releases linked disposables.
// Once Disposing is entered only Disposed may follow; Dispose is terminal.
func (lc *Lifecycle) Dispose() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.State().IsDisposed() {
		return nil
	}

	stopErr := lc.stopLocked()
	lc.setState(StateDisposing)

	var err error
	if lc.onDispose != nil {
		err = lc.onDispose()
	}
	lc.disposeRefs(&lc.linkRefs)
	lc.disposeRefs(&lc.stopRefs)

	lc.setState(StateDisposed)

	if stopErr != nil || err != nil {
		return combineErrors(stopErr, err)
	}
	return nil
}

// EnsureAutoStarted attempts Start exactly once from Unstarted.
// Failures are captured to the setup log but never returned.
func (lc *Lifecycle) EnsureAutoStarted() {
	lc.mu.Lock()
	if lc.autoTried || lc.State() != StateUnstarted {
		lc.mu.Unlock()
		return
	}
	lc.autoTried = true
	lc.mu.Unlock()

	if err := lc.Start(); err != nil && lc.setup != nil {
		lc.setup.Error(lc.name, err, "auto-start failed")
	}
}

// disposeRefs disposes every still-reachable target and clears the list.
// Failures are isolated per disposable and recorded, never propagated.
func (lc *Lifecycle) disposeRefs(refs *[]disposeRef) {
	for _, ref := range *refs {
		d := ref()
		if d == nil {
			continue // Target already collected
		}
		if err := d.Dispose(); err != nil && lc.setup != nil {
			lc.setup.Error(lc.name, err, "dispose failed for registered disposable")
		}
	}
	*refs = nil
}

// DisposeOnStop registers a disposable disposed on every Stop of lc.
// The registration holds the target weakly so it never extends lifetimes.
func DisposeOnStop[T any, PT interface {
	*T
	Disposable
}](lc *Lifecycle, d PT) {
	ref := makeWeakRef[T, PT](d)
	lc.mu.Lock()
	lc.stopRefs = append(lc.stopRefs, ref)
	lc.mu.Unlock()
}

// LinkDispose registers a disposable disposed only when lc itself is disposed.
// The registration holds the target weakly so it never extends lifetimes.
func LinkDispose[T any, PT interface {
	*T
	Disposable
}](lc *Lifecycle, d PT) {
	ref := makeWeakRef[T, PT](d)
	lc.mu.Lock()
	lc.linkRefs = append(lc.linkRefs, ref)
	lc.mu.Unlock()
}

func makeWeakRef[T any, PT interface {
	*T
	Disposable
}](d PT) disposeRef {
	wp := weak.Make((*T)(d))
	return func() Disposable {
		if p := wp.Value(); p != nil {
			return PT(p)
		}
		return nil
	}
}
