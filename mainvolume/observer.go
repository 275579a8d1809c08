package mainvolume

import (
	"errors"
	"fmt"
)

// StepsUpdated is the notification sent after each change of the scale or
// of the current step.
type StepsUpdated struct {
	StepCount   uint32 `json:"step_count"`
	CurrentStep uint32 `json:"current_step"`

	// Seq increases by one for every notification emitted by a service.
	Seq uint64 `json:"seq"`
}

func (ev StepsUpdated) String() string {
	return fmt.Sprintf("%s(%d, %d) #%d", SignalStepsUpdated, ev.StepCount, ev.CurrentStep, ev.Seq)
}

// Observer receives StepsUpdated notifications.
//
// Notify is called outside of the service lock but before the write that
// produced the event returns to its caller, so it must not block: transports
// queue the event and deliver it from their own goroutine. Notify may read
// the service but must not write to it, since later writes wait for it to
// return. An error from Notify makes the service drop the observer.
type Observer interface {
	Name() string
	Notify(ev StepsUpdated) error
}

var (
	// ErrObserverClosed is returned by observers that have been shut down.
	ErrObserverClosed = errors.New("observer closed")

	// ErrObserverBusy is returned by observers whose delivery queue is full.
	ErrObserverBusy = errors.New("observer queue full")
)

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc struct {
	ID string
	Fn func(StepsUpdated) error
}

func (o ObserverFunc) Name() string { return o.ID }

func (o ObserverFunc) Notify(ev StepsUpdated) error { return o.Fn(ev) }
