package mainvolume

import "fmt"

// Snapshot is a consistent copy of the volume state.
type Snapshot struct {
	StepCount         uint32 `json:"step_count"`
	CurrentStep       uint32 `json:"current_step"`
	InterfaceRevision uint32 `json:"interface_revision"`
}

// Value returns the value of one property of the snapshot.
func (s Snapshot) Value(p Property) (uint32, error) {
	switch p {
	case PropertyInterfaceRevision:
		return s.InterfaceRevision, nil
	case PropertyStepCount:
		return s.StepCount, nil
	case PropertyCurrentStep:
		return s.CurrentStep, nil
	default:
		return 0, fmt.Errorf("%q: %w", string(p), ErrUnknownProperty)
	}
}

// State holds the volume scale and enforces 0 <= currentStep < stepCount.
//
// State does no locking: it is owned by a Service which serializes every
// access to it.
type State struct {
	stepCount   uint32
	currentStep uint32
	revision    uint32
}

// NewState returns a state with stepCount positions. A restored currentStep
// outside the scale is clamped to the last step.
func NewState(stepCount, currentStep, revision uint32) (*State, error) {
	if stepCount < 1 {
		return nil, fmt.Errorf("step count %d: %w", stepCount, ErrInvalidArgument)
	}

	if currentStep >= stepCount {
		currentStep = stepCount - 1
	}

	return &State{
		stepCount:   stepCount,
		currentStep: currentStep,
		revision:    revision,
	}, nil
}

// SetStepCount changes the number of steps. When the current step falls
// outside the new scale it is moved to the last valid step.
func (st *State) SetStepCount(n uint32) (bool, error) {
	if n < 1 {
		return false, ErrInvalidArgument
	}

	changed := n != st.stepCount
	st.stepCount = n

	if st.currentStep >= n {
		st.currentStep = n - 1
		changed = true
	}

	return changed, nil
}

// SetCurrentStep selects step s. Selecting the current step again is a
// successful no-op.
func (st *State) SetCurrentStep(s uint32) (bool, error) {
	if s >= st.stepCount {
		return false, ErrOutOfRange
	}

	if s == st.currentStep {
		return false, nil
	}

	st.currentStep = s
	return true, nil
}

// Configure replaces the scale and the step at once. The step is clamped to
// the new scale.
func (st *State) Configure(n, s uint32) (bool, error) {
	if n < 1 {
		return false, ErrInvalidArgument
	}

	if s >= n {
		s = n - 1
	}

	changed := n != st.stepCount || s != st.currentStep
	st.stepCount = n
	st.currentStep = s

	return changed, nil
}

func (st *State) Snapshot() Snapshot {
	return Snapshot{
		StepCount:         st.stepCount,
		CurrentStep:       st.currentStep,
		InterfaceRevision: st.revision,
	}
}
