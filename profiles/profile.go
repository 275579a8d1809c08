package profiles

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// FallbackMode is the mode used when no profile matches the requested one.
const FallbackMode = "fallback"

// Profile gives the volume scale of one audio mode, for media playback and
// for calls.
type Profile struct {
	Mode       string `yaml:"mode"`
	MediaSteps uint32 `yaml:"media_steps"`
	CallSteps  uint32 `yaml:"call_steps"`

	// HighVolumeStep is the first media step considered harmful for long
	// listening. Nil when the mode has no such limit.
	HighVolumeStep *uint32 `yaml:"high_volume_step,omitempty"`
}

// Steps returns the step count for the media or the call context.
func (p Profile) Steps(call bool) uint32 {
	if call {
		return p.CallSteps
	}
	return p.MediaSteps
}

func (p Profile) Validate() error {
	if p.Mode == "" {
		return errors.New("profile without mode")
	}
	if p.MediaSteps < 1 {
		return fmt.Errorf("profile %s: media_steps must be at least 1", p.Mode)
	}
	if p.CallSteps < 1 {
		return fmt.Errorf("profile %s: call_steps must be at least 1", p.Mode)
	}
	if p.HighVolumeStep != nil && *p.HighVolumeStep >= p.MediaSteps {
		return fmt.Errorf(
			"profile %s: high_volume_step %d over bounds (max value %d)",
			p.Mode, *p.HighVolumeStep, p.MediaSteps-1,
		)
	}
	return nil
}

// Fallback returns the linear profile used when a mode has no tuning: 10
// call steps and 20 media steps.
func Fallback() Profile {
	return Profile{
		Mode:       FallbackMode,
		MediaSteps: 20,
		CallSteps:  10,
	}
}

// Table maps modes to profiles. It always holds a fallback profile.
type Table struct {
	profiles map[string]Profile
}

// NewTable validates the profiles and indexes them by mode. A profile named
// "fallback" replaces the built-in one.
func NewTable(profiles ...Profile) (*Table, error) {
	t := &Table{
		profiles: map[string]Profile{FallbackMode: Fallback()},
	}

	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		t.profiles[p.Mode] = p
	}

	return t, nil
}

// Lookup returns the profile of mode and whether it was found. When it was
// not, the fallback profile is returned.
func (t *Table) Lookup(mode string) (Profile, bool) {
	if p, ok := t.profiles[mode]; ok {
		return p, true
	}
	return t.profiles[FallbackMode], false
}

func (t *Table) Len() int {
	return len(t.profiles)
}

// All iterates over the profiles sorted by mode.
func (t *Table) All() iter.Seq[Profile] {
	modes := make([]string, 0, len(t.profiles))
	for mode := range t.profiles {
		modes = append(modes, mode)
	}
	slices.Sort(modes)

	return func(yield func(Profile) bool) {
		for _, mode := range modes {
			if !yield(t.profiles[mode]) {
				return
			}
		}
	}
}
