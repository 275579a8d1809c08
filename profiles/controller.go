package profiles

import (
	"sync"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	log "github.com/sirupsen/logrus"
)

// Target is the part of the volume service the controller drives.
type Target interface {
	GetAll() mainvolume.Snapshot
	Configure(stepCount, currentStep uint32) error
}

type stepKey struct {
	mode string
	call bool
}

// Controller follows the audio mode and the call state and reconfigures the
// volume scale accordingly. It remembers the step last used in every mode,
// for media and for calls, and restores it when the mode comes back.
type Controller struct {
	mu      sync.Mutex
	target  Target
	table   *Table
	profile Profile
	call    bool
	steps   map[stepKey]uint32
	logger  *log.Logger
}

// NewController applies the profile of mode to the target.
func NewController(target Target, table *Table, mode string, logger *log.Logger) (*Controller, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	c := &Controller{
		target: target,
		table:  table,
		steps:  make(map[stepKey]uint32),
		logger: logger,
	}

	profile, ok := table.Lookup(mode)
	if !ok {
		logger.Infof("⚠️ No steps for mode %s, using %s", mode, profile.Mode)
	}
	c.profile = profile

	snap := target.GetAll()
	if err := target.Configure(profile.Steps(false), snap.CurrentStep); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Controller) Mode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Mode
}

func (c *Controller) CallActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.call
}

// SwitchMode selects the profile of mode, or the fallback profile when the
// mode is unknown.
func (c *Controller) SwitchMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	profile, ok := c.table.Lookup(mode)
	if !ok {
		c.logger.Infof("⚠️ Failed to find steps for %s, using %s", mode, profile.Mode)
	}

	return c.apply(profile, c.call)
}

// SetCallActive switches between the media and the call scale.
func (c *Controller) SetCallActive(active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.apply(c.profile, active)
}

func (c *Controller) apply(profile Profile, call bool) error {
	snap := c.target.GetAll()
	c.steps[stepKey{mode: c.profile.Mode, call: c.call}] = snap.CurrentStep

	step := c.steps[stepKey{mode: profile.Mode, call: call}]
	count := profile.Steps(call)

	if err := c.target.Configure(count, step); err != nil {
		return err
	}

	c.profile = profile
	c.call = call

	c.logger.Infof(
		"🔀 Mode %s, call %t: %d steps, step %d",
		profile.Mode, call, count, min(step, count-1),
	)
	return nil
}

// HighVolume reports whether the media volume is at or above the high
// volume step of the active profile. It is always false during a call.
func (c *Controller) HighVolume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.call || c.profile.HighVolumeStep == nil {
		return false
	}

	return c.target.GetAll().CurrentStep >= *c.profile.HighVolumeStep
}

// SafeStep returns the loudest media step below the high volume step. The
// boolean is false during a call or when the profile has no such step.
func (c *Controller) SafeStep() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hv := c.profile.HighVolumeStep
	if c.call || hv == nil || *hv == 0 {
		return 0, false
	}

	return *hv - 1, true
}
