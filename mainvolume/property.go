package mainvolume

import "fmt"

const (
	// InterfaceName is the name callers use to address the property set.
	InterfaceName = "com.Nokia.MainVolume1"

	// ObjectPath is the well known path of the main volume object.
	ObjectPath = "/com/meego/mainvolume1"

	// SignalStepsUpdated is the name of the change notification.
	SignalStepsUpdated = "StepsUpdated"

	// DefaultInterfaceRevision is the minor version of the 1.x interface.
	DefaultInterfaceRevision uint32 = 0
)

type Property string

const (
	PropertyInterfaceRevision Property = "InterfaceRevision"
	PropertyStepCount         Property = "StepCount"
	PropertyCurrentStep       Property = "CurrentStep"
)

// Properties lists the exposed properties in description order.
var Properties = []Property{
	PropertyInterfaceRevision,
	PropertyStepCount,
	PropertyCurrentStep,
}

// ParseProperty resolves a property name. Names are case sensitive.
func ParseProperty(name string) (Property, error) {
	switch p := Property(name); p {
	case PropertyInterfaceRevision, PropertyStepCount, PropertyCurrentStep:
		return p, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnknownProperty)
	}
}

func (p Property) String() string {
	return string(p)
}

// Writable reports whether callers may set the property.
func (p Property) Writable() bool {
	return p == PropertyStepCount || p == PropertyCurrentStep
}
