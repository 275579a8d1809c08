package pmoupnp

import (
	"iter"
	"strconv"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/internal/objectstore"
	"github.com/beevik/etree"
)

// DataType is the UPnP data type of a state variable.
type DataType string

const (
	TypeUI4     DataType = "ui4"
	TypeString  DataType = "string"
	TypeBoolean DataType = "boolean"
)

// StateVariable is one entry of the service state table.
type StateVariable struct {
	name       string
	dataType   DataType
	sendEvents bool
	minimum    *uint32
	maximum    *uint32
	allowed    []string
}

func NewStateVariable(name string, dataType DataType) *StateVariable {
	return &StateVariable{
		name:     name,
		dataType: dataType,
	}
}

func (sv *StateVariable) Name() string {
	return sv.name
}

func (sv *StateVariable) TypeID() string {
	return "StateVariable"
}

func (sv *StateVariable) DataType() DataType {
	return sv.dataType
}

// Evented marks the variable as sent in GENA events.
func (sv *StateVariable) Evented() *StateVariable {
	sv.sendEvents = true
	return sv
}

func (sv *StateVariable) IsSendingEvents() bool {
	return sv.sendEvents
}

func (sv *StateVariable) WithMinimum(min uint32) *StateVariable {
	sv.minimum = &min
	return sv
}

func (sv *StateVariable) WithMaximum(max uint32) *StateVariable {
	sv.maximum = &max
	return sv
}

func (sv *StateVariable) WithAllowedValues(values ...string) *StateVariable {
	sv.allowed = append(sv.allowed, values...)
	return sv
}

func (sv *StateVariable) AllowedValues() []string {
	return sv.allowed
}

func (sv *StateVariable) ToXMLElement() *etree.Element {
	elem := etree.NewElement("stateVariable")

	if sv.sendEvents {
		elem.CreateAttr("sendEvents", "yes")
	} else {
		elem.CreateAttr("sendEvents", "no")
	}

	elem.CreateElement("name").SetText(sv.name)
	elem.CreateElement("dataType").SetText(string(sv.dataType))

	if len(sv.allowed) > 0 {
		list := elem.CreateElement("allowedValueList")
		for _, v := range sv.allowed {
			list.CreateElement("allowedValue").SetText(v)
		}
	}

	if sv.minimum != nil || sv.maximum != nil {
		rng := elem.CreateElement("allowedValueRange")
		if sv.minimum != nil {
			rng.CreateElement("minimum").SetText(strconv.FormatUint(uint64(*sv.minimum), 10))
		}
		if sv.maximum != nil {
			rng.CreateElement("maximum").SetText(strconv.FormatUint(uint64(*sv.maximum), 10))
		}
	}

	return elem
}

type StateVariableSet objectstore.ObjectSet[*StateVariable]

func (m *StateVariableSet) Insert(obj *StateVariable) error {
	return (*objectstore.ObjectSet[*StateVariable])(m).Insert(obj)
}

func (m *StateVariableSet) Get(name string) (*StateVariable, bool) {
	return (*objectstore.ObjectSet[*StateVariable])(m).Get(name)
}

func (m *StateVariableSet) All() iter.Seq[*StateVariable] {
	return (*objectstore.ObjectSet[*StateVariable])(m).Sorted()
}

func (m *StateVariableSet) ToXMLElement() *etree.Element {
	elem := etree.NewElement("serviceStateTable")

	for sv := range m.All() {
		elem.AddChild(sv.ToXMLElement())
	}

	return elem
}
