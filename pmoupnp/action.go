package pmoupnp

import (
	"iter"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/internal/objectstore"
	"github.com/beevik/etree"
)

type Argument struct {
	name          string
	stateVariable *StateVariable
	out           bool
}

func (a *Argument) Name() string {
	return a.name
}

func (a *Argument) StateVariable() *StateVariable {
	return a.stateVariable
}

func (a *Argument) IsIn() bool {
	return !a.out
}

func (a *Argument) IsOut() bool {
	return a.out
}

func (a *Argument) ToXMLElement() *etree.Element {
	elem := etree.NewElement("argument")
	elem.CreateElement("name").SetText(a.name)

	if a.out {
		elem.CreateElement("direction").SetText("out")
	} else {
		elem.CreateElement("direction").SetText("in")
	}

	elem.CreateElement("relatedStateVariable").SetText(a.stateVariable.Name())
	return elem
}

// Action describes a control action. Arguments keep their declaration
// order, which is the order of the SOAP elements.
type Action struct {
	name      string
	arguments []*Argument
}

func NewAction(name string) *Action {
	return &Action{name: name}
}

func (a *Action) Name() string {
	return a.name
}

func (a *Action) TypeID() string {
	return "Action"
}

func (a *Action) In(name string, sv *StateVariable) *Action {
	a.arguments = append(a.arguments, &Argument{name: name, stateVariable: sv})
	return a
}

func (a *Action) Out(name string, sv *StateVariable) *Action {
	a.arguments = append(a.arguments, &Argument{name: name, stateVariable: sv, out: true})
	return a
}

func (a *Action) Arguments() []*Argument {
	return a.arguments
}

func (a *Action) InArguments() iter.Seq[*Argument] {
	return func(yield func(*Argument) bool) {
		for _, arg := range a.arguments {
			if arg.IsIn() && !yield(arg) {
				return
			}
		}
	}
}

func (a *Action) ToXMLElement() *etree.Element {
	elem := etree.NewElement("action")
	elem.CreateElement("name").SetText(a.name)

	if len(a.arguments) > 0 {
		list := elem.CreateElement("argumentList")
		for _, arg := range a.arguments {
			list.AddChild(arg.ToXMLElement())
		}
	}

	return elem
}

type ActionSet objectstore.ObjectSet[*Action]

func (m *ActionSet) Insert(obj *Action) error {
	return (*objectstore.ObjectSet[*Action])(m).Insert(obj)
}

func (m *ActionSet) Get(name string) (*Action, bool) {
	return (*objectstore.ObjectSet[*Action])(m).Get(name)
}

func (m *ActionSet) All() iter.Seq[*Action] {
	return (*objectstore.ObjectSet[*Action])(m).Sorted()
}

func (m *ActionSet) ToXMLElement() *etree.Element {
	elem := etree.NewElement("actionList")

	for ac := range m.All() {
		elem.AddChild(ac.ToXMLElement())
	}

	return elem
}
