package pmoupnp

import (
	"fmt"
	"net/http"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"
)

const (
	ServiceName    = "MainVolume"
	ServiceVersion = 1
)

// State variable names of the service. The three properties use their
// own names, the others only type action arguments.
const (
	ArgTypeInterface    = "A_ARG_TYPE_Interface"
	ArgTypePropertyName = "A_ARG_TYPE_PropertyName"
	ArgTypeValue        = "A_ARG_TYPE_Value"
	ArgTypeMode         = "A_ARG_TYPE_Mode"
	ArgTypeActive       = "A_ARG_TYPE_Active"
)

// ModeController switches the volume scale between audio modes.
type ModeController interface {
	SwitchMode(mode string) error
	SetCallActive(active bool) error
}

// ControlMetrics counts control requests by action and UPnP error code.
type ControlMetrics interface {
	ControlRequest(action string, status int)
}

type noControlMetrics struct{}

func (noControlMetrics) ControlRequest(string, int) {}

// Service exposes a mainvolume.Service as a UPnP service: SCPD, SOAP
// control, GENA eventing and a websocket signal stream.
type Service struct {
	volume   *mainvolume.Service
	modes    ModeController
	metrics  ControlMetrics
	logger   *log.Logger
	eventing *Eventing

	statevariables StateVariableSet
	actions        ActionSet
}

type ServiceOption func(*Service)

// WithModeController adds the SwitchMode and SetCallActive actions.
func WithModeController(c ModeController) ServiceOption {
	return func(svc *Service) {
		svc.modes = c
	}
}

func WithControlMetrics(m ControlMetrics) ServiceOption {
	return func(svc *Service) {
		svc.metrics = m
	}
}

func WithServiceLogger(l *log.Logger) ServiceOption {
	return func(svc *Service) {
		svc.logger = l
	}
}

func WithEventingConfig(cfg EventingConfig) ServiceOption {
	return func(svc *Service) {
		svc.eventing.config = cfg.withDefaults()
	}
}

func NewService(volume *mainvolume.Service, opts ...ServiceOption) *Service {
	svc := &Service{
		volume:         volume,
		metrics:        noControlMetrics{},
		logger:         log.StandardLogger(),
		statevariables: make(StateVariableSet),
		actions:        make(ActionSet),
	}
	svc.eventing = newEventing(volume, EventingConfig{})

	for _, opt := range opts {
		opt(svc)
	}

	svc.eventing.logger = svc.logger
	svc.buildTables()

	return svc
}

func (svc *Service) buildTables() {
	revision := NewStateVariable(mainvolume.PropertyInterfaceRevision.String(), TypeUI4)
	stepCount := NewStateVariable(mainvolume.PropertyStepCount.String(), TypeUI4).
		Evented().
		WithMinimum(1)
	currentStep := NewStateVariable(mainvolume.PropertyCurrentStep.String(), TypeUI4).
		Evented().
		WithMinimum(0)
	iface := NewStateVariable(ArgTypeInterface, TypeString).
		WithAllowedValues(mainvolume.InterfaceName)
	property := NewStateVariable(ArgTypePropertyName, TypeString)
	for _, p := range mainvolume.Properties {
		property.WithAllowedValues(p.String())
	}
	value := NewStateVariable(ArgTypeValue, TypeUI4)

	for _, sv := range []*StateVariable{revision, stepCount, currentStep, iface, property, value} {
		svc.statevariables.Insert(sv)
	}

	svc.actions.Insert(NewAction(ActionNameGet).
		In("Interface", iface).
		In("PropertyName", property).
		Out("Value", value))

	svc.actions.Insert(NewAction(ActionNameSet).
		In("Interface", iface).
		In("PropertyName", property).
		In("Value", value))

	svc.actions.Insert(NewAction(ActionNameGetAll).
		In("Interface", iface).
		Out(revision.Name(), revision).
		Out(stepCount.Name(), stepCount).
		Out(currentStep.Name(), currentStep))

	if svc.modes == nil {
		return
	}

	mode := NewStateVariable(ArgTypeMode, TypeString)
	active := NewStateVariable(ArgTypeActive, TypeBoolean)
	svc.statevariables.Insert(mode)
	svc.statevariables.Insert(active)

	svc.actions.Insert(NewAction(ActionNameSwitchMode).In("Mode", mode))
	svc.actions.Insert(NewAction(ActionNameSetCallActive).In("Active", active))
}

func (svc *Service) Name() string {
	return ServiceName
}

func (svc *Service) TypeID() string {
	return "Service"
}

func (svc *Service) Volume() *mainvolume.Service {
	return svc.volume
}

func (svc *Service) Eventing() *Eventing {
	return svc.eventing
}

func (svc *Service) Actions() *ActionSet {
	return &svc.actions
}

func (svc *Service) ServiceType() string {
	return fmt.Sprintf("urn:schemas-upnp-org:service:%s:%d", ServiceName, ServiceVersion)
}

func (svc *Service) ServiceId() string {
	return fmt.Sprintf("urn:upnp-org:serviceId:%s", ServiceName)
}

func (svc *Service) BaseRoute() string {
	return mainvolume.ObjectPath
}

func (svc *Service) ControlURL() string {
	return svc.BaseRoute() + "/control"
}

func (svc *Service) EventSubURL() string {
	return svc.BaseRoute() + "/event"
}

func (svc *Service) SCPDURL() string {
	return svc.BaseRoute() + "/desc.xml"
}

func (svc *Service) WebSocketURL() string {
	return svc.BaseRoute() + "/ws"
}

// RegisterURLs mounts the service handlers on mux.
func (svc *Service) RegisterURLs(mux *http.ServeMux) {
	mux.HandleFunc(svc.SCPDURL(), ServeXML(svc.SCPDElement))
	mux.HandleFunc(svc.ControlURL(), svc.ControlHandler())
	mux.HandleFunc(svc.EventSubURL(), svc.eventing.Handler())
	mux.HandleFunc(svc.WebSocketURL(), svc.WebSocketHandler())

	svc.logger.Infof("✅ Service %s mounted on %s", svc.Name(), svc.BaseRoute())
}

func (svc *Service) SCPDElement() *etree.Element {
	elem := etree.NewElement("scpd")
	elem.CreateAttr("xmlns", "urn:schemas-upnp-org:service-1-0")

	spec := elem.CreateElement("specVersion")
	spec.CreateElement("major").SetText("1")
	spec.CreateElement("minor").SetText("0")

	elem.AddChild(svc.actions.ToXMLElement())
	elem.AddChild(svc.statevariables.ToXMLElement())

	return elem
}

// ToXMLElement renders the <service> entry of the device description.
func (svc *Service) ToXMLElement() *etree.Element {
	elem := etree.NewElement("service")

	elem.CreateElement("serviceType").SetText(svc.ServiceType())
	elem.CreateElement("serviceId").SetText(svc.ServiceId())
	elem.CreateElement("SCPDURL").SetText(svc.SCPDURL())
	elem.CreateElement("controlURL").SetText(svc.ControlURL())
	elem.CreateElement("eventSubURL").SetText(svc.EventSubURL())

	return elem
}
