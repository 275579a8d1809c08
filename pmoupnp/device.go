package pmoupnp

import (
	"fmt"
	"runtime"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/ssdp"
	"github.com/beevik/etree"
)

const (
	DeviceName    = "MainVolume"
	DeviceVersion = 1
)

// Device is the root device carrying the MainVolume service.
type Device struct {
	udn          string
	friendlyName string
	manufacturer string
	modelName    string
	service      *Service
}

func NewDevice(udn, friendlyName string, service *Service) *Device {
	return &Device{
		udn:          udn,
		friendlyName: friendlyName,
		manufacturer: "petite-maison-orange",
		modelName:    "PMOVolume",
		service:      service,
	}
}

func (d *Device) Name() string {
	return d.friendlyName
}

func (d *Device) TypeID() string {
	return "Device"
}

func (d *Device) UDN() string {
	return d.udn
}

func (d *Device) Service() *Service {
	return d.service
}

func (d *Device) DeviceType() string {
	return fmt.Sprintf("urn:schemas-upnp-org:device:%s:%d", DeviceName, DeviceVersion)
}

func (d *Device) DescriptionURL() string {
	return "/description.xml"
}

func (d *Device) ToXMLElement() *etree.Element {
	elem := etree.NewElement("root")
	elem.CreateAttr("xmlns", "urn:schemas-upnp-org:device-1-0")

	spec := elem.CreateElement("specVersion")
	spec.CreateElement("major").SetText("1")
	spec.CreateElement("minor").SetText("0")

	device := elem.CreateElement("device")
	device.CreateElement("deviceType").SetText(d.DeviceType())
	device.CreateElement("friendlyName").SetText(d.friendlyName)
	device.CreateElement("manufacturer").SetText(d.manufacturer)
	device.CreateElement("modelName").SetText(d.modelName)
	device.CreateElement("UDN").SetText("uuid:" + d.udn)

	device.CreateElement("serviceList").AddChild(d.service.ToXMLElement())

	return elem
}

// SSDPDevice describes the device for the SSDP announcer.
func (d *Device) SSDPDevice(baseURL string) *ssdp.Device {
	return &ssdp.Device{
		UUID:       d.udn,
		DeviceType: d.DeviceType(),
		Location:   baseURL + d.DescriptionURL(),
		Server:     fmt.Sprintf("%s/%s UPnP/1.1 PMOVolume/1.0", runtime.GOOS, runtime.GOARCH),
		NTs: []string{
			"upnp:rootdevice",
			"uuid:" + d.udn,
			d.DeviceType(),
			d.service.ServiceType(),
		},
	}
}
