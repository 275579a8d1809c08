package soap

import (
	"strconv"

	"github.com/beevik/etree"
)

// UPnP control error codes.
const (
	ErrorInvalidAction        = 401
	ErrorInvalidArgs          = 402
	ErrorActionFailed         = 501
	ErrorArgumentValueInvalid = 600
	ErrorArgumentOutOfRange   = 601
)

// BuildUPnPAction builds the SOAP request invoking action on serviceURN.
func BuildUPnPAction(serviceURN, action string, args []Arg) ([]byte, error) {
	doc, body := newEnvelope()

	elem := body.CreateElement("u:" + action)
	elem.CreateAttr("xmlns:u", serviceURN)
	appendArgs(elem, args)

	return writeDocument(doc)
}

// BuildUPnPResponse builds a SOAP response with <ActionNameResponse>.
func BuildUPnPResponse(serviceURN, action string, values []Arg) ([]byte, error) {
	doc, body := newEnvelope()

	elem := body.CreateElement("u:" + action + "Response")
	elem.CreateAttr("xmlns:u", serviceURN)
	appendArgs(elem, values)

	return writeDocument(doc)
}

// BuildUPnPFault builds the standard UPnP fault: a s:Client Fault carrying
// an UPnPError detail.
func BuildUPnPFault(code int, description string) ([]byte, error) {
	doc, body := newEnvelope()

	fault := body.CreateElement("s:Fault")
	fault.CreateElement("faultcode").SetText("s:Client")
	fault.CreateElement("faultstring").SetText("UPnPError")

	upnpErr := fault.CreateElement("detail").CreateElement("UPnPError")
	upnpErr.CreateAttr("xmlns", ControlNS)
	upnpErr.CreateElement("errorCode").SetText(strconv.Itoa(code))
	upnpErr.CreateElement("errorDescription").SetText(description)

	return writeDocument(doc)
}

func newEnvelope() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", EnvelopeNS)
	env.CreateAttr("s:encodingStyle", EncodingNS)

	return doc, env.CreateElement("s:Body")
}

func appendArgs(elem *etree.Element, args []Arg) {
	for _, a := range args {
		elem.CreateElement(a.Name).SetText(a.Value)
	}
}

func writeDocument(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	return doc.WriteToBytes()
}
