package soap

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

const (
	EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	EncodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
	ControlNS  = "urn:schemas-upnp-org:control-1-0"
)

// Arg is one named argument of an action or of its response. Arguments are
// kept in order since UPnP defines them positionally.
type Arg struct {
	Name  string
	Value string
}

// ActionRequest is an action (or an action response) read from a SOAP body.
type ActionRequest struct {
	Name      string
	Namespace string
	Args      []Arg
}

// Arg returns the value of the named argument.
func (ar *ActionRequest) Arg(name string) (string, bool) {
	for _, a := range ar.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// UPnPError is the detail of a UPnP control fault.
type UPnPError struct {
	Code        int
	Description string
}

func (e *UPnPError) Error() string {
	return fmt.Sprintf("UPnP error %d: %s", e.Code, e.Description)
}

var ErrNotSOAP = errors.New("not a SOAP envelope")

// ParseSOAPEnvelope reads a SOAP document and returns its Body element.
func ParseSOAPEnvelope(raw []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSOAP, err)
	}

	env := doc.Root()
	if env == nil || env.Tag != "Envelope" {
		return nil, ErrNotSOAP
	}

	body := env.SelectElement("Body")
	if body == nil {
		return nil, fmt.Errorf("%w: missing Body", ErrNotSOAP)
	}

	return body, nil
}

// ParseUPnPAction extracts the action carried by a SOAP body. The first
// element of the body is the action, its children are the arguments.
func ParseUPnPAction(body *etree.Element) (*ActionRequest, error) {
	elems := body.ChildElements()
	if len(elems) == 0 {
		return nil, errors.New("empty SOAP body")
	}

	action := elems[0]
	if action.Tag == "Fault" {
		return nil, parseFault(action)
	}

	req := &ActionRequest{
		Name:      action.Tag,
		Namespace: action.NamespaceURI(),
	}

	for _, arg := range action.ChildElements() {
		req.Args = append(req.Args, Arg{Name: arg.Tag, Value: arg.Text()})
	}

	return req, nil
}

// ParseUPnPResponse parses a control response. A SOAP fault is returned as
// a *UPnPError.
func ParseUPnPResponse(raw []byte) (*ActionRequest, error) {
	body, err := ParseSOAPEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return ParseUPnPAction(body)
}

func parseFault(fault *etree.Element) error {
	upnpErr := fault.FindElement("./detail/UPnPError")
	if upnpErr == nil {
		msg := "SOAP fault"
		if fs := fault.SelectElement("faultstring"); fs != nil {
			msg = fs.Text()
		}
		return errors.New(msg)
	}

	out := &UPnPError{}
	if code := upnpErr.SelectElement("errorCode"); code != nil {
		out.Code, _ = strconv.Atoi(code.Text())
	}
	if desc := upnpErr.SelectElement("errorDescription"); desc != nil {
		out.Description = desc.Text()
	}
	return out
}
