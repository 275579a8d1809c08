package pmoupnp

import (
	"io"
	"net/http"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) getXML(t *testing.T, path string) *etree.Element {
	t.Helper()

	resp, err := http.Get(f.url(path))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/xml")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(raw))
	return doc.Root()
}

func TestSCPD(t *testing.T) {
	f := newFixture(t, 10, 0)
	scpd := f.getXML(t, "/com/meego/mainvolume1/desc.xml")

	var actions []string
	for _, a := range scpd.FindElements("./actionList/action/name") {
		actions = append(actions, a.Text())
	}
	assert.Equal(t, []string{"Get", "GetAll", "Set"}, actions)

	vars := map[string]*etree.Element{}
	for _, sv := range scpd.FindElements("./serviceStateTable/stateVariable") {
		vars[sv.SelectElement("name").Text()] = sv
	}

	require.Contains(t, vars, "StepCount")
	assert.Equal(t, "yes", vars["StepCount"].SelectAttrValue("sendEvents", ""))
	assert.Equal(t, "ui4", vars["StepCount"].SelectElement("dataType").Text())
	assert.Equal(t, "1", vars["StepCount"].FindElement("./allowedValueRange/minimum").Text())

	require.Contains(t, vars, "CurrentStep")
	assert.Equal(t, "yes", vars["CurrentStep"].SelectAttrValue("sendEvents", ""))

	require.Contains(t, vars, "InterfaceRevision")
	assert.Equal(t, "no", vars["InterfaceRevision"].SelectAttrValue("sendEvents", ""))

	getAll := scpd.FindElement("./actionList/action[name='GetAll']")
	require.NotNil(t, getAll)
	var outs []string
	for _, a := range getAll.FindElements("./argumentList/argument[direction='out']/name") {
		outs = append(outs, a.Text())
	}
	assert.Equal(t, []string{"InterfaceRevision", "StepCount", "CurrentStep"}, outs)
}

func TestDeviceDescription(t *testing.T) {
	f := newFixture(t, 10, 0)
	root := f.getXML(t, "/description.xml")

	device := root.SelectElement("device")
	require.NotNil(t, device)
	assert.Equal(t, "urn:schemas-upnp-org:device:MainVolume:1", device.SelectElement("deviceType").Text())
	assert.Equal(t, "uuid:0b1c2d3e-0000-4000-8000-000000000001", device.SelectElement("UDN").Text())

	svc := device.FindElement("./serviceList/service")
	require.NotNil(t, svc)
	assert.Equal(t, "/com/meego/mainvolume1/control", svc.SelectElement("controlURL").Text())
	assert.Equal(t, "/com/meego/mainvolume1/event", svc.SelectElement("eventSubURL").Text())
	assert.Equal(t, "/com/meego/mainvolume1/desc.xml", svc.SelectElement("SCPDURL").Text())
}

func TestSSDPDevice(t *testing.T) {
	f := newFixture(t, 10, 0)
	d := f.server.Device().SSDPDevice(f.server.BaseURL())

	assert.Equal(t, "http://127.0.0.1:1400/description.xml", d.Location)
	assert.Contains(t, d.NTs, "upnp:rootdevice")
	assert.Contains(t, d.NTs, "urn:schemas-upnp-org:service:MainVolume:1")
}

func TestDebugIndex(t *testing.T) {
	f := newFixture(t, 10, 3)

	resp, err := http.Get(f.url("/"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "StepCount=10 CurrentStep=3")

	resp, err = http.Get(f.url("/nothing"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
