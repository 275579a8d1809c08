package soap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceURN = "urn:schemas-upnp-org:service:MainVolume:1"

func TestParseUPnPAction(t *testing.T) {
	raw := `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"
            s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:Set xmlns:u="urn:schemas-upnp-org:service:MainVolume:1">
      <Interface>com.Nokia.MainVolume1</Interface>
      <PropertyName>CurrentStep</PropertyName>
      <Value>3</Value>
    </u:Set>
  </s:Body>
</s:Envelope>`

	body, err := ParseSOAPEnvelope([]byte(raw))
	require.NoError(t, err)

	req, err := ParseUPnPAction(body)
	require.NoError(t, err)

	assert.Equal(t, "Set", req.Name)
	assert.Equal(t, serviceURN, req.Namespace)
	assert.Equal(t, []Arg{
		{"Interface", "com.Nokia.MainVolume1"},
		{"PropertyName", "CurrentStep"},
		{"Value", "3"},
	}, req.Args)

	v, ok := req.Arg("Value")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = req.Arg("Missing")
	assert.False(t, ok)
}

func TestParseSOAPEnvelopeErrors(t *testing.T) {
	for _, raw := range []string{
		"",
		"not xml",
		"<html><body/></html>",
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"/>`,
	} {
		_, err := ParseSOAPEnvelope([]byte(raw))
		assert.ErrorIs(t, err, ErrNotSOAP, raw)
	}

	body, err := ParseSOAPEnvelope([]byte(`<Envelope><Body/></Envelope>`))
	require.NoError(t, err)
	_, err = ParseUPnPAction(body)
	assert.Error(t, err)
}

func TestActionRoundTrip(t *testing.T) {
	raw, err := BuildUPnPAction(serviceURN, "Get", []Arg{
		{"Interface", "com.Nokia.MainVolume1"},
		{"PropertyName", "StepCount"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `<?xml version="1.0" encoding="utf-8"?>`))

	body, err := ParseSOAPEnvelope(raw)
	require.NoError(t, err)
	req, err := ParseUPnPAction(body)
	require.NoError(t, err)

	assert.Equal(t, "Get", req.Name)
	assert.Equal(t, serviceURN, req.Namespace)
	name, _ := req.Arg("PropertyName")
	assert.Equal(t, "StepCount", name)
}

func TestBuildUPnPResponse(t *testing.T) {
	raw, err := BuildUPnPResponse(serviceURN, "GetAll", []Arg{
		{"InterfaceRevision", "0"},
		{"StepCount", "10"},
		{"CurrentStep", "3"},
	})
	require.NoError(t, err)

	resp, err := ParseUPnPResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "GetAllResponse", resp.Name)
	assert.Len(t, resp.Args, 3)
	assert.Equal(t, "StepCount", resp.Args[1].Name)
}

func TestBuildUPnPFault(t *testing.T) {
	raw, err := BuildUPnPFault(ErrorArgumentOutOfRange, "Step 5 out of bounds.")
	require.NoError(t, err)

	_, err = ParseUPnPResponse(raw)
	var upnpErr *UPnPError
	require.True(t, errors.As(err, &upnpErr))
	assert.Equal(t, 601, upnpErr.Code)
	assert.Equal(t, "Step 5 out of bounds.", upnpErr.Description)
}

func TestToMarkdown(t *testing.T) {
	req := &ActionRequest{
		Name: "Set",
		Args: []Arg{
			{"PropertyName", "CurrentStep"},
			{"Value", strings.Repeat("x", 80)},
		},
	}

	md := req.ToMarkdown()
	assert.Contains(t, md, "SOAP Action: Set")
	assert.Contains(t, md, "- **PropertyName**: `CurrentStep`")
	assert.Contains(t, md, "<details>")
}
