package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/config"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmoupnp"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/soap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
host:
  base_url: http://127.0.0.1:1400
  http_port: 1400
log:
  web: false
ssdp:
  enabled: false
mainvolume:
  initial_mode: ihf
  initial_step: 30
  max_step_count: 32
profiles:
  - mode: ihf
    media_steps: 20
    call_steps: 10
    high_volume_step: 15
  - mode: hs
    media_steps: 15
    call_steps: 10
devices:
  mainvolume:
    udn: 6f1d2a3b-0000-4000-8000-00000000abcd
`

func loadTestConfig(t *testing.T, content string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pmovolume.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func call(t *testing.T, url string, action string, args ...soap.Arg) (*soap.ActionRequest, error) {
	t.Helper()

	body, err := soap.BuildUPnPAction("urn:schemas-upnp-org:service:MainVolume:1", action, args)
	require.NoError(t, err)

	resp, err := http.Post(url, `text/xml; charset="utf-8"`, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	return soap.ParseUPnPResponse(buf.Bytes())
}

func TestNewApp(t *testing.T) {
	a, err := newApp(loadTestConfig(t, testConfig), appOptions{})
	require.NoError(t, err)

	snap := a.volume.GetAll()
	assert.Equal(t, uint32(20), snap.StepCount)
	assert.Equal(t, uint32(19), snap.CurrentStep)
	assert.Equal(t, "ihf", a.controller.Mode())
	assert.Equal(t, "6f1d2a3b-0000-4000-8000-00000000abcd", a.device.UDN())
	assert.Equal(t, "http://127.0.0.1:1400", a.server.BaseURL())

	ts := httptest.NewServer(a.server.Handler())
	defer ts.Close()
	control := ts.URL + a.service.ControlURL()

	_, err = call(t, control, pmoupnp.ActionNameSwitchMode, soap.Arg{Name: "Mode", Value: "hs"})
	require.NoError(t, err)

	out, err := call(t, control, pmoupnp.ActionNameGetAll, soap.Arg{Name: "Interface", Value: "com.Nokia.MainVolume1"})
	require.NoError(t, err)
	v, _ := out.Arg("StepCount")
	assert.Equal(t, "15", v)

	// StepCount au-delà du maximum configuré
	_, err = call(t, control, pmoupnp.ActionNameSet,
		soap.Arg{Name: "Interface", Value: "com.Nokia.MainVolume1"},
		soap.Arg{Name: "PropertyName", Value: "StepCount"},
		soap.Arg{Name: "Value", Value: "33"},
	)
	var upnpErr *soap.UPnPError
	require.ErrorAs(t, err, &upnpErr)
	assert.Equal(t, soap.ErrorArgumentValueInvalid, upnpErr.Code)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	var metrics bytes.Buffer
	metrics.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, metrics.String(), `pmovolume_control_requests_total{action="GetAll",status="0"} 1`)
	assert.Contains(t, metrics.String(), `pmovolume_property_sets_total{outcome="rejected",property="StepCount"} 1`)
}

func TestNewAppModeOverride(t *testing.T) {
	a, err := newApp(loadTestConfig(t, testConfig), appOptions{mode: "unknown", port: 1500})
	require.NoError(t, err)

	assert.Equal(t, "fallback", a.controller.Mode())
	assert.Equal(t, uint32(20), a.volume.GetAll().StepCount)
	assert.Equal(t, 1500, a.server.HTTPPort)
}

func TestNewAppInvalidProfiles(t *testing.T) {
	cfg := loadTestConfig(t, strings.Replace(testConfig, "high_volume_step: 15", "high_volume_step: 25", 1))

	_, err := newApp(cfg, appOptions{})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	a, err := newApp(loadTestConfig(t, testConfig), appOptions{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, describe(&out, a))

	assert.Contains(t, out.String(), "<!-- http://127.0.0.1:1400/description.xml -->")
	assert.Contains(t, out.String(), "<deviceType>urn:schemas-upnp-org:device:MainVolume:1</deviceType>")
	assert.Contains(t, out.String(), "<name>SwitchMode</name>")
}

func TestDescribeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmovolume.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"describe", "--config", path, "--log-level", "warn"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "<scpd")
}
