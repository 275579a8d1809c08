package pmoupnp

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/soap"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	volume  *mainvolume.Service
	service *Service
	server  *Server
	http    *httptest.Server
}

func newFixture(t *testing.T, stepCount, currentStep uint32, opts ...ServiceOption) *fixture {
	t.Helper()

	state, err := mainvolume.NewState(stepCount, currentStep, 0)
	require.NoError(t, err)

	volume := mainvolume.NewService(state)
	service := NewService(volume, opts...)
	device := NewDevice("0b1c2d3e-0000-4000-8000-000000000001", "Test volume", service)

	server, err := NewServer("test", device, WithBaseURL("http://127.0.0.1:1400"))
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		service.Eventing().Close()
		ts.Close()
	})

	return &fixture{volume: volume, service: service, server: server, http: ts}
}

func (f *fixture) url(path string) string {
	return f.http.URL + path
}

// call invokes action on the control URL. A fault is returned as a
// *soap.UPnPError.
func (f *fixture) call(t *testing.T, action string, args ...soap.Arg) (*soap.ActionRequest, int, error) {
	t.Helper()

	body, err := soap.BuildUPnPAction(f.service.ServiceType(), action, args)
	require.NoError(t, err)

	return f.post(t, action, body)
}

func (f *fixture) post(t *testing.T, action string, body []byte) (*soap.ActionRequest, int, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.url(f.service.ControlURL()), bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", `"`+f.service.ServiceType()+"#"+action+`"`)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out, err := soap.ParseUPnPResponse(raw)
	return out, resp.StatusCode, err
}

func iface() soap.Arg {
	return soap.Arg{Name: "Interface", Value: mainvolume.InterfaceName}
}

func arg(name, value string) soap.Arg {
	return soap.Arg{Name: name, Value: value}
}

type notification struct {
	sid         string
	seq         int
	stepCount   uint32
	currentStep uint32
}

// newEventSink starts a callback server recording the NOTIFY requests.
func newEventSink(t *testing.T, status int) (*httptest.Server, chan notification) {
	t.Helper()

	ch := make(chan notification, 32)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != MethodNotify {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		doc := etree.NewDocument()
		if _, err := doc.ReadFrom(r.Body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		n := notification{sid: r.Header.Get("SID")}
		n.seq, _ = strconv.Atoi(r.Header.Get("SEQ"))
		if e := doc.FindElement("//StepCount"); e != nil {
			v, _ := strconv.ParseUint(e.Text(), 10, 32)
			n.stepCount = uint32(v)
		}
		if e := doc.FindElement("//CurrentStep"); e != nil {
			v, _ := strconv.ParseUint(e.Text(), 10, 32)
			n.currentStep = uint32(v)
		}

		ch <- n
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)

	return ts, ch
}

func nextNotification(t *testing.T, ch chan notification) notification {
	t.Helper()

	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no NOTIFY received")
		return notification{}
	}
}

func newTestServer(t *testing.T, server *Server) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Device().Service().Eventing().Close()
		ts.Close()
	})
	return ts
}
