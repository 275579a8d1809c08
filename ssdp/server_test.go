package ssdp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testDevice() *Device {
	return &Device{
		UUID:       "1234",
		DeviceType: "urn:schemas-upnp-org:device:MainVolume:1",
		Location:   "http://10.0.0.2:1400/description.xml",
		Server:     "linux/amd64 UPnP/1.1 PMOVolume/1.0",
		NTs: []string{
			"upnp:rootdevice",
			"uuid:1234",
			"urn:schemas-upnp-org:device:MainVolume:1",
		},
	}
}

func TestAliveMessage(t *testing.T) {
	msg := AliveMessage(testDevice(), "upnp:rootdevice", 900)

	assert.True(t, strings.HasPrefix(msg, "NOTIFY * HTTP/1.1\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n"))
	assert.Contains(t, msg, "CACHE-CONTROL: max-age=900\r\n")
	assert.Contains(t, msg, "NTS: ssdp:alive\r\n")
	assert.Contains(t, msg, "USN: uuid:1234::upnp:rootdevice\r\n")
	assert.NotContains(t, strings.ReplaceAll(msg, "\r\n", ""), "\n")
}

func TestByeByeMessage(t *testing.T) {
	msg := ByeByeMessage(testDevice(), "uuid:1234")

	assert.Contains(t, msg, "NTS: ssdp:byebye\r\n")
	assert.Contains(t, msg, "USN: uuid:1234\r\n")
}

func TestSearchResponse(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := SearchResponse(testDevice(), "upnp:rootdevice", 1800, now)

	assert.True(t, strings.HasPrefix(msg, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, msg, "DATE: Fri, 02 Jan 2026 03:04:05 UTC\r\n")
	assert.Contains(t, msg, "ST: upnp:rootdevice\r\n")
	assert.Contains(t, msg, "LOCATION: http://10.0.0.2:1400/description.xml\r\n")
}

func TestMatchST(t *testing.T) {
	d := testDevice()

	assert.Len(t, MatchST(d, "ssdp:all"), 3)
	assert.Equal(t, []string{"upnp:rootdevice"}, MatchST(d, "upnp:rootdevice"))
	assert.Empty(t, MatchST(d, "urn:schemas-upnp-org:device:MediaRenderer:1"))
	assert.Empty(t, MatchST(d, ""))
}

func TestParseST(t *testing.T) {
	req := "M-SEARCH * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\nMAN: \"ssdp:discover\"\r\nMX: 1\r\nst: ssdp:all\r\n\r\n"
	assert.Equal(t, "ssdp:all", parseST(req))
	assert.Equal(t, "", parseST("M-SEARCH * HTTP/1.1\r\n\r\n"))
}

func TestServerWithoutSocket(t *testing.T) {
	s := NewSSDPServer(0)
	assert.Equal(t, MaxAge, s.MaxAge)

	d := testDevice()
	s.AddDevice(d)
	assert.Contains(t, s.Devices, "1234")

	s.RemoveDevice("1234")
	assert.NotContains(t, s.Devices, "1234")
	s.RemoveDevice("1234")
}

func TestAliveInterval(t *testing.T) {
	for maxAge, want := range map[int]time.Duration{
		1:    time.Second,
		2:    time.Second,
		3:    time.Second,
		1800: 900 * time.Second,
	} {
		assert.Equal(t, want, NewSSDPServer(maxAge).aliveInterval(), "max-age %d", maxAge)
	}

	s := &SSDPServer{MaxAge: 0}
	assert.Equal(t, time.Second, s.aliveInterval())
}
