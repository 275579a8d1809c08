package ssdp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	SsdpAddr = "239.255.255.250"
	Port     = 1900
	MaxAge   = 1800
)

type Device struct {
	UUID       string
	DeviceType string
	Location   string
	Server     string
	NTs        []string
}

// GetNTs retourne la liste des NT à annoncer pour ce périphérique
func (d *Device) GetNTs() []string {
	return d.NTs
}

// USN builds the unique service name announced for nt.
func (d *Device) USN(nt string) string {
	if nt == "uuid:"+d.UUID {
		return nt
	}
	return fmt.Sprintf("uuid:%s::%s", d.UUID, nt)
}

type SSDPServer struct {
	Devices map[string]*Device
	MaxAge  int
	mu      sync.RWMutex
	conn    *net.UDPConn
}

// NewSSDPServer crée un serveur SSDP. maxAge <= 0 prend MaxAge.
func NewSSDPServer(maxAge int) *SSDPServer {
	if maxAge <= 0 {
		maxAge = MaxAge
	}
	return &SSDPServer{
		Devices: make(map[string]*Device),
		MaxAge:  maxAge,
	}
}

// aliveInterval renvoie la période des alive : la moitié de max-age, au
// moins une seconde.
func (s *SSDPServer) aliveInterval() time.Duration {
	return time.Duration(max(s.MaxAge/2, 1)) * time.Second
}

// AddDevice ajoute un périphérique et envoie un alive initial
func (s *SSDPServer) AddDevice(d *Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Devices[d.UUID] = d
	for _, nt := range d.GetNTs() {
		s.SendAlive(d, nt)
	}
}

// RemoveDevice supprime un périphérique et envoie un byebye
func (s *SSDPServer) RemoveDevice(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.Devices[uuid]
	if !ok {
		return
	}
	for _, nt := range d.GetNTs() {
		s.SendByeBye(d, nt)
	}
	delete(s.Devices, uuid)
}

// Start démarre l'écoute SSDP et envoie les alive périodiques
func (s *SSDPServer) Start(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.ParseIP(SsdpAddr), Port: Port}
	log.Infof("✅ Starting SSDP listener")
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return err
	}
	conn.SetReadBuffer(8192)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// Alive périodique
	go func() {
		ticker := time.NewTicker(s.aliveInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.RLock()
				for _, d := range s.Devices {
					for _, nt := range d.GetNTs() {
						s.SendAlive(d, nt)
					}
				}
				s.mu.RUnlock()
			}
		}
	}()

	// Écoute des M-SEARCH
	go func() {
		buf := make([]byte, 8192)
		for {
			select {
			case <-ctx.Done():
				log.Infof("✅ Stopping SSDP listener, sending byebye for all devices")
				s.mu.Lock()
				for _, d := range s.Devices {
					for _, nt := range d.GetNTs() {
						s.SendByeBye(d, nt)
					}
				}
				conn.Close()
				s.conn = nil
				s.mu.Unlock()
				return
			default:
				conn.SetReadDeadline(time.Now().Add(1 * time.Second))
				n, src, err := conn.ReadFromUDP(buf)
				if err != nil {
					if ne, ok := err.(net.Error); ok && ne.Timeout() {
						continue
					}
					log.Warnf("❌ SSDP read error: %v", err)
					continue
				}
				data := string(buf[:n])
				if strings.HasPrefix(data, "M-SEARCH") {
					s.mu.RLock()
					for _, d := range s.Devices {
						s.handleMSearch(src, data, d)
					}
					s.mu.RUnlock()
				}
			}
		}
	}()
	return nil
}

// SendSSDP envoie un NOTIFY multicast. Sans socket ouverte le message est
// ignoré. Le verrou est tenu par l'appelant.
func (s *SSDPServer) SendSSDP(msg string) error {
	if s.conn == nil {
		return nil
	}
	addr := &net.UDPAddr{IP: net.ParseIP(SsdpAddr), Port: Port}
	_, err := s.conn.WriteToUDP([]byte(msg), addr)
	return err
}

// SendAlive envoie un NOTIFY ssdp:alive
func (s *SSDPServer) SendAlive(d *Device, nt string) {
	if err := s.SendSSDP(AliveMessage(d, nt, s.MaxAge)); err != nil {
		log.Warnf("❌ Failed to notify alive: USN %s: %v", d.USN(nt), err)
	} else {
		log.Debugf("✅ Notify alive: USN %s (NT=%s)", d.USN(nt), nt)
	}
}

// SendByeBye envoie un NOTIFY ssdp:byebye
func (s *SSDPServer) SendByeBye(d *Device, nt string) {
	if err := s.SendSSDP(ByeByeMessage(d, nt)); err != nil {
		log.Warnf("❌ Failed to notify byebye: USN %s: %v", d.USN(nt), err)
	} else {
		log.Infof("👋 Notify byebye: USN %s (NT=%s)", d.USN(nt), nt)
	}
}

// handleMSearch répond à un M-SEARCH en unicast
func (s *SSDPServer) handleMSearch(src *net.UDPAddr, req string, d *Device) {
	for _, st := range MatchST(d, parseST(req)) {
		resp := SearchResponse(d, st, s.MaxAge, time.Now())
		if _, err := s.conn.WriteToUDP([]byte(resp), src); err != nil {
			log.Warnf("❌ Failed to send M-SEARCH response to %v: %v", src, err)
		} else {
			log.Debugf("📡 Responded to M-SEARCH from %v with ST=%s\n<details>\n\n```\n%s\n```\n</details>\n\n", src, st, resp)
		}
	}
}

// MatchST returns the targets of d answering a search for st.
func MatchST(d *Device, st string) []string {
	switch {
	case st == "":
		return nil
	case st == "ssdp:all":
		return d.GetNTs()
	case slices.Contains(d.GetNTs(), st):
		return []string{st}
	}
	return nil
}

func AliveMessage(d *Device, nt string, maxAge int) string {
	return crlf(fmt.Sprintf(`NOTIFY * HTTP/1.1
HOST: %s:%d
CACHE-CONTROL: max-age=%d
LOCATION: %s
NT: %s
NTS: ssdp:alive
SERVER: %s
USN: %s

`, SsdpAddr, Port, maxAge, d.Location, nt, d.Server, d.USN(nt)))
}

func ByeByeMessage(d *Device, nt string) string {
	return crlf(fmt.Sprintf(`NOTIFY * HTTP/1.1
HOST: %s:%d
NT: %s
NTS: ssdp:byebye
USN: %s

`, SsdpAddr, Port, nt, d.USN(nt)))
}

func SearchResponse(d *Device, st string, maxAge int, now time.Time) string {
	return crlf(fmt.Sprintf(`HTTP/1.1 200 OK
CACHE-CONTROL: max-age=%d
DATE: %s
EXT:
LOCATION: %s
SERVER: %s
ST: %s
USN: %s

`, maxAge, now.UTC().Format(time.RFC1123), d.Location, d.Server, st, d.USN(st)))
}

func crlf(msg string) string {
	return strings.ReplaceAll(msg, "\n", "\r\n")
}

// parseST extrait le ST d’un M-SEARCH
func parseST(req string) string {
	scanner := bufio.NewScanner(strings.NewReader(req))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.ToUpper(line), "ST:") {
			return strings.TrimSpace(line[3:])
		}
	}
	return ""
}
