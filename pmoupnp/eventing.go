package pmoupnp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/internal/objectstore"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
	MethodNotify      = "NOTIFY"
)

const (
	DefaultSubscriptionTimeout = 1800 * time.Second
	DefaultEventQueueSize      = 16
	DefaultNotifyTimeout       = 5 * time.Second
)

var (
	ErrUnknownSubscription = errors.New("unknown subscription")
	ErrInvalidCallback     = errors.New("invalid callback")
)

// EventingConfig tunes the GENA subscriptions. Zero fields take the
// defaults.
type EventingConfig struct {
	DefaultTimeout time.Duration
	QueueSize      int
	NotifyTimeout  time.Duration
	Client         *http.Client
}

func (c EventingConfig) withDefaults() EventingConfig {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultSubscriptionTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultEventQueueSize
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = DefaultNotifyTimeout
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.NotifyTimeout}
	}
	return c
}

// Eventing keeps the GENA subscriptions of a service. Every subscription is
// registered as an observer of the volume service.
type Eventing struct {
	volume *mainvolume.Service
	config EventingConfig
	logger *log.Logger

	mu   sync.Mutex
	subs objectstore.ObjectSet[*Subscription]
}

func newEventing(volume *mainvolume.Service, cfg EventingConfig) *Eventing {
	return &Eventing{
		volume: volume,
		config: cfg.withDefaults(),
		logger: log.StandardLogger(),
		subs:   make(objectstore.ObjectSet[*Subscription]),
	}
}

// Subscribe creates a subscription delivering events to callback. A zero
// timeout never expires.
func (e *Eventing) Subscribe(callback *url.URL, timeout time.Duration) *Subscription {
	sub := e.register(callback, timeout)
	e.activate(sub)
	return sub
}

func (e *Eventing) register(callback *url.URL, timeout time.Duration) *Subscription {
	sub := newSubscription(callback, timeout, e)

	e.mu.Lock()
	e.subs.InsertOrReplace(sub)
	e.mu.Unlock()

	e.volume.Subscribe(sub)

	e.logger.Infof("🔔 New subscription: SID=%s, Callback=%s, Timeout=%s", sub.SID(), callback, formatTimeout(timeout))
	return sub
}

// activate sends the initial event and starts the delivery worker. The
// initial state is read after the registration so no change is lost.
func (e *Eventing) activate(sub *Subscription) {
	sub.start(e.volume.GetAll())
}

// Renew extends the subscription sid.
func (e *Eventing) Renew(sid string, timeout time.Duration) (*Subscription, error) {
	e.mu.Lock()
	sub, ok := e.subs.Get(sid)
	e.mu.Unlock()

	if !ok || sub.isClosed() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubscription, sid)
	}

	sub.renew(timeout)
	e.logger.Infof("♻️ Renew subscription: SID=%s, Timeout=%s", sid, formatTimeout(timeout))
	return sub, nil
}

// Unsubscribe cancels the subscription sid. Unknown SIDs are ignored.
func (e *Eventing) Unsubscribe(sid string) bool {
	e.mu.Lock()
	sub, ok := e.subs.Get(sid)
	e.mu.Unlock()

	if !ok {
		return false
	}

	sub.Close()
	return true
}

// forget is called once by every subscription when it closes.
func (e *Eventing) forget(sid string) {
	e.mu.Lock()
	e.subs.Remove(sid)
	e.mu.Unlock()

	e.volume.Unsubscribe(sid)
}

func (e *Eventing) Get(sid string) (*Subscription, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.subs.Get(sid)
}

func (e *Eventing) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.subs.Len()
}

// Sweep closes the subscriptions expired at now and returns how many were
// removed.
func (e *Eventing) Sweep(now time.Time) int {
	e.mu.Lock()
	var expired []*Subscription
	for sub := range e.subs.All() {
		if sub.expired(now) {
			expired = append(expired, sub)
		}
	}
	e.mu.Unlock()

	for _, sub := range expired {
		e.logger.Infof("⌛ Subscription %s expired", sub.SID())
		sub.Close()
	}

	return len(expired)
}

// Run sweeps expired subscriptions every interval until ctx is done, then
// closes the remaining ones.
func (e *Eventing) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Close()
			return
		case now := <-ticker.C:
			e.Sweep(now)
		}
	}
}

// Close cancels every subscription.
func (e *Eventing) Close() {
	e.mu.Lock()
	subs := e.subs.Values()
	e.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Handler serves SUBSCRIBE and UNSUBSCRIBE on the event URL.
func (e *Eventing) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range r.Header {
			e.logger.Debugf("Header: %s=%v", k, v)
		}

		sid := r.Header.Get("SID")
		callback := r.Header.Get("CALLBACK")
		nt := r.Header.Get("NT")

		switch r.Method {
		case MethodSubscribe:
			timeout := parseTimeout(r.Header.Get("TIMEOUT"), e.config.DefaultTimeout)

			if sid != "" {
				if callback != "" || nt != "" {
					http.Error(w, "Incompatible header fields", http.StatusBadRequest)
					return
				}
				if _, err := e.Renew(sid, timeout); err != nil {
					e.logger.Warnf("❌ %v", err)
					http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
					return
				}
				writeSubscribeResponse(w, sid, timeout)
				return
			}

			if nt != "upnp:event" {
				http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
				return
			}

			u, err := parseCallback(callback)
			if err != nil {
				e.logger.Warnf("❌ %v", err)
				http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
				return
			}

			sub := e.register(u, timeout)
			writeSubscribeResponse(w, sub.SID(), timeout)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			e.activate(sub)

		case MethodUnsubscribe:
			if sid == "" {
				http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
				return
			}
			if callback != "" || nt != "" {
				http.Error(w, "Incompatible header fields", http.StatusBadRequest)
				return
			}
			if e.Unsubscribe(sid) {
				e.logger.Infof("👋 Unsubscribe SID=%s", sid)
			}
			w.WriteHeader(http.StatusOK)

		default:
			e.logger.Warnf("Unsupported EventSub method: %s", r.Method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

func writeSubscribeResponse(w http.ResponseWriter, sid string, timeout time.Duration) {
	w.Header().Set("SID", sid)
	w.Header().Set("TIMEOUT", formatTimeout(timeout))
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

// parseTimeout reads a "Second-N" header. "infinite" gives 0, missing or
// malformed values give def.
func parseTimeout(header string, def time.Duration) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return def
	}

	value := strings.TrimPrefix(strings.ToLower(header), "second-")
	if value == "infinite" {
		return 0
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func formatTimeout(timeout time.Duration) string {
	if timeout <= 0 {
		return "Second-infinite"
	}
	return fmt.Sprintf("Second-%d", int(timeout/time.Second))
}

// parseCallback returns the first http URL of a "<url1><url2>" header.
func parseCallback(header string) (*url.URL, error) {
	for _, part := range strings.Split(header, ">") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "<"))
		if part == "" {
			continue
		}
		u, err := url.Parse(part)
		if err == nil && u.Scheme == "http" && u.Host != "" {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidCallback, header)
}

func newSID() string {
	return "uuid:" + uuid.New().String()
}
