package pmoupnp

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmolog"
	"github.com/beevik/etree"
)

const EventNS = "urn:schemas-upnp-org:event-1-0"

// Subscription is a GENA subscriber. It observes the volume service and
// delivers every StepsUpdated as a NOTIFY request from its own goroutine.
type Subscription struct {
	sid      string
	callback *url.URL
	eventing *Eventing

	queue  chan mainvolume.StepsUpdated
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timeout time.Duration
	expires time.Time
	seq     uint32

	startOnce sync.Once
	closeOnce sync.Once
}

func newSubscription(callback *url.URL, timeout time.Duration, e *Eventing) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())

	sub := &Subscription{
		sid:      newSID(),
		callback: callback,
		eventing: e,
		queue:    make(chan mainvolume.StepsUpdated, e.config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	sub.renew(timeout)

	return sub
}

// Name is the SID, the key of the subscription among the observers.
func (sub *Subscription) Name() string {
	return sub.sid
}

func (sub *Subscription) SID() string {
	return sub.sid
}

func (sub *Subscription) Callback() *url.URL {
	return sub.callback
}

// Expires returns the expiry time, zero when the subscription never
// expires.
func (sub *Subscription) Expires() time.Time {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	return sub.expires
}

func (sub *Subscription) renew(timeout time.Duration) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	sub.timeout = timeout
	if timeout > 0 {
		sub.expires = time.Now().Add(timeout)
	} else {
		sub.expires = time.Time{}
	}
}

func (sub *Subscription) expired(now time.Time) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	return !sub.expires.IsZero() && now.After(sub.expires)
}

func (sub *Subscription) isClosed() bool {
	return sub.ctx.Err() != nil
}

// Notify queues ev. It never blocks.
func (sub *Subscription) Notify(ev mainvolume.StepsUpdated) error {
	if sub.isClosed() {
		return mainvolume.ErrObserverClosed
	}

	select {
	case sub.queue <- ev:
		return nil
	default:
		return mainvolume.ErrObserverBusy
	}
}

// Close stops the delivery and removes the subscription from the service.
func (sub *Subscription) Close() error {
	sub.closeOnce.Do(func() {
		sub.cancel()
		sub.eventing.forget(sub.sid)
	})
	return nil
}

func (sub *Subscription) start(initial mainvolume.Snapshot) {
	sub.startOnce.Do(func() {
		go sub.run(initial)
	})
}

func (sub *Subscription) run(initial mainvolume.Snapshot) {
	if !sub.deliver(initial.StepCount, initial.CurrentStep) {
		return
	}

	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev := <-sub.queue:
			if !sub.deliver(ev.StepCount, ev.CurrentStep) {
				return
			}
		}
	}
}

func (sub *Subscription) nextSeq() uint32 {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	seq := sub.seq
	// après 4294967295 on repart à 1, 0 est réservé à l'événement initial
	if sub.seq == math.MaxUint32 {
		sub.seq = 1
	} else {
		sub.seq++
	}
	return seq
}

// deliver sends one NOTIFY. A failure closes the subscription.
func (sub *Subscription) deliver(stepCount, currentStep uint32) bool {
	logger := sub.eventing.logger
	body := PropertySet(stepCount, currentStep)
	seq := sub.nextSeq()

	req, err := http.NewRequestWithContext(sub.ctx, MethodNotify, sub.callback.String(), strings.NewReader(body))
	if err != nil {
		logger.Errorf("❌ Failed to create NOTIFY request to %s: %v", sub.callback, err)
		sub.Close()
		return false
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("NTS", "upnp:propchange")
	req.Header.Set("SID", sub.sid)
	req.Header.Set("SEQ", strconv.FormatUint(uint64(seq), 10))

	resp, err := sub.eventing.config.Client.Do(req)
	if err != nil {
		if sub.isClosed() {
			return false
		}
		logger.Errorf("❌ Failed to notify subscriber %s: %v", sub.callback, err)
		sub.Close()
		return false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Errorf("❌ Subscriber %s answered %s to NOTIFY", sub.callback, resp.Status)
		sub.Close()
		return false
	}

	logger.Debugf("✅ Notified subscriber %s (SEQ %d)\n%s", sub.callback, seq, pmolog.XMLDetails(body))
	return true
}

// PropertySet renders the GENA event body carrying both evented
// variables.
func PropertySet(stepCount, currentStep uint32) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	set := doc.CreateElement("e:propertyset")
	set.CreateAttr("xmlns:e", EventNS)

	set.CreateElement("e:property").
		CreateElement(mainvolume.PropertyStepCount.String()).
		SetText(formatUint(stepCount))
	set.CreateElement("e:property").
		CreateElement(mainvolume.PropertyCurrentStep.String()).
		SetText(formatUint(currentStep))

	out, _ := doc.WriteToString()
	return out
}

func (sub *Subscription) Timeout() time.Duration {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	return sub.timeout
}
