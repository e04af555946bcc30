// Package notify delivers change notifications keyed by resource identifier.
//
// A Resolver keeps a set of subscriptions per identifier. Notify signals every
// subscription registered at the identifier itself, at any identifier below
// it, and at any identifier above it that asked for descendant changes.
// Delivery never blocks the notifier: each subscription buffers a single
// pending change, and further changes coalesce into it until the subscriber
// drains the channel.
package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Change tells a subscriber that data at URI may have changed
type Change struct {
	URI string    `json:"uri"`
	At  time.Time `json:"at"`
}

// Subscription receives changes for one identifier
type Subscription struct {
	ID          string
	URI         string
	Descendants bool

	ch     chan Change
	fn     func(Change)
	r      *Resolver
	closed bool
}

// C returns the channel changes are delivered on. It is closed when the
// subscription is closed.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.r.unsubscribe(s)
}

// Resolver fans out change notifications to subscriptions
type Resolver struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
	log  *zap.Logger
}

// NewResolver creates an empty resolver. A nil logger disables logging.
func NewResolver(log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		subs: make(map[string]map[*Subscription]struct{}),
		log:  log,
	}
}

// Subscribe registers interest in uri. With descendants set, changes to any
// identifier below uri are delivered too.
func (r *Resolver) Subscribe(uri string, descendants bool) *Subscription {
	return r.subscribe(uri, descendants, nil)
}

// Watch is like Subscribe but calls fn from inside Notify instead of
// sending on the channel. fn must not block or call back into the resolver.
// The subscription channel never carries a change and is closed on Close.
func (r *Resolver) Watch(uri string, descendants bool, fn func(Change)) *Subscription {
	return r.subscribe(uri, descendants, fn)
}

func (r *Resolver) subscribe(uri string, descendants bool, fn func(Change)) *Subscription {
	key := normalize(uri)
	sub := &Subscription{
		ID:          uuid.NewString(),
		URI:         key,
		Descendants: descendants,
		ch:          make(chan Change, 1),
		fn:          fn,
		r:           r,
	}

	r.mu.Lock()
	set, ok := r.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		r.subs[key] = set
	}
	set[sub] = struct{}{}
	r.mu.Unlock()

	r.log.Debug("subscribed", zap.String("uri", key), zap.String("id", sub.ID), zap.Bool("descendants", descendants))
	return sub
}

// Unsubscribe is equivalent to sub.Close()
func (r *Resolver) Unsubscribe(sub *Subscription) {
	r.unsubscribe(sub)
}

func (r *Resolver) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	if set, ok := r.subs[sub.URI]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.subs, sub.URI)
		}
	}
	close(sub.ch)
	r.log.Debug("unsubscribed", zap.String("uri", sub.URI), zap.String("id", sub.ID))
}

// Notify signals every matching subscription that uri changed and returns
// how many subscriptions were signalled.
func (r *Resolver) Notify(uri string) int {
	key := normalize(uri)
	change := Change{URI: key, At: time.Now()}

	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for subURI, set := range r.subs {
		exact := subURI == key
		below := isBelow(subURI, key)
		above := isBelow(key, subURI)
		if !exact && !below && !above {
			continue
		}
		for sub := range set {
			if above && !sub.Descendants {
				continue
			}
			if sub.fn != nil {
				sub.fn(change)
				delivered++
				continue
			}
			select {
			case sub.ch <- change:
			default:
				// a change is already pending for this subscriber
			}
			delivered++
		}
	}

	r.log.Debug("notified", zap.String("uri", key), zap.Int("subscribers", delivered))
	return delivered
}

// Count returns the number of live subscriptions
func (r *Resolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.subs {
		n += len(set)
	}
	return n
}

// isBelow reports whether child lies strictly below parent in the path tree
func isBelow(child, parent string) bool {
	return strings.HasPrefix(child, parent+"/")
}

func normalize(uri string) string {
	return strings.TrimRight(uri, "/")
}
