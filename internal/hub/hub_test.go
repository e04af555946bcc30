package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursebook/internal/notify"
)

const collection = "content://org.coursebook.provider/courses"

// openStream connects to the hub and returns a reader positioned after the
// connected comment
func openStream(t *testing.T, srv *httptest.Server, query string) (*bufio.Reader, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events"+query, nil)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	br := bufio.NewReader(resp.Body)
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read connected line: %v", err)
	}
	if !strings.HasPrefix(line, ": connected") {
		t.Fatalf("first line = %q, want connected comment", line)
	}
	br.ReadString('\n') // blank line
	return br, cancel
}

// readEvent reads lines until a data line arrives
func readEvent(t *testing.T, br *bufio.Reader) notify.Change {
	t.Helper()

	type result struct {
		change notify.Change
		err    error
	}
	done := make(chan result, 1)
	go func() {
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				done <- result{err: err}
				return
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var c notify.Change
				err := json.Unmarshal([]byte(strings.TrimSpace(data)), &c)
				done <- result{change: c, err: err}
				return
			}
		}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("read event: %v", r.err)
		}
		return r.change
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return notify.Change{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamDeliversChanges(t *testing.T) {
	resolver := notify.NewResolver(nil)
	h := New(resolver, collection, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	br, _ := openStream(t, srv, "")
	if h.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", h.ClientCount())
	}

	// An item change reaches a collection watcher with descendants
	resolver.Notify(collection + "/7")
	change := readEvent(t, br)
	if change.URI != collection+"/7" {
		t.Errorf("change.URI = %s, want %s/7", change.URI, collection)
	}
}

func TestStreamWithoutDescendants(t *testing.T) {
	resolver := notify.NewResolver(nil)
	h := New(resolver, collection, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	br, _ := openStream(t, srv, "?descendants=false")

	if n := resolver.Notify(collection + "/7"); n != 0 {
		t.Errorf("Notify(item) reached %d subscribers, want 0", n)
	}
	resolver.Notify(collection)
	if change := readEvent(t, br); change.URI != collection {
		t.Errorf("change.URI = %s, want %s", change.URI, collection)
	}
}

func TestStreamBadDescendants(t *testing.T) {
	h := New(notify.NewResolver(nil), collection, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?descendants=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDisconnectUnsubscribes(t *testing.T) {
	resolver := notify.NewResolver(nil)
	h := New(resolver, collection, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, cancel := openStream(t, srv, "?uri="+collection+"/3")
	if got := h.Clients(); len(got) != 1 || got[0].URI != collection+"/3" {
		t.Fatalf("Clients() = %+v, want one client on item 3", got)
	}

	cancel()
	waitFor(t, func() bool { return h.ClientCount() == 0 && resolver.Count() == 0 })
}

func TestKeepAlive(t *testing.T) {
	h := New(notify.NewResolver(nil), collection, nil, WithKeepAlive(20*time.Millisecond))
	srv := httptest.NewServer(h)
	defer srv.Close()

	br, _ := openStream(t, srv, "")
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if line != ": keepalive\n" {
		t.Errorf("line = %q, want keepalive comment", line)
	}
}
