package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-test/deep"

	"coursebook/internal/codec"
	"coursebook/internal/contract"
	"coursebook/internal/domain"
	"coursebook/internal/hub"
	"coursebook/internal/notify"
	"coursebook/internal/provider"
	"coursebook/internal/repository/sqlite"
	"coursebook/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	svc      *service.CourseService
	resolver *notify.Resolver
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := sqlite.New(sqlite.Options{Path: filepath.Join(t.TempDir(), "courses.db")})
	resolver := notify.NewResolver(nil)
	p := provider.New(store, resolver, nil)
	t.Cleanup(func() {
		p.Close()
	})

	svc := service.NewCourseService(p, nil)
	h := NewCourseHandler(svc, hub.New(resolver, contract.CollectionURI, nil), nil)
	return &testServer{
		router:   NewRouter(h, nil),
		svc:      svc,
		resolver: resolver,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, c domain.Course) domain.Course {
	t.Helper()
	if err := s.svc.CreateCourse(context.Background(), &c); err != nil {
		t.Fatal(err)
	}
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCreateCourse(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/courses", `{"name":"Algebra","room":"204","day":"Mon"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	resp := decode[CreatedResponse](t, rec)
	if resp.URI != contract.ItemURI(resp.Course.ID) {
		t.Errorf("uri = %s, want item uri for %d", resp.URI, resp.Course.ID)
	}
	if loc := rec.Header().Get("Location"); loc != fmt.Sprintf("/api/courses/%d", resp.Course.ID) {
		t.Errorf("Location = %s", loc)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestCreateCourseRejected(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"room":"204"}`},
		{"empty name", `{"name":""}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/courses", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if resp := decode[ErrorResponse](t, rec); resp.Error == "" || resp.Details == "" {
				t.Errorf("error body = %+v, want error and details", resp)
			}
		})
	}

	list, _ := s.svc.ListCourses(context.Background(), nil, "")
	if len(list) != 0 {
		t.Errorf("stored %d courses, want 0", len(list))
	}
}

func TestGetCourse(t *testing.T) {
	s := newTestServer(t)
	c := s.create(t, domain.Course{Name: "Algebra", Teacher: "Smith"})

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", c.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if diff := deep.Equal(decode[domain.Course](t, rec), c); diff != nil {
		t.Error(diff)
	}

	for _, target := range []string{"/api/courses/999", "/api/courses/abc", "/api/courses/-1"} {
		if rec := s.do(t, http.MethodGet, target, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, rec.Code)
		}
	}
}

func TestListCourses(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, domain.Course{Name: "Algebra", Room: "204"})
	b := s.create(t, domain.Course{Name: "Biology", Room: "Lab"})

	rec := s.do(t, http.MethodGet, "/api/courses?order=name%20DESC&columns=_id,name,room", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	want := []domain.Course{
		{ID: b.ID, Name: "Biology", Room: "Lab"},
		{ID: a.ID, Name: "Algebra", Room: "204"},
	}
	if diff := deep.Equal(decode[[]domain.Course](t, rec), want); diff != nil {
		t.Error(diff)
	}

	if rec := s.do(t, http.MethodGet, "/api/courses?order=grade", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad order status = %d, want 400", rec.Code)
	}
}

func TestListCoursesEmpty(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/courses", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body.String())
	}
}

func TestUpdateCourse(t *testing.T) {
	s := newTestServer(t)
	c := s.create(t, domain.Course{Name: "Algebra", Room: "204"})
	target := fmt.Sprintf("/api/courses/%d", c.ID)

	rec := s.do(t, http.MethodPut, target, `{"room":"301"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Course](t, rec); got.Name != "Algebra" || got.Room != "301" {
		t.Errorf("updated = %+v", got)
	}

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"empty name", target, `{"name":""}`, http.StatusBadRequest},
		{"unknown column", target, `{"grade":"A"}`, http.StatusBadRequest},
		{"id column", target, `{"_id":"5"}`, http.StatusBadRequest},
		{"missing course", "/api/courses/999", `{"room":"1"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(t, http.MethodPut, tt.target, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestDeleteCourse(t *testing.T) {
	s := newTestServer(t)
	c := s.create(t, domain.Course{Name: "Algebra"})
	target := fmt.Sprintf("/api/courses/%d", c.ID)

	if rec := s.do(t, http.MethodDelete, target, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, target, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestClearCourses(t *testing.T) {
	s := newTestServer(t)
	s.create(t, domain.Course{Name: "Algebra"})
	s.create(t, domain.Course{Name: "Biology"})

	rec := s.do(t, http.MethodDelete, "/api/courses", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]int64](t, rec); got["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", got["deleted"])
	}
}

func TestGetType(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		uri      string
		wantCode int
		wantMIME string
	}{
		{contract.CollectionURI, http.StatusOK, contract.ListType},
		{contract.ItemURI(3), http.StatusOK, contract.ItemType},
		{"content://elsewhere/courses", http.StatusNotFound, ""},
		{"", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := s.do(t, http.MethodGet, "/api/type?uri="+tt.uri, "")
		if rec.Code != tt.wantCode {
			t.Errorf("type(%q) status = %d, want %d", tt.uri, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode == http.StatusOK {
			if got := decode[TypeResponse](t, rec); got.MIME != tt.wantMIME {
				t.Errorf("type(%q) mime = %s, want %s", tt.uri, got.MIME, tt.wantMIME)
			}
		}
	}
}

func TestExportImport(t *testing.T) {
	src := newTestServer(t)
	src.create(t, domain.Course{Name: "Algebra", Room: "204"})
	src.create(t, domain.Course{Name: "Biology"})

	rec := src.do(t, http.MethodGet, "/api/export?format=yaml", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-yaml" {
		t.Errorf("Content-Type = %s", ct)
	}

	dst := newTestServer(t)
	rec = dst.do(t, http.MethodPost, "/api/import?format=yaml&strategy=replace", rec.Body.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[service.ImportResult](t, rec); got.Created != 2 {
		t.Errorf("created = %d, want 2", got.Created)
	}

	if rec := dst.do(t, http.MethodGet, "/api/export?format=csv", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("csv export status = %d, want 400", rec.Code)
	}
	if rec := dst.do(t, http.MethodPost, "/api/import?strategy=upsert", `{"courses":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad strategy status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["status"] != "ok" {
		t.Errorf("status field = %v", got["status"])
	}
}

func TestEventsRejectsUnknownURI(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/events?uri=content://elsewhere/x", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/events?descendants=maybe", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEventsStreamsMutations(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	if line, _ := br.ReadString('\n'); !strings.HasPrefix(line, ": connected") {
		t.Fatalf("first line = %q", line)
	}

	s.create(t, domain.Course{Name: "Algebra"})

	got := make(chan string, 1)
	go func() {
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				got <- data
				return
			}
		}
	}()

	select {
	case data := <-got:
		var change notify.Change
		if err := json.Unmarshal([]byte(data), &change); err != nil {
			t.Fatal(err)
		}
		if change.URI != contract.CollectionURI {
			t.Errorf("change.URI = %s, want %s", change.URI, contract.CollectionURI)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestEventsWatchesCanonicalURI(t *testing.T) {
	s := newTestServer(t)
	course := s.create(t, domain.Course{Name: "Algebra"})

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	target := srv.URL + "/events?descendants=false&uri=" + url.QueryEscape(contract.CollectionURI+"//01")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	if line, _ := br.ReadString('\n'); !strings.HasPrefix(line, ": connected") {
		t.Fatalf("first line = %q", line)
	}

	if err := s.svc.UpdateCourse(ctx, course.ID, domain.Values{"room": "9"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := make(chan string, 1)
	go func() {
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				got <- data
				return
			}
		}
	}()

	select {
	case data := <-got:
		var change notify.Change
		if err := json.Unmarshal([]byte(data), &change); err != nil {
			t.Fatal(err)
		}
		if change.URI != contract.ItemURI(course.ID) {
			t.Errorf("change.URI = %s, want %s", change.URI, contract.ItemURI(course.ID))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream on a non-canonical item spelling missed the update")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{provider.ErrUnmatchedResource, http.StatusNotFound},
		{fmt.Errorf("x: %w", service.ErrNotFound), http.StatusNotFound},
		{provider.ErrInvalidArgument, http.StatusBadRequest},
		{codec.ErrUnsupportedFormat, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", provider.ErrWriteFailed, errors.New("disk")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
