package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gardenlights/internal/dispatch"
	"gardenlights/internal/schedule"
	logx "gardenlights/pkg/logx"
)

type fixedSource struct{ snap dispatch.Snapshot }

func (f fixedSource) Snapshot() dispatch.Snapshot { return f.snap }

func TestStatus(t *testing.T) {
	t.Parallel()
	changed := time.Date(2026, 6, 1, 21, 30, 0, 0, time.UTC)
	src := fixedSource{dispatch.Snapshot{
		Applied:   schedule.State{17: true, 27: false},
		ChangedAt: changed,
		AppliedAt: changed,
	}}
	srv := httptest.NewServer(New("", src, []int{17, 27}, "pi", logx.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got statusView
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Text != "01:On, 02:Off" {
		t.Fatalf("text = %q", got.Text)
	}
	if len(got.Channels) != 2 || got.Channels[0].Channel != 17 || !got.Channels[0].On {
		t.Fatalf("channels = %+v", got.Channels)
	}
	if got.ChangedAt == nil || !got.ChangedAt.Equal(changed) {
		t.Fatalf("changed_at = %v", got.ChangedAt)
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()
	h := New("", fixedSource{}, []int{17}, "", logx.Nop()).Handler()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodPost, "/status", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}
