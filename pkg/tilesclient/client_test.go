package tilesclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGetTile(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       []byte
		wantErr    bool
		wantNilOut bool
	}{
		{name: "ok", status: http.StatusOK, body: []byte("mvt-bytes")},
		{name: "empty tile", status: http.StatusNoContent, wantNilOut: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/8/134/84.mvt" {
					t.Fatalf("unexpected path %q", r.URL.Path)
				}
				w.WriteHeader(tc.status)
				if tc.body != nil {
					w.Write(tc.body)
				}
			}))
			defer srv.Close()

			c := New(srv.URL, nil)
			data, _, err := c.GetTile(context.Background(), 8, 134, 84)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNilOut && data != nil {
				t.Fatalf("expected nil body, got %q", data)
			}
			if !tc.wantNilOut && string(data) != string(tc.body) {
				t.Fatalf("got %q, want %q", data, tc.body)
			}
		})
	}
}
