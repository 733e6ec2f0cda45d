package detection

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T, status int, body string, check func(*http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestDetectSendsFrame(t *testing.T) {
	var gotPath, gotName, gotType string
	var gotFrame []byte
	c := newServer(t, http.StatusOK, `[{"class":"person","score":0.9,"box":[1,2,3,4]}]`, func(r *http.Request) {
		gotPath = r.URL.Path
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotFrame, _ = io.ReadAll(file)
	})

	moving, err := c.Detect(t.Context(), []byte("jpeg"), 2)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !moving {
		t.Error("Detect = false, want true")
	}
	if gotPath != "/predict" || gotName != "cam2.jpg" || gotType != "image/jpeg" {
		t.Errorf("request = %s %s %s", gotPath, gotName, gotType)
	}
	if string(gotFrame) != "jpeg" {
		t.Errorf("frame = %q", gotFrame)
	}
}

func TestDetectBelowThreshold(t *testing.T) {
	c := newServer(t, http.StatusOK, `[{"class":"cat","score":0.2}]`, nil)
	c.MinScore = 0.5
	moving, err := c.Detect(t.Context(), []byte("jpeg"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if moving {
		t.Error("low score counted as motion")
	}

	c = newServer(t, http.StatusOK, `[]`, nil)
	if moving, _ := c.Detect(t.Context(), []byte("jpeg"), 0); moving {
		t.Error("empty result counted as motion")
	}
}

func TestDetectBadStatus(t *testing.T) {
	c := newServer(t, http.StatusInternalServerError, "model down", nil)
	if _, err := c.Detect(t.Context(), []byte("jpeg"), 0); err == nil {
		t.Fatal("expected error for 500")
	}
}
