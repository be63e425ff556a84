package translator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
)

func newTestGoogleTranslator(t *testing.T, handler http.HandlerFunc) *GoogleTranslator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	g, err := NewGoogleTranslator(context.Background(), GoogleTranslateConfig{
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(server.URL + "/language/translate/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(server.Client()),
		},
	})
	if err != nil {
		t.Fatalf("failed to create translator: %v", err)
	}
	return g
}

func TestGoogleTranslate_Success(t *testing.T) {
	var gotQuery, gotTarget, gotSource string
	g := newTestGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v2") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.FormValue("q")
		gotTarget = r.FormValue("target")
		gotSource = r.FormValue("source")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"At home","detectedSourceLanguage":"ar"}]}}`))
	})

	res, err := g.Translate(context.Background(), "في البيت", "", "en-US")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if res.Text != "At home" || res.DetectedSourceLanguage != "ar" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotQuery != "في البيت" || gotTarget != "en" || gotSource != "" {
		t.Fatalf("unexpected request: q=%q target=%q source=%q", gotQuery, gotTarget, gotSource)
	}
}

func TestGoogleTranslate_ServerError(t *testing.T) {
	g := newTestGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid target"}}`))
	})
	if _, err := g.Translate(context.Background(), "hello", "", "xx"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestGoogleTranslate_EmptyTarget(t *testing.T) {
	g := newTestGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty target")
	})
	if _, err := g.Translate(context.Background(), "hello", "", ""); err == nil {
		t.Fatal("expected error for empty target")
	}
}
