package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	reg.ReceivedMessages.Add(3)
	reg.CachedMessages.Set(42)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	reg.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "listener_radio_received_messages_total 3") {
		t.Fatalf("missing received_messages in output:\n%s", body)
	}
	if !strings.Contains(body, "listener_radio_cached_messages 42") {
		t.Fatalf("missing cached_messages in output:\n%s", body)
	}
}

func TestDefaultRegistryIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default() should return the same instance every call")
	}
}
