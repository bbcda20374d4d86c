// ABOUTME: Tests for the HTTP surface: signatures, commands, event ingress.
// ABOUTME: Requests are signed the way the platform signs them.

package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmith-io/wardroom/internal/commands"
	"github.com/opsmith-io/wardroom/internal/config"
	"github.com/opsmith-io/wardroom/internal/events"
	"github.com/opsmith-io/wardroom/internal/metrics"
	"github.com/opsmith-io/wardroom/internal/platform"
	"github.com/opsmith-io/wardroom/internal/reconcile"
)

const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func newTestServer(t *testing.T) (http.Handler, *platform.MockAdapter, *events.Bus) {
	t.Helper()
	m := platform.NewMockAdapter()
	m.AddUser(platform.User{ID: "UADMIN", RealName: "Ada Admin", Admin: true})
	m.AddChannel(platform.Channel{ID: "C1", Name: "general"}, "UADMIN")

	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Slack.SigningSecret = signingSecret
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	met := metrics.New()
	dispatcher := commands.New(m, reconcile.New(m, met, nil), nil)
	bus := events.NewBus(nil)
	s := New(cfg, dispatcher, bus, met, nil)
	return s.Handler(), m, bus
}

// sign adds the platform's v0 HMAC signature headers to a request.
func sign(req *http.Request, body string) {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func signedForm(t *testing.T, path string, form url.Values) *http.Request {
	t.Helper()
	body := form.Encode()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sign(req, body)
	return req
}

func signedJSON(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sign(req, body)
	return req
}

func commandForm(text string) url.Values {
	return url.Values{
		"user_id":      {"UADMIN"},
		"channel_id":   {"C1"},
		"channel_name": {"general"},
		"text":         {text},
	}
}

func TestHealthzIsUnsigned(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnsignedCommandIsRejected(t *testing.T) {
	h, _, _ := newTestServer(t)
	body := commandForm("help").Encode()
	req := httptest.NewRequest(http.MethodPost, "/commands/channel", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestTamperedSignatureIsRejected(t *testing.T) {
	h, _, _ := newTestServer(t)
	req := signedForm(t, "/commands/channel", commandForm("help"))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChannelHelpCommand(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, signedForm(t, "/commands/channel", commandForm("help")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/channel create")
}

func TestUtilHelpCommand(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, signedForm(t, "/commands/util", commandForm("")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/util users")
}

func TestEventsURLVerification(t *testing.T) {
	h, _, _ := newTestServer(t)
	body := `{"type":"url_verification","challenge":"c0ffee"}`
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, signedJSON(t, "/events", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c0ffee", rec.Body.String())
}

func TestFileSharedEventReachesTheBus(t *testing.T) {
	h, _, bus := newTestServer(t)
	got := bus.FileShared.Subscribe(context.Background())

	body := `{"type":"event_callback","event":{"type":"file_shared","channel_id":"CINTAKE","file_id":"F1","user_id":"UUP"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedJSON(t, "/events", body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case evt := <-got:
		assert.Equal(t, platform.FileSharedEvent{FileID: "F1", UserID: "UUP", ChannelID: "CINTAKE"}, evt)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestMessageEventReachesTheBus(t *testing.T) {
	h, _, bus := newTestServer(t)
	got := bus.Message.Subscribe(context.Background())

	body := `{"type":"event_callback","event":{"type":"message","channel":"CINTAKE","ts":"1724829000.000100","user":"UUP","files":[{"id":"F1"}]}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedJSON(t, "/events", body))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case evt := <-got:
		assert.Equal(t, "CINTAKE", evt.ChannelID)
		assert.Equal(t, "1724829000.000100", evt.Timestamp)
		assert.Equal(t, []string{"F1"}, evt.FileIDs)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}
