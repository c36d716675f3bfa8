package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/netbill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "6281234567890", NormalizePhone("0812-3456-7890"))
	assert.Equal(t, "6281234567890", NormalizePhone("+62 812 3456 7890"))
	assert.Equal(t, "", NormalizePhone("  "))
	assert.Equal(t, "", NormalizePhone("0812"))
}

func TestGatewaySenderPostsMessage(t *testing.T) {
	var got gatewayRequest
	var auth, requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewGatewaySender(srv.URL, "tok", time.Second)
	require.NoError(t, sender.Send(context.Background(), "0812 3456 7890", "halo"))

	assert.Equal(t, "Bearer tok", auth)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, gatewayRequest{Phone: "6281234567890", Message: "halo"}, got)
}

func TestGatewaySenderRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewGatewaySender(srv.URL, "", time.Second).Send(context.Background(), "081234567890", "halo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGatewaySenderRejectsMissingPhone(t *testing.T) {
	err := NewGatewaySender("http://127.0.0.1:1", "", time.Second).Send(context.Background(), "", "halo")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestNewFromConfigFallsBackToLog(t *testing.T) {
	sender := NewFromConfig(configWithGateway(""), zap.NewNop())
	_, ok := sender.(*LogSender)
	assert.True(t, ok)
	assert.ErrorIs(t, sender.Send(context.Background(), "081234567890", "halo"), ErrNotDelivered)
	assert.ErrorIs(t, sender.Send(context.Background(), "", "halo"), ErrInvalidPhone)

	_, ok = NewFromConfig(configWithGateway("http://gateway.local/send"), zap.NewNop()).(*GatewaySender)
	assert.True(t, ok)
}

func configWithGateway(url string) config.Config {
	return config.Config{Messaging: config.MessagingConfig{GatewayURL: url, Timeout: time.Second}}
}
