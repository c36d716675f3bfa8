package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/netbill/internal/observability/context"
	obstracing "github.com/smallbiznis/netbill/internal/observability/tracing"
)

const defaultGatewayTimeout = 10 * time.Second

// GatewaySender posts messages to an HTTP messaging gateway as
// {"phone": ..., "message": ...}. Any 2xx response counts as accepted.
type GatewaySender struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

type gatewayRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func NewGatewaySender(endpoint, token string, timeout time.Duration) *GatewaySender {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &GatewaySender{
		endpoint: strings.TrimSpace(endpoint),
		token:    strings.TrimSpace(token),
		httpClient: obstracing.WrapHTTPClient(&http.Client{
			Timeout: timeout,
		}),
	}
}

func (s *GatewaySender) Send(ctx context.Context, phone, message string) error {
	phone = NormalizePhone(phone)
	if phone == "" {
		return ErrInvalidPhone
	}

	payload, err := json.Marshal(gatewayRequest{Phone: phone, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("messaging gateway returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
