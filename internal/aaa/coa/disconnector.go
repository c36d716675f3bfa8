package coa

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/smallbiznis/netbill/internal/aaa/domain"
	"github.com/smallbiznis/netbill/internal/cache"
	obslogger "github.com/smallbiznis/netbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	"go.uber.org/zap"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"
)

const (
	attrErrorCause            radius.Type = 101
	errorCauseSessionNotFound uint32      = 503
)

var ErrDisconnectRejected = errors.New("disconnect_rejected")

// ExchangeFunc sends a packet and waits for the reply.
type ExchangeFunc func(ctx context.Context, packet *radius.Packet, addr string) (*radius.Packet, error)

type Config struct {
	Port          int
	DefaultSecret string
	Timeout       time.Duration
}

// Disconnector sends RFC 3576 Disconnect-Request packets to the NAS that
// owns each open accounting session of a user.
type Disconnector struct {
	store    domain.Store
	secrets  cache.NASSecretCache
	cfg      Config
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
	exchange ExchangeFunc
}

func NewDisconnector(store domain.Store, cfg Config, log *zap.Logger) *Disconnector {
	if cfg.Port == 0 {
		cfg.Port = 3799
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Disconnector{
		store:    store,
		secrets:  cache.NewNASSecretCache(),
		cfg:      cfg,
		log:      log.Named("aaa.coa"),
		exchange: radius.Exchange,
	}
}

// WithExchange swaps the transport, mainly for tests.
func (d *Disconnector) WithExchange(fn ExchangeFunc) *Disconnector {
	clone := *d
	clone.exchange = fn
	return &clone
}

func (d *Disconnector) WithMetrics(m *obsmetrics.Metrics) *Disconnector {
	clone := *d
	clone.metrics = m
	return &clone
}

func (d *Disconnector) Disconnect(ctx context.Context, username string) (domain.DisconnectResult, error) {
	result := domain.DisconnectResult{Username: username}
	sessions, err := d.store.OpenSessions(ctx, username)
	if err != nil {
		return result, fmt.Errorf("load open sessions: %w", err)
	}
	result.Sessions = len(sessions)
	if len(sessions) == 0 {
		result.Detail = "no open session"
		return result, nil
	}

	var errs error
	for _, session := range sessions {
		if err := d.disconnectSession(ctx, session); err != nil {
			d.metrics.RecordDisconnect(ctx, obsmetrics.OutcomeFailed)
			errs = errors.Join(errs, fmt.Errorf("session %s on %s: %w", session.SessionID, session.NASAddress, err))
			continue
		}
		d.metrics.RecordDisconnect(ctx, obsmetrics.OutcomeOK)
		result.Disconnected++
	}
	result.Detail = fmt.Sprintf("%d/%d sessions disconnected", result.Disconnected, result.Sessions)
	return result, errs
}

func (d *Disconnector) disconnectSession(ctx context.Context, session domain.Session) error {
	secret, err := d.nasSecret(ctx, session.NASAddress)
	if err != nil {
		return err
	}
	if secret == "" {
		return domain.ErrNoSecret
	}

	packet := radius.New(radius.CodeDisconnectRequest, []byte(secret))
	if err := rfc2865.UserName_SetString(packet, session.Username); err != nil {
		return err
	}
	if session.SessionID != "" {
		if err := rfc2866.AcctSessionID_SetString(packet, session.SessionID); err != nil {
			return err
		}
	}
	if ip := net.ParseIP(session.FramedIP); ip != nil && ip.To4() != nil {
		if err := rfc2865.FramedIPAddress_Set(packet, ip); err != nil {
			return err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(session.NASAddress, strconv.Itoa(d.cfg.Port))
	reply, err := d.exchange(callCtx, packet, addr)
	if err != nil {
		return err
	}

	switch reply.Code {
	case radius.CodeDisconnectACK:
		obslogger.WithContext(ctx, d.log).Debug("aaa.disconnect.ack",
			zap.String("username", session.Username),
			zap.String("nas", session.NASAddress),
		)
		return nil
	case radius.CodeDisconnectNAK:
		// The NAS no longer knows the session: it is already gone.
		if attr, ok := reply.Lookup(attrErrorCause); ok {
			if cause, err := radius.Integer(attr); err == nil && cause == errorCauseSessionNotFound {
				return nil
			}
		}
		return ErrDisconnectRejected
	default:
		return fmt.Errorf("%w: unexpected reply code %s", ErrDisconnectRejected, reply.Code)
	}
}

func (d *Disconnector) nasSecret(ctx context.Context, nasAddress string) (string, error) {
	cached, ok := d.secrets.Get(nasAddress)
	if !ok {
		secret, found, err := d.store.NASSecret(ctx, nasAddress)
		if err != nil {
			return "", err
		}
		cached = cache.NASSecret{Secret: secret, Found: found}
		d.secrets.Set(nasAddress, cached)
	}
	if !cached.Found {
		return d.cfg.DefaultSecret, nil
	}
	return cached.Secret, nil
}
