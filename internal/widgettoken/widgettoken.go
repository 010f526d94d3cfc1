// Package widgettoken implements opaque bearer credentials that scope
// a widget's requests to one bot and to a non-empty allow-listed set of
// embedding domains.
package widgettoken

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/pkg/utils"
)

const plaintextBytes = 64

type Store interface {
	CreateWidgetToken(ctx context.Context, t *domain.WidgetToken) (*domain.WidgetToken, error)
	GetWidgetTokenByHash(ctx context.Context, hash string) (*domain.WidgetToken, error)
	TouchWidgetToken(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

type CreateResult struct {
	Token     *domain.WidgetToken
	Plaintext string
}

// Create generates a random bearer token, persists only its SHA-256 hash,
// and returns the plaintext once. allowedDomains must be a non-empty list
// of origins this token is scoped to.
func (s *Service) Create(ctx context.Context, botID, name string, allowedDomains []string, expiresAt *time.Time) (*CreateResult, error) {
	hosts := normalizeHosts(allowedDomains)
	if len(hosts) == 0 {
		return nil, apperr.New(apperr.KindValidationFailed, "allowed_domains must be a non-empty list of origins")
	}

	plaintext, err := generatePlaintext()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate widget token", err)
	}

	hash := utils.SHA256Hex(plaintext)
	prefix := plaintext
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	t := &domain.WidgetToken{
		BotID:        botID,
		Name:         name,
		TokenHash:    hash,
		TokenPrefix:  prefix,
		AllowedHosts: hosts,
		ExpiresAt:    expiresAt,
	}

	created, err := s.store.CreateWidgetToken(ctx, t)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Token: created, Plaintext: plaintext}, nil
}

// Validation is the outcome of validating a presented bearer token against
// an Origin or Referer.
type Validation struct {
	BotID string
}

// Validate looks up the token by the SHA-256 hash of the presented
// plaintext, checks expiry and revocation, and enforces an exact,
// case-insensitive host match against allowed_domains, which every token
// carries since Create rejects an empty list.
func (s *Service) Validate(ctx context.Context, presented, originOrReferer string) (*Validation, error) {
	hash := utils.SHA256Hex(strings.TrimSpace(presented))

	t, err := s.store.GetWidgetTokenByHash(ctx, hash)
	if err != nil {
		metrics.WidgetTokenValidationTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if t.Revoked {
		metrics.WidgetTokenValidationTotal.WithLabelValues("revoked").Inc()
		return nil, apperr.New(apperr.KindUnauthorized, "widget token revoked")
	}
	if t.ExpiresAt != nil && !time.Now().Before(*t.ExpiresAt) {
		metrics.WidgetTokenValidationTotal.WithLabelValues("expired").Inc()
		return nil, apperr.New(apperr.KindExpired, "widget token expired")
	}

	host := hostOf(originOrReferer)
	if host == "" || !hostAllowed(host, t.AllowedHosts) {
		metrics.WidgetTokenValidationTotal.WithLabelValues("domain_not_allowed").Inc()
		return nil, apperr.New(apperr.KindDomainNotAllowed, "request origin is not an allowed domain for this widget token")
	}

	metrics.WidgetTokenValidationTotal.WithLabelValues("ok").Inc()
	_ = s.store.TouchWidgetToken(ctx, t.ID)

	return &Validation{BotID: t.BotID}, nil
}

func generatePlaintext() (string, error) {
	buf := make([]byte, plaintextBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeHosts(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func hostOf(originOrReferer string) string {
	originOrReferer = strings.TrimSpace(originOrReferer)
	if originOrReferer == "" {
		return ""
	}
	u, err := url.Parse(originOrReferer)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hostAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		if a == host {
			return true
		}
	}
	return false
}
