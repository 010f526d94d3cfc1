package widgettoken

import (
	"context"
	"testing"
	"time"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/pkg/utils"
)

type fakeStore struct {
	byHash  map[string]*domain.WidgetToken
	touched []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{byHash: make(map[string]*domain.WidgetToken)}
}

func (s *fakeStore) CreateWidgetToken(ctx context.Context, t *domain.WidgetToken) (*domain.WidgetToken, error) {
	out := *t
	out.ID = "tok-" + t.TokenPrefix
	s.byHash[t.TokenHash] = &out
	return &out, nil
}

func (s *fakeStore) GetWidgetTokenByHash(ctx context.Context, hash string) (*domain.WidgetToken, error) {
	t, ok := s.byHash[hash]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "widget token not found")
	}
	return t, nil
}

func (s *fakeStore) TouchWidgetToken(ctx context.Context, id string) error {
	s.touched = append(s.touched, id)
	return nil
}

func TestCreateAndValidateRoundtrip(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	result, err := svc.Create(context.Background(), "bot-1", "docs widget", []string{"docs.example.com"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Plaintext == "" {
		t.Fatalf("expected a non-empty plaintext token")
	}

	v, err := svc.Validate(context.Background(), result.Plaintext, "https://docs.example.com")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.BotID != "bot-1" {
		t.Fatalf("expected bot-1, got %s", v.BotID)
	}
	if len(store.touched) != 1 {
		t.Fatalf("expected TouchWidgetToken to be called once, got %d calls", len(store.touched))
	}
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	svc := New(newFakeStore())
	if _, err := svc.Validate(context.Background(), "not-a-real-token", ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestValidateAfterRevocationReturnsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	result, err := svc.Create(context.Background(), "bot-1", "docs widget", []string{"docs.example.com"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Revocation is deletion, not a soft-delete flag: the row is gone, not
	// merely flagged, so a subsequent validation sees a plain not-found.
	delete(store.byHash, result.Token.TokenHash)

	if _, err := svc.Validate(context.Background(), result.Plaintext, "https://docs.example.com"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected KindNotFound after revocation, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	store := newFakeStore()
	plaintext := "plaintext-value"
	past := time.Now().Add(-time.Hour)
	store.byHash[utils.SHA256Hex(plaintext)] = &domain.WidgetToken{ID: "tok-1", BotID: "bot-1", ExpiresAt: &past}

	svc := New(store)
	if _, err := svc.Validate(context.Background(), plaintext, ""); !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("expected KindExpired, got %v", err)
	}
}

func TestValidateEnforcesAllowedDomains(t *testing.T) {
	store := newFakeStore()
	plaintext := "plaintext-value"
	store.byHash[utils.SHA256Hex(plaintext)] = &domain.WidgetToken{
		ID: "tok-1", BotID: "bot-1", AllowedHosts: []string{"docs.example.com"},
	}
	svc := New(store)

	if _, err := svc.Validate(context.Background(), plaintext, "https://evil.example.com/page"); !apperr.Is(err, apperr.KindDomainNotAllowed) {
		t.Fatalf("expected KindDomainNotAllowed for a mismatched origin, got %v", err)
	}

	if _, err := svc.Validate(context.Background(), plaintext, "https://docs.example.com/page"); err != nil {
		t.Fatalf("expected an allowed origin to pass, got %v", err)
	}
}

func TestCreateRejectsEmptyAllowedDomains(t *testing.T) {
	svc := New(newFakeStore())

	if _, err := svc.Create(context.Background(), "bot-1", "docs widget", nil, nil); !apperr.Is(err, apperr.KindValidationFailed) {
		t.Fatalf("expected KindValidationFailed for a nil domain list, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "bot-1", "docs widget", []string{"  ", ""}, nil); !apperr.Is(err, apperr.KindValidationFailed) {
		t.Fatalf("expected KindValidationFailed for a blank-only domain list, got %v", err)
	}
}

func TestValidateRejectsOriginWhenTokenHasNoAllowedHosts(t *testing.T) {
	store := newFakeStore()
	plaintext := "plaintext-value"
	store.byHash[utils.SHA256Hex(plaintext)] = &domain.WidgetToken{ID: "tok-1", BotID: "bot-1"}
	svc := New(store)

	if _, err := svc.Validate(context.Background(), plaintext, "https://anything.example.com"); !apperr.Is(err, apperr.KindDomainNotAllowed) {
		t.Fatalf("expected KindDomainNotAllowed when the token carries no allowed hosts, got %v", err)
	}
}
