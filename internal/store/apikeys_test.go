package store

import (
	"testing"
	"time"

	"lookout/internal/models"
)

func TestValidateAPIKey(t *testing.T) {
	s := newTestStore(t)

	k, err := s.CreateAPIKey(&models.APIKey{Name: "agent-1", IsActive: true})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if k.Key == "" {
		t.Fatal("expected a generated secret")
	}

	ok, err := s.ValidateAPIKey(k.Key)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if !ok {
		t.Error("active key should validate")
	}

	fetched, err := s.APIKey(k.ID)
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if fetched.LastUsed == nil {
		t.Error("validation should stamp last_used")
	}
}

func TestValidateAPIKeyUnknown(t *testing.T) {
	s := newTestStore(t)
	ok, err := s.ValidateAPIKey("no-such-key")
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if ok {
		t.Error("unknown key validated")
	}
}

func TestValidateAPIKeyInactive(t *testing.T) {
	s := newTestStore(t)

	k, err := s.CreateAPIKey(&models.APIKey{Name: "revoked", IsActive: true})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if _, err := s.SetAPIKeyActive(k.ID, false); err != nil {
		t.Fatalf("SetAPIKeyActive: %v", err)
	}

	ok, err := s.ValidateAPIKey(k.Key)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if ok {
		t.Error("inactive key validated")
	}
}

func TestValidateAPIKeyExpired(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	past := fixed.Add(-time.Hour)
	future := fixed.Add(time.Hour)

	expired, err := s.CreateAPIKey(&models.APIKey{Name: "old", ExpiresAt: &past, IsActive: true})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	valid, err := s.CreateAPIKey(&models.APIKey{Name: "fresh", ExpiresAt: &future, IsActive: true})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if ok, _ := s.ValidateAPIKey(expired.Key); ok {
		t.Error("expired key validated")
	}
	if ok, _ := s.ValidateAPIKey(valid.Key); !ok {
		t.Error("unexpired key rejected")
	}
}

func TestDeleteAPIKey(t *testing.T) {
	s := newTestStore(t)

	k, err := s.CreateAPIKey(&models.APIKey{Name: "temp", IsActive: true})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	existed, err := s.DeleteAPIKey(k.ID)
	if err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if !existed {
		t.Error("expected delete to report the key existed")
	}

	existed, err = s.DeleteAPIKey(k.ID)
	if err != nil {
		t.Fatalf("second DeleteAPIKey: %v", err)
	}
	if existed {
		t.Error("second delete should report missing key")
	}
}
