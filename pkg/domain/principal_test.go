package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordLogin_CapsHistory(t *testing.T) {
	p := &Principal{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < LoginHistoryCap+5; i++ {
		p.RecordLogin(base.Add(time.Duration(i) * time.Hour))
	}

	if len(p.LoginHistory) != LoginHistoryCap {
		t.Fatalf("history length = %d, want %d", len(p.LoginHistory), LoginHistoryCap)
	}

	// Oldest entries dropped, most recent last
	wantFirst := base.Add(5 * time.Hour)
	if !p.LoginHistory[0].Equal(wantFirst) {
		t.Errorf("oldest retained entry = %v, want %v", p.LoginHistory[0], wantFirst)
	}
	wantLast := base.Add(time.Duration(LoginHistoryCap+4) * time.Hour)
	if !p.LoginHistory[len(p.LoginHistory)-1].Equal(wantLast) {
		t.Errorf("newest entry = %v, want %v", p.LoginHistory[len(p.LoginHistory)-1], wantLast)
	}
	if p.LastLogin == nil || !p.LastLogin.Equal(wantLast) {
		t.Errorf("LastLogin = %v, want %v", p.LastLogin, wantLast)
	}
}

func TestRecordLogin_FirstLogin(t *testing.T) {
	p := &Principal{}
	now := time.Now()
	p.RecordLogin(now)

	if len(p.LoginHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(p.LoginHistory))
	}
	if p.LastLogin == nil || !p.LastLogin.Equal(now) {
		t.Errorf("LastLogin not set")
	}
}

func TestPrincipal_JSONNeverExposesSecrets(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute)
	p := Principal{
		ID:                     uuid.New(),
		Username:               "alice",
		Email:                  "alice@example.com",
		PasswordHash:           "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		Role:                   RoleUser,
		Status:                 StatusActive,
		TwoFactorCodeHash:      "deadbeef",
		TwoFactorCodeExpiresAt: &exp,
		ResetCodeHash:          "cafebabe",
		ResetCodeExpiresAt:     &exp,
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, secret := range []string{"argon2id", "deadbeef", "cafebabe", "password"} {
		if strings.Contains(string(out), secret) {
			t.Errorf("serialized principal leaks %q: %s", secret, out)
		}
	}
}

func TestUpdateFields_Empty(t *testing.T) {
	if !(UpdateFields{}).Empty() {
		t.Error("zero UpdateFields should be empty")
	}
	name := "bob"
	if (UpdateFields{Username: &name}).Empty() {
		t.Error("UpdateFields with username should not be empty")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusActive, StatusInactive, StatusSuspended} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "deleted", "ACTIVE", "pending"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true, want false", s)
		}
	}
}

func TestValidUserRole(t *testing.T) {
	for _, r := range []string{RoleUser, RolePremium, RoleBanned, RoleAdmin} {
		if !ValidUserRole(r) {
			t.Errorf("ValidUserRole(%q) = false, want true", r)
		}
	}
	if ValidUserRole("superadmin") {
		t.Error("superadmin is not a user-kind role")
	}
}

func TestKindValid(t *testing.T) {
	if !KindUser.Valid() || !KindAdmin.Valid() {
		t.Error("known kinds should be valid")
	}
	if Kind("service").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
