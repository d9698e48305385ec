package tokenpkg

import (
	"testing"
	"time"

	"github.com/go-petr/pet-wallet/pkg/randompkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestPasetoMaker(t *testing.T) {
	t.Parallel()

	secretKey := randompkg.String(32)

	maker, err := NewPasetoMaker(secretKey)
	if err != nil {
		t.Fatalf("NewPasetoMaker(%v) returned error: %v", secretKey, err)
	}

	accountID := randompkg.AccountID()
	duration := time.Minute

	token, payload, err := maker.CreateToken(accountID, RoleAdmin, duration)
	if err != nil {
		t.Errorf("maker.CreateToken(%v, %v) returned error: %v", accountID, duration, err)
	}

	verified, err := maker.VerifyToken(token)
	if err != nil {
		t.Errorf("maker.VerifyToken(%v) returned error: %v", token, err)
	}

	want := &Payload{
		AccountID: accountID,
		Role:      RoleAdmin,
		IssuedAt:  time.Now(),
		ExpiredAt: time.Now().Add(duration),
	}

	ignore := cmpopts.IgnoreFields(Payload{}, "ID")
	delta := cmpopts.EquateApproxTime(time.Minute)

	if diff := cmp.Diff(payload, want, ignore, delta); diff != "" {
		t.Errorf("maker.CreateToken(%v, %v) returned unexpected diff: %v", accountID, duration, diff)
	}

	if diff := cmp.Diff(verified, want, ignore, delta); diff != "" {
		t.Errorf("maker.VerifyToken(%v) returned unexpected diff: %v", token, diff)
	}

	if !verified.IsAdmin() {
		t.Errorf("payload.IsAdmin() = false, want true")
	}
}

func TestNewPasetoMakerInvalidKey(t *testing.T) {
	t.Parallel()

	got, err := NewPasetoMaker(randompkg.String(16))
	if err == nil {
		t.Errorf("NewPasetoMaker returned nil error for a short key")
	}

	if got != nil {
		t.Errorf("PasetoMaker = %+v, want nil", got)
	}
}

func TestExpiredPasetoToken(t *testing.T) {
	t.Parallel()

	secretKey := randompkg.String(32)

	maker, err := NewPasetoMaker(secretKey)
	if err != nil {
		t.Fatalf("NewPasetoMaker(%v) returned error: %v", secretKey, err)
	}

	accountID := randompkg.AccountID()
	duration := -time.Minute

	token, _, err := maker.CreateToken(accountID, RoleUser, duration)
	if err != nil {
		t.Errorf("maker.CreateToken(%v, %v) returned error: %v", accountID, duration, err)
	}

	_, err = maker.VerifyToken(token)
	if err != ErrExpiredToken {
		t.Errorf("maker.VerifyToken(%v) returned unexpected error: %v", token, err)
	}
}

func TestNewMaker(t *testing.T) {
	t.Parallel()

	key := randompkg.String(32)

	m, err := NewMaker(TypeJWT, key)
	if err != nil {
		t.Fatalf("NewMaker(jwt) returned error: %v", err)
	}

	if _, ok := m.(*JWTMaker); !ok {
		t.Errorf("NewMaker(jwt) = %T, want *JWTMaker", m)
	}

	m, err = NewMaker(TypePaseto, key)
	if err != nil {
		t.Fatalf("NewMaker(paseto) returned error: %v", err)
	}

	if _, ok := m.(*PasetoMaker); !ok {
		t.Errorf("NewMaker(paseto) = %T, want *PasetoMaker", m)
	}
}
