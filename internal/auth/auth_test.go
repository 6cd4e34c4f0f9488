package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"tillbox/internal/auth"
	"tillbox/internal/domain"
)

var secret = []byte("test-secret")

func mint(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestVerifyUIDClaim(t *testing.T) {
	v := auth.NewJWTVerifier(secret, "")
	tok := mint(t, jwt.MapClaims{"uid": "tenant-7"}, secret)

	tenant, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatal(err)
	}
	if tenant != "tenant-7" {
		t.Fatalf("tenant = %q", tenant)
	}
}

func TestVerifySubjectFallback(t *testing.T) {
	v := auth.NewJWTVerifier(secret, "")
	tok := mint(t, jwt.MapClaims{"sub": "tenant-9"}, secret)

	tenant, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatal(err)
	}
	if tenant != "tenant-9" {
		t.Fatalf("tenant = %q", tenant)
	}
}

func TestVerifyRejections(t *testing.T) {
	v := auth.NewJWTVerifier(secret, "issuer-a")

	cases := []struct {
		name string
		tok  string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", mint(t, jwt.MapClaims{"uid": "x", "iss": "issuer-a"}, []byte("other"))},
		{"wrong issuer", mint(t, jwt.MapClaims{"uid": "x", "iss": "issuer-b"}, secret)},
		{"no identity", mint(t, jwt.MapClaims{"iss": "issuer-a"}, secret)},
		{"expired", mint(t, jwt.MapClaims{
			"uid": "x", "iss": "issuer-a",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, secret)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tc.tok); !errors.Is(err, domain.ErrAuth) {
				t.Fatalf("expected ErrAuth, got %v", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Basic dXNlcg==", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := auth.BearerToken(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("BearerToken(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}
