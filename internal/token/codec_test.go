package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCodec_EncodeDecode(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	claims := Claims{
		UserID:    "user-1",
		Email:     "parent@example.com",
		Class:     ClassAccess,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	raw, err := codec.Encode(claims)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.UserID != claims.UserID {
		t.Errorf("UserID = %q, want %q", decoded.UserID, claims.UserID)
	}
	if decoded.Email != claims.Email {
		t.Errorf("Email = %q, want %q", decoded.Email, claims.Email)
	}
	if decoded.Class != ClassAccess {
		t.Errorf("Class = %q, want %q", decoded.Class, ClassAccess)
	}
	if !decoded.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", decoded.IssuedAt, now)
	}
	if !decoded.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", decoded.ExpiresAt, now.Add(time.Hour))
	}
}

func TestCodec_Encode_Deterministic(t *testing.T) {
	codec, _ := NewCodec("test-secret")

	now := time.Now().Truncate(time.Second)
	claims := Claims{
		UserID:    "user-1",
		Email:     "parent@example.com",
		Class:     ClassRefresh,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	first, err := codec.Encode(claims)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := codec.Encode(claims)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if first != second {
		t.Error("同一クレームから異なるトークンが生成された")
	}
}

func TestCodec_Decode_Errors(t *testing.T) {
	codec, _ := NewCodec("test-secret")
	other, _ := NewCodec("other-secret")

	now := time.Now()

	validRaw, err := codec.Encode(Claims{
		UserID:    "user-1",
		Class:     ClassAccess,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	forgedRaw, err := other.Encode(Claims{
		UserID:    "user-1",
		Class:     ClassAccess,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expiredRaw, err := codec.Encode(Claims{
		UserID:    "user-1",
		Class:     ClassAccess,
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "不正な形式", raw: "not-a-token", wantErr: ErrTokenMalformed},
		{name: "空文字列", raw: "", wantErr: ErrTokenMalformed},
		{name: "別シークレットで署名", raw: forgedRaw, wantErr: ErrTokenSignatureInvalid},
		{name: "改ざんされた署名", raw: validRaw[:len(validRaw)-4] + "xxxx", wantErr: ErrTokenSignatureInvalid},
		{name: "有効期限切れ", raw: expiredRaw, wantErr: ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCodec_Decode_RejectsUnsignedToken(t *testing.T) {
	codec, _ := NewCodec("test-secret")

	// alg:noneのトークンは署名検証の対象外となるため、必ず拒否されること。
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJzdWIiOiJ1c2VyLTEifQ."

	if _, err := codec.Decode(unsigned); err == nil {
		t.Error("署名なしトークンが受理された")
	}
}

func TestNewCodec_EmptySecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Error("空シークレットでエラーが返らなかった")
	}
}

func TestCodec_Decode_TokenIsThreeSegments(t *testing.T) {
	codec, _ := NewCodec("test-secret")

	now := time.Now()
	raw, err := codec.Encode(Claims{
		UserID:    "user-1",
		Class:     ClassAccess,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := strings.Count(raw, "."); got != 2 {
		t.Errorf("セグメント区切り数 = %d, want 2", got)
	}
}
