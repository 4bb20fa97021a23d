package session

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsCodeExpired(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"expired", errors.New("rpc error code 400: PHONE_CODE_EXPIRED"), true},
		{"hash expired", errors.New("CODE_HASH_EXPIRED"), true},
		{"wrapped", fmt.Errorf("sign in: %w", errors.New("PHONE_CODE_EXPIRED")), true},
		{"invalid code", errors.New("rpc error code 400: PHONE_CODE_INVALID"), false},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCodeExpired(tt.err); got != tt.want {
				t.Fatalf("IsCodeExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"flood wait", errors.New("rpc error code 420: FLOOD_WAIT (31)"), true},
		{"premium flood", errors.New("FLOOD_PREMIUM_WAIT_3"), true},
		{"other", errors.New("PHONE_NUMBER_INVALID"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Fatalf("IsRateLimited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCooldownErrorRoundsUp(t *testing.T) {
	err := &CooldownError{Remaining: 29500 * time.Millisecond}
	if got, want := err.Error(), "请求过于频繁，请 30 秒后再试"; got != want {
		t.Fatalf("unexpected message: %q, want %q", got, want)
	}

	err = &CooldownError{Remaining: 10 * time.Second}
	if got, want := err.Error(), "请求过于频繁，请 10 秒后再试"; got != want {
		t.Fatalf("unexpected message: %q, want %q", got, want)
	}
}

func TestTransportErrorMessage(t *testing.T) {
	inner := errors.New("rpc failure")
	err := &TransportError{Msg: "登录失败", Err: inner}
	if err.Error() != "登录失败" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected unwrap to reach inner error")
	}

	bare := &TransportError{Err: inner}
	if bare.Error() != "rpc failure" {
		t.Fatalf("unexpected bare message: %q", bare.Error())
	}
}
