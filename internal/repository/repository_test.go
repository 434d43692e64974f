package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "一意制約違反", err: &pq.Error{Code: "23505"}, want: true},
		{name: "外部キー違反", err: &pq.Error{Code: "23503"}, want: false},
		{name: "pq以外のエラー", err: errors.New("connection refused"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullStringRoundTrip(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("空文字列がNULLにならない")
	}
	if ns := nullString("happy"); !ns.Valid || ns.String != "happy" {
		t.Errorf("nullString(%q) = %+v", "happy", ns)
	}
	if got := nullStringValue(nullString("")); got != "" {
		t.Errorf("NULLからの復元 = %q, want 空文字列", got)
	}
	if got := nullStringValue(nullString("sad")); got != "sad" {
		t.Errorf("値からの復元 = %q, want %q", got, "sad")
	}
}
