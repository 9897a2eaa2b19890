package utils

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("55 1234 5678", CountryCode); err != nil {
		t.Fatalf("expected Mexico City number to be valid, got %v", err)
	}
	for _, in := range []string{"123", "abc", ""} {
		if err := ValidatePhoneNumber(in, CountryCode); err == nil {
			t.Fatalf("ValidatePhoneNumber(%q) expected error", in)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-05-10", time.UTC)
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if !got.Equal(time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %s", got)
	}
	got, err = ParseDate("2024-05-10T18:30:00Z", time.UTC)
	if err != nil || got.Hour() != 0 || got.Day() != 10 {
		t.Fatalf("expected RFC3339 input truncated to the day, got %s (%v)", got, err)
	}
	if _, err := ParseDate("10/05/2024", time.UTC); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}
	if err := ValidateStruct(input{Name: "María", Email: "maria@correo.com"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	err := ValidateStruct(input{Email: "nope"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "Email: email") || !strings.Contains(err.Error(), "Name: required") {
		t.Fatalf("unexpected validation message %q", err.Error())
	}
}

func TestBranchContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := GetBranchFromContext(ctx); ok {
		t.Fatalf("empty context should carry no branch")
	}
	ctx = SetBranchInContext(ctx, "aquismon")
	if got, ok := GetBranchFromContext(ctx); !ok || got != "aquismon" {
		t.Fatalf("expected aquismon, got %q (%v)", got, ok)
	}
}
