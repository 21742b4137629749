package utils

import (
	"regexp"
	"testing"
	"time"
)

func TestGenerateLotCode(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	code := GenerateLotCode(now)

	matched, err := regexp.MatchString(`^L-250615-[0-9A-F]{4}$`, code)
	if err != nil || !matched {
		t.Fatalf("unexpected lot code %q", code)
	}
}

func TestGenerateAutoLotCode(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	code := GenerateAutoLotCode(now)

	matched, err := regexp.MatchString(`^AUTO-20250615-[0-9A-F]{4}$`, code)
	if err != nil || !matched {
		t.Fatalf("unexpected auto lot code %q", code)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 45, 0, time.UTC)
	if got := GenerateOrderNumber(now); got != "PED20250615103045" {
		t.Fatalf("unexpected order number %q", got)
	}
}
