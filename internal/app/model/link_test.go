package model

import (
	"testing"
	"time"
)

func TestLink_Expired(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	link := Link{Code: "abc", CreatedAt: created, ExpiresAt: created.Add(LinkTTL)}

	if link.Expired(created) {
		t.Fatal("link should be live at creation")
	}
	if link.Expired(link.ExpiresAt.Add(-time.Nanosecond)) {
		t.Fatal("link should be live just before expiry")
	}
	if !link.Expired(link.ExpiresAt) {
		t.Fatal("link should be expired at expiresAt")
	}
	if !link.Expired(link.ExpiresAt.Add(time.Hour)) {
		t.Fatal("link should be expired after expiresAt")
	}
}
