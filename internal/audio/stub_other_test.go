//go:build !windows

package audio

import (
	"context"
	"errors"
	"testing"
)

func TestCheckAvailableUnsupportedPlatform(t *testing.T) {
	ok, err := CheckAvailable(context.Background())
	if ok {
		t.Fatal("CheckAvailable() = true on a non-windows stub, want false")
	}
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("CheckAvailable() error = %v, want ErrUnsupportedPlatform", err)
	}
}
