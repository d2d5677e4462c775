package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"photolog/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "upload_and_store", "thumbnail", "ffmpeg failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"upload_and_store", "thumbnail", "ffmpeg failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestDetailsClassifiesMarkers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", services.Wrap(services.ErrValidation, "tag-day", "decode", "missing payload", nil))
	details := services.Details(wrapped)
	if details.Kind != services.ErrorKindValidation {
		t.Fatalf("expected validation kind, got %s", details.Kind)
	}
	if details.Step != "tag-day" || details.Operation != "decode" {
		t.Fatalf("expected step context, got %+v", details)
	}
	if details.Hint == "" {
		t.Fatal("expected hint for validation error")
	}

	if kind := services.Details(context.Canceled).Kind; kind != services.ErrorKindCanceled {
		t.Fatalf("expected canceled kind, got %s", kind)
	}
	if kind := services.Details(errors.New("plain")).Kind; kind != services.ErrorKindUnknown {
		t.Fatalf("expected unknown kind, got %s", kind)
	}
	if details := services.Details(nil); details.Kind != "" {
		t.Fatalf("expected empty details for nil, got %+v", details)
	}
}
