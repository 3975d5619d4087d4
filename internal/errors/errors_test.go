package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "pack error",
			code:    CodePackNotFound,
			wantMsg: "Pack not found",
			wantCat: CategoryPack,
		},
		{
			name:    "source error",
			code:    CodeSourceProtected,
			wantMsg: "The local source cannot be modified this way",
			wantCat: CategorySource,
		},
		{
			name:    "install error",
			code:    CodeComponentInstallError,
			wantMsg: "Failed to install component",
			wantCat: CategoryInstall,
		},
		{
			name:    "unknown error code",
			code:    "NOPE",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestEveryCodeHasSuggestionOrIsValidation(t *testing.T) {
	for code, tmpl := range registry {
		if tmpl.Message == "" {
			t.Errorf("%s has no message", code)
		}
		if tmpl.Suggestion == "" && code != CodeValidation {
			t.Errorf("%s has no suggestion", code)
		}
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryHook, "hook %q timed out", "lint")
	if err.Message != `hook "lint" timed out` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryHook {
		t.Errorf("Category = %q, want %q", err.Category, CategoryHook)
	}
}

func TestZccError_Error(t *testing.T) {
	err := New(CodePackNotFound)
	if got, want := err.Error(), "PACK_NOT_FOUND: Pack not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.WithDetail("essentials")
	if got, want := err.Error(), "PACK_NOT_FOUND: Pack not found: essentials"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &ZccError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestZccError_Wrap(t *testing.T) {
	inner := io.ErrUnexpectedEOF
	err := New(CodeInvalidJSON).Wrap(inner)

	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should find the wrapped error")
	}
	if err.Detail != inner.Error() {
		t.Errorf("Detail = %q, want wrapped message", err.Detail)
	}
}

func TestZccError_Is(t *testing.T) {
	err := fmt.Errorf("loading: %w", New(CodeSourceNotFound).WithDetail("corp"))

	if !stderrors.Is(err, New(CodeSourceNotFound)) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New(CodePackNotFound)) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeComponentInstallError).Wrap(New(CodeFileConflict))

	if !HasCode(err, CodeComponentInstallError) {
		t.Error("HasCode should find the outer code")
	}
	if !HasCode(err, CodeFileConflict) {
		t.Error("HasCode should find the wrapped code")
	}
	if HasCode(err, CodeNetwork) {
		t.Error("HasCode should not find an absent code")
	}
	if HasCode(io.EOF, CodeNetwork) {
		t.Error("HasCode on a plain error should be false")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeConfig) != nil {
		t.Error("FromError(nil) should be nil")
	}

	ze := New(CodeHookExists)
	if FromError(ze, CodeConfig) != ze {
		t.Error("FromError should return an existing ZccError unchanged")
	}

	wrapped := FromError(io.EOF, CodeConfig)
	if wrapped.Code != CodeConfig {
		t.Errorf("Code = %q, want %q", wrapped.Code, CodeConfig)
	}
	if Code(wrapped) != CodeConfig {
		t.Errorf("Code() = %q, want %q", Code(wrapped), CodeConfig)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodePackNotFound).
		WithDetail("Pack 'frontend-react' not found in any source").
		WithExample("zcc source list")

	out := err.Format()
	for _, want := range []string{
		"ERROR PACK_NOT_FOUND: Pack not found",
		"Pack 'frontend-react' not found in any source",
		"Hint: Run 'zcc pack list' to see available packs",
		"zcc source list",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(CodeSourceExists).WithDetail("corp")
	if got, want := err.FormatCompact(), "SOURCE_EXISTS: Source already exists (corp)"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, io.EOF)
	if !strings.Contains(buf.String(), "ERROR: EOF") {
		t.Errorf("plain error output = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, fmt.Errorf("outer: %w", New(CodeNotInitialized)))
	if !strings.Contains(buf.String(), "NOT_INITIALIZED") {
		t.Errorf("wrapped ZccError output = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %d lines", len(lines))
	}
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line too long: %q", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should wrap to nil")
	}
}
