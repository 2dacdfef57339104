package errors

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
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
			name:    "routing error",
			code:    "E001",
			wantMsg: "Route parameter conflict",
			wantCat: CategoryRouting,
		},
		{
			name:    "config error",
			code:    "E020",
			wantMsg: "Invalid strata.json",
			wantCat: CategoryConfig,
		},
		{
			name:    "cli error",
			code:    "E040",
			wantMsg: "Project directory already exists",
			wantCat: CategoryCLI,
		},
		{
			name:    "unknown error code",
			code:    "E999",
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

func TestNewf(t *testing.T) {
	err := Newf(CategoryConfig, "file %q not found", "strata.json")
	if err.Message != `file "strata.json" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryConfig {
		t.Errorf("Category = %q, want %q", err.Category, CategoryConfig)
	}
}

func TestStrataError_Error(t *testing.T) {
	err := New("E001")
	want := "E001: Route parameter conflict"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &StrataError{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestStrataError_Wrap(t *testing.T) {
	underlying := stderrors.New("read failed")
	err := New("E020").Wrap(underlying)

	if !stderrors.Is(err, underlying) {
		t.Error("errors.Is failed to find the wrapped error")
	}
	var se *StrataError
	if !stderrors.As(error(err), &se) || se.Code != "E020" {
		t.Error("errors.As failed to recover the StrataError")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E020") != nil {
		t.Error("FromError(nil) should return nil")
	}

	already := New("E001")
	if got := FromError(already, "E020"); got != already {
		t.Error("FromError should pass an existing StrataError through")
	}

	plain := stderrors.New("boom")
	wrapped := FromError(plain, "E020")
	if wrapped.Code != "E020" {
		t.Errorf("Code = %q, want E020", wrapped.Code)
	}
	if !stderrors.Is(wrapped, plain) {
		t.Error("expected the original error to be wrapped")
	}
}

func TestStrataError_WithLocation(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "strata.json")
	content := `{
  "addr": ":8080",
  "router": {
    "cache_size": 1024,,
  }
}
`
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E020").WithLocation(tmpFile, 4, 23)
	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.File != tmpFile || err.Location.Line != 4 || err.Location.Column != 23 {
		t.Errorf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestStrataError_WithJSONOffset(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "strata.json")
	data := []byte("{\n  \"addr\": 8080\n}\n")
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		t.Fatal(err)
	}

	// Offset of the '8' in 8080.
	offset := int64(strings.Index(string(data), "8080"))
	err := New("E020").WithJSONOffset(tmpFile, data, offset)
	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.Line != 2 {
		t.Errorf("Line = %d, want 2", err.Location.Line)
	}
	if err.Location.Column != 11 {
		t.Errorf("Column = %d, want 11", err.Location.Column)
	}

	// Out-of-range offsets leave the error untouched.
	err2 := New("E020").WithJSONOffset(tmpFile, data, int64(len(data)+10))
	if err2.Location != nil {
		t.Error("expected no location for an out-of-range offset")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E001").
		WithSuggestion("Rename one of the parameters").
		WithExample(`app.Get("/users/:id", showUser)`)

	out := err.Format()
	for _, want := range []string{
		"ERROR E001: Route parameter conflict",
		"Hint: Rename one of the parameters",
		"Example:",
		`app.Get("/users/:id", showUser)`,
		"https://strata.dev/docs/errors/E001",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E020")
	err.Location = &Location{File: "strata.json", Line: 4, Column: 23}

	want := "strata.json:4:23: E020: Invalid strata.json"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E021").WithSuggestion("Use host:port, such as :8080")
	err.Location = &Location{File: "strata.json", Line: 2}

	var decoded struct {
		Code       string `json:"code"`
		Category   string `json:"category"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion"`
		Location   *struct {
			File string `json:"File"`
			Line int    `json:"Line"`
		} `json:"location"`
	}
	if jsonErr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jsonErr != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", jsonErr)
	}
	if decoded.Code != "E021" || decoded.Category != "config" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Location == nil || decoded.Location.Line != 2 {
		t.Errorf("location = %+v, want line 2", decoded.Location)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  int
	}{
		{"empty", "", 20, 0},
		{"short", "fits on one line", 70, 1},
		{"wraps", strings.Repeat("word ", 30), 20, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := wrapText(tt.text, tt.width)
			if len(lines) != tt.want {
				t.Errorf("len(lines) = %d, want %d (%q)", len(lines), tt.want, lines)
			}
			for _, line := range lines {
				if len(line) > tt.width {
					t.Errorf("line %q exceeds width %d", line, tt.width)
				}
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("expected registered codes")
	}

	if _, ok := GetTemplate("E001"); !ok {
		t.Error("E001 should be registered")
	}
	if _, ok := GetTemplate("E999"); ok {
		t.Error("E999 should not be registered")
	}

	Register("E900", ErrorTemplate{Category: CategoryRuntime, Message: "Custom"})
	t.Cleanup(func() { delete(registry, "E900") })
	if got := New("E900").Message; got != "Custom" {
		t.Errorf("Message = %q, want Custom", got)
	}
}
