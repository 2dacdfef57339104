package errors

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting Category = "routing"
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
	CategoryRuntime Category = "runtime"
)

// Location represents a position in a source or configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// StrataError is a structured error with location, suggestion, and
// documentation link.
type StrataError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (routing, config, cli, runtime).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains surrounding file lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *StrataError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *StrataError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location to the error and loads surrounding
// lines for display.
func (e *StrataError) WithLocation(file string, line, column int) *StrataError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithJSONOffset adds a location derived from a byte offset into data,
// the position encoding/json reports for syntax and type errors.
func (e *StrataError) WithJSONOffset(file string, data []byte, offset int64) *StrataError {
	if offset < 0 || offset > int64(len(data)) {
		return e
	}
	head := data[:offset]
	line := 1 + bytes.Count(head, []byte("\n"))
	column := int(offset) - bytes.LastIndexByte(head, '\n')
	return e.WithLocation(file, line, column)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *StrataError) WithSuggestion(s string) *StrataError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *StrataError) WithExample(ex string) *StrataError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *StrataError) WithDetail(d string) *StrataError {
	e.Detail = d
	return e
}

// WithContext adds custom context lines to the error.
func (e *StrataError) WithContext(lines []string) *StrataError {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *StrataError) Wrap(err error) *StrataError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a StrataError from a registered error code.
func New(code string) *StrataError {
	template, ok := registry[code]
	if !ok {
		return &StrataError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &StrataError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new StrataError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *StrataError {
	return &StrataError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a StrataError.
func FromError(err error, code string) *StrataError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StrataError); ok {
		return se
	}
	return New(code).Wrap(err)
}
