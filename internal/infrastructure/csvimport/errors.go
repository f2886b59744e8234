package csvimport

import (
	"fmt"
	"strings"
)

// Row error codes
const (
	CodeRequired        = "REQUIRED"
	CodeInvalidValue    = "INVALID_VALUE"
	CodeDuplicateInFile = "DUPLICATE_IN_FILE"
	CodeDuplicateInDB   = "DUPLICATE_IN_DB"
	CodeMalformedRow    = "MALFORMED_ROW"
)

// RowError points at a single problem in the file
type RowError struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d, column '%s': %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Errors collects row errors up to a limit while still counting the overflow
type Errors struct {
	items []RowError
	max   int
	total int
}

// NewErrors creates a collection that keeps at most max entries
func NewErrors(max int) *Errors {
	if max <= 0 {
		max = 100
	}
	return &Errors{max: max}
}

// Add records an error
func (c *Errors) Add(err RowError) {
	c.total++
	if len(c.items) < c.max {
		c.items = append(c.items, err)
	}
}

// Required records a blank mandatory column
func (c *Errors) Required(line int, column string) {
	c.Add(RowError{Line: line, Column: column, Code: CodeRequired, Message: "value is required"})
}

// Invalid records a value that failed parsing or a domain rule
func (c *Errors) Invalid(line int, column, value, message string) {
	c.Add(RowError{Line: line, Column: column, Code: CodeInvalidValue, Message: message, Value: value})
}

// Duplicate records a repeated key, either within the file or against stored data
func (c *Errors) Duplicate(line int, column, value string, inDB bool) {
	if inDB {
		c.Add(RowError{Line: line, Column: column, Code: CodeDuplicateInDB, Message: "value already exists", Value: value})
		return
	}
	c.Add(RowError{Line: line, Column: column, Code: CodeDuplicateInFile, Message: "value repeated in file", Value: value})
}

// Items returns the kept errors
func (c *Errors) Items() []RowError {
	return c.items
}

// Total counts every error added, including those past the limit
func (c *Errors) Total() int {
	return c.total
}

// HasErrors reports whether anything was recorded
func (c *Errors) HasErrors() bool {
	return c.total > 0
}

// Truncated reports whether errors were dropped
func (c *Errors) Truncated() bool {
	return c.total > len(c.items)
}

func (c *Errors) String() string {
	if c.total == 0 {
		return "no errors"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d error(s):", c.total)
	for _, e := range c.items {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	if c.Truncated() {
		fmt.Fprintf(&b, "\n  ... and %d more", c.total-len(c.items))
	}
	return b.String()
}
