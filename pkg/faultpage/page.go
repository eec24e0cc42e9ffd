package faultpage

import (
	"fmt"
	"strconv"
)

// Page is the data of the production fault page.
type Page struct {
	Title     string
	Message   string
	RequestID string
	Status    int
}

// Cause is one link of an error chain.
type Cause struct {
	Type    string
	Message string
}

// KV is an ordered key/value pair for header and parameter tables.
type KV struct {
	Key   string
	Value string
}

// Server describes the process that produced the fault.
type Server struct {
	GoVersion string
	Platform  string
	Hostname  string
	Time      string
	PID       int
}

// Debug is the data of the debug fault page.
type Debug struct {
	Snippet   *Snippet
	Server    Server
	Method    string
	URL       string
	Route     string
	Action    string
	Message   string
	ErrorType string
	RequestID string
	Causes    []Cause
	Frames    []Frame
	Headers   []KV
	Params    []KV
	Status    int
}

// pageTitle is the status title unless the page overrides it.
func pageTitle(p Page) string {
	if p.Title != "" {
		return p.Title
	}
	return Title(p.Status)
}

// pageMessage is the sanitized page message, or the public message for the
// status.
func pageMessage(p Page) string {
	if p.Message != "" {
		return Clean(p.Message)
	}
	return PublicMessage(p.Status)
}

func statusTitle(status int, title string) string {
	return strconv.Itoa(status) + " " + title
}

func (l SourceLine) String() string {
	return fmt.Sprintf("%4d  %s", l.Number, l.Text)
}

func (f Frame) String() string {
	return fmt.Sprintf("%s\n    %s:%d\n", f.Function, f.File, f.Line)
}
