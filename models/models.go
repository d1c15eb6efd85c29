package models

import (
	"strings"
	"time"
)

// SeverityClass is one of the three bug-priority tiers used for grouping.
type SeverityClass int

const (
	ClassUnknown SeverityClass = iota
	Class1
	Class2
	Class3
)

// SeverityClasses lists the classes in rendering order.
var SeverityClasses = []SeverityClass{Class1, Class2, Class3}

func (c SeverityClass) String() string {
	switch c {
	case Class1:
		return "Class 1"
	case Class2:
		return "Class 2"
	case Class3:
		return "Class 3"
	}
	return "Unknown"
}

// Glyph is the marker embedded in an issue summary for this class.
func (c SeverityClass) Glyph() string {
	switch c {
	case Class1:
		return "🔴"
	case Class2:
		return "🟧"
	case Class3:
		return "🟡"
	}
	return ""
}

// ClassFromGlyph finds the first class marker present in text, checked in class order.
// Severity carried as a glyph inside free text is fragile; ClassFromPriority is the
// fallback when no marker was embedded.
func ClassFromGlyph(text string) SeverityClass {
	for _, c := range SeverityClasses {
		if strings.Contains(text, c.Glyph()) {
			return c
		}
	}
	return ClassUnknown
}

// ClassFromPriority maps a tracker priority name such as "Class 2 - Major" to its class.
func ClassFromPriority(priority string) SeverityClass {
	for _, c := range SeverityClasses {
		if strings.Contains(priority, c.String()) {
			return c
		}
	}
	return ClassUnknown
}

// Issue is a tracker issue as returned by a query, before summarization.
type Issue struct {
	Key         string
	Summary     string
	Description string
	RootCause   string
	Resolution  string
	Priority    string
	Customer    string
	Components  []string
	URL         string
}

// IssueRecord is an issue enriched with its LLM summary. Immutable once built.
type IssueRecord struct {
	Key         string
	Summary     string
	Components  []string
	Customer    string
	Description string
	Priority    string
	LLMSummary  string
}

// Class derives the severity class, preferring the embedded glyph.
func (r IssueRecord) Class() SeverityClass {
	if c := ClassFromGlyph(r.LLMSummary); c != ClassUnknown {
		return c
	}
	return ClassFromPriority(r.Priority)
}

// AnalysisResult maps customer -> severity class -> summaries in query order.
// Customers keeps first-appearance order so rendering is deterministic.
type AnalysisResult struct {
	Customers []string
	Buckets   map[string]map[SeverityClass][]string
}

func NewAnalysisResult() AnalysisResult {
	return AnalysisResult{Buckets: make(map[string]map[SeverityClass][]string)}
}

func (r *AnalysisResult) Add(customer string, class SeverityClass, summary string) {
	if r.Buckets == nil {
		r.Buckets = make(map[string]map[SeverityClass][]string)
	}
	byClass, ok := r.Buckets[customer]
	if !ok {
		byClass = make(map[SeverityClass][]string)
		r.Buckets[customer] = byClass
		r.Customers = append(r.Customers, customer)
	}
	byClass[class] = append(byClass[class], summary)
}

func (r AnalysisResult) Entries(customer string, class SeverityClass) []string {
	return r.Buckets[customer][class]
}

// Len is the number of summaries across all buckets.
func (r AnalysisResult) Len() int {
	n := 0
	for _, byClass := range r.Buckets {
		for _, entries := range byClass {
			n += len(entries)
		}
	}
	return n
}

func (r AnalysisResult) IsEmpty() bool {
	return r.Len() == 0
}

// Platform narrows a maps-style analysis.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformMobile Platform = "mobile"
	PlatformBoth   Platform = "both"
)

func ParsePlatform(s string) (Platform, bool) {
	switch p := Platform(strings.ToLower(s)); p {
	case PlatformWeb, PlatformMobile, PlatformBoth:
		return p, true
	}
	return "", false
}

// Installation is a Slack user who installed the app through OAuth.
type Installation struct {
	UserID      string
	TeamID      string
	InstalledAt time.Time
}
