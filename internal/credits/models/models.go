package models

import (
	"time"

	dErrors "creditgate/pkg/domain-errors"
)

// Category groups generation action types for credit accounting.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryVoice    Category = "voice"
	CategoryOther    Category = "other"
)

// Categories lists every credit category.
var Categories = []Category{CategoryDocument, CategoryVoice, CategoryOther}

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryDocument, CategoryVoice, CategoryOther:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory constructs a Category from external input, validating it.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "category cannot be empty")
	}
	c := Category(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown category: "+s)
	}
	return c, nil
}

// UsageKind is one tracked generation type as recorded in daily usage rows.
type UsageKind string

const (
	KindDocument     UsageKind = "document"
	KindPresentation UsageKind = "presentation"
	KindSpreadsheet  UsageKind = "spreadsheet"
	KindVoiceover    UsageKind = "voiceover"
	KindChatMessage  UsageKind = "chat_message"
	KindImage        UsageKind = "image"
)

// IsValid checks if the usage kind is one of the supported enum values.
func (k UsageKind) IsValid() bool {
	switch k {
	case KindDocument, KindPresentation, KindSpreadsheet, KindVoiceover, KindChatMessage, KindImage:
		return true
	}
	return false
}

// Category maps a usage kind to its credit category:
// documents, presentations, and spreadsheets consume document credits,
// voiceovers consume voice credits, chat and images consume other credits.
func (k UsageKind) Category() Category {
	switch k {
	case KindDocument, KindPresentation, KindSpreadsheet:
		return CategoryDocument
	case KindVoiceover:
		return CategoryVoice
	default:
		return CategoryOther
	}
}

// ParseUsageKind constructs a UsageKind from external input, validating it.
func ParseUsageKind(s string) (UsageKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kind cannot be empty")
	}
	k := UsageKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown usage kind: "+s)
	}
	return k, nil
}

// DailyUsage is one authoritative usage row: per-kind generation counts for
// one user on one calendar day.
type DailyUsage struct {
	Day           time.Time `json:"day"`
	Documents     int       `json:"documents"`
	Presentations int       `json:"presentations"`
	Spreadsheets  int       `json:"spreadsheets"`
	Voiceovers    int       `json:"voiceovers"`
	ChatMessages  int       `json:"chat_messages"`
	Images        int       `json:"images"`
}

// MonthlyUsage aggregates daily rows into credit categories.
// Derived, never stored: recomputed from raw rows on each fetch.
type MonthlyUsage struct {
	Document int `json:"document"`
	Voice    int `json:"voice"`
	Other    int `json:"other"`
}

// Used returns the aggregate for one category.
func (u MonthlyUsage) Used(c Category) int {
	switch c {
	case CategoryDocument:
		return u.Document
	case CategoryVoice:
		return u.Voice
	default:
		return u.Other
	}
}

// AggregateUsage folds daily rows into monthly category totals, and captures
// today's per-kind counts for daily ceiling checks.
func AggregateUsage(rows []DailyUsage, today time.Time) (MonthlyUsage, DailyUsage) {
	var monthly MonthlyUsage
	var todayRow DailyUsage
	y, m, d := today.Date()
	for _, row := range rows {
		monthly.Document += row.Documents + row.Presentations + row.Spreadsheets
		monthly.Voice += row.Voiceovers
		monthly.Other += row.ChatMessages + row.Images
		ry, rm, rd := row.Day.Date()
		if ry == y && rm == m && rd == d {
			todayRow = row
		}
	}
	todayRow.Day = today
	return monthly, todayRow
}

// MonthStart returns the first instant of now's calendar month.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
