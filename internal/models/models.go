// Package models defines the domain types for skald.
package models

import "time"

// FileInfo is what the storage layer reports for each document on disk.
type FileInfo struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// SessionRecord is the indexed projection of a session document.
type SessionRecord struct {
	Path     string   `json:"path"`
	Date     string   `json:"date"`
	Status   string   `json:"status"`
	Topics   []string `json:"topics"`
	Plan     string   `json:"plan,omitempty"`
	Files    []string `json:"files"`
	Checksum string   `json:"checksum"`
}

// PlanRecord is the indexed projection of a plan document.
type PlanRecord struct {
	Path     string   `json:"path"`
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Author   string   `json:"author"`
	Updated  string   `json:"updated"`
	Topics   []string `json:"topics"`
	Checksum string   `json:"checksum"`
}

// PatternRecord is the indexed projection of a pattern document.
type PatternRecord struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Checksum string   `json:"checksum"`
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Label   string `json:"label"`
	Snippet string `json:"snippet"`
}

// IndexError records one document that could not be indexed during a rebuild.
type IndexError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// RebuildStats summarizes one full index rebuild.
type RebuildStats struct {
	Scanned  int           `json:"scanned"`
	Sessions int           `json:"sessions"`
	Plans    int           `json:"plans"`
	Patterns int           `json:"patterns"`
	Errors   []IndexError  `json:"errors,omitempty"`
	BuiltAt  time.Time     `json:"built_at"`
	Duration time.Duration `json:"duration"`
}
