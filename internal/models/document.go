package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// DocType is the closed set of document kinds.
type DocType string

const (
	DocEmail   DocType = "email"
	DocChat    DocType = "chat"
	DocTicket  DocType = "ticket"
	DocInvoice DocType = "invoice"
	DocCSV     DocType = "csv"
	DocNote    DocType = "note"
	DocReport  DocType = "report"
)

// Document is a piece of case evidence (email, chat log, invoice, ...).
// Owned by its case; the author reference is optional.
type Document struct {
	ID       surrealmodels.RecordID  `json:"id"`
	CaseID   surrealmodels.RecordID  `json:"case_id"`
	Type     DocType                 `json:"doc_type"`
	TS       time.Time               `json:"ts"`
	Author   *surrealmodels.RecordID `json:"author,omitempty"`
	Subject  *string                 `json:"subject,omitempty"`
	Body     string                  `json:"body"`
	Language string                  `json:"language"`
	Meta     map[string]any          `json:"meta,omitempty"`
	Created  time.Time               `json:"created,omitempty"`
}

// DocumentInput is the input structure for creating a document.
type DocumentInput struct {
	CaseID   string         `json:"case_id"`
	Type     DocType        `json:"doc_type"`
	TS       time.Time      `json:"ts"`
	AuthorID *string        `json:"author_id,omitempty"`
	Subject  *string        `json:"subject,omitempty"`
	Body     string         `json:"body"`
	Language string         `json:"language"`
	Meta     map[string]any `json:"meta,omitempty"`
}
