// Package models defines data structures for the detective investigation engine.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ScenarioType identifies the fraud scenario a case is built around.
type ScenarioType string

const (
	ScenarioVendorFraud           ScenarioType = "vendor_fraud"
	ScenarioDataLeak              ScenarioType = "data_leak"
	ScenarioInventoryManipulation ScenarioType = "inventory_manipulation"
	ScenarioInternalSabotage      ScenarioType = "internal_sabotage"
	ScenarioExpenseFraud          ScenarioType = "expense_fraud"
)

// Case is the top-level investigation scope. Every entity, document, chunk
// and graph row is partitioned by case id.
type Case struct {
	ID         surrealmodels.RecordID `json:"id"`
	Title      string                 `json:"title"`
	Scenario   ScenarioType           `json:"scenario"`
	Difficulty int                    `json:"difficulty"`
	Briefing   string                 `json:"briefing"`
	Language   string                 `json:"language"`
	Created    time.Time              `json:"created,omitempty"`
}

// CaseInput is the input structure for creating a case.
type CaseInput struct {
	Title      string       `json:"title"`
	Scenario   ScenarioType `json:"scenario"`
	Difficulty int          `json:"difficulty"`
	Briefing   string       `json:"briefing"`
	Language   string       `json:"language"`
}
