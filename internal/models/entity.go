package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// EntityType is the closed set of actor kinds a case may reference.
type EntityType string

const (
	EntityPerson   EntityType = "person"
	EntityOrg      EntityType = "org"
	EntityAccount  EntityType = "account"
	EntitySKU      EntityType = "sku"
	EntityIP       EntityType = "ip"
	EntityLocation EntityType = "location"
	EntityOrder    EntityType = "order"
	EntityTicket   EntityType = "ticket"
)

// Entity is a person, organization or similar actor within a case.
// Entities may author documents; deleting an entity nulls the author
// reference on its documents rather than deleting them.
type Entity struct {
	ID      surrealmodels.RecordID `json:"id"`
	CaseID  surrealmodels.RecordID `json:"case_id"`
	Type    EntityType             `json:"entity_type"`
	Name    string                 `json:"name"`
	Attrs   map[string]any         `json:"attrs,omitempty"`
	Created time.Time              `json:"created,omitempty"`
}

// EntityInput is the input structure for creating an entity.
type EntityInput struct {
	CaseID string         `json:"case_id"`
	Type   EntityType     `json:"entity_type"`
	Name   string         `json:"name"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}
