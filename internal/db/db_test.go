// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raphaelgruber/detective-go/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// testEmbedDim keeps test vectors small enough to build by hand.
const testEmbedDim = 8

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	// Start SurrealDB container
	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	// Get container host and port
	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	// Connect to test database
	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx, testEmbedDim); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// testEmbedding builds a vector from the given leading values, zero-padded
// to the test dimension.
func testEmbedding(vals ...float32) []float32 {
	embedding := make([]float32, testEmbedDim)
	copy(embedding, vals)
	return embedding
}

func mustCreateCase(t *testing.T, title string) *models.Case {
	t.Helper()
	c, err := testDB.QueryCreateCase(context.Background(), models.CaseInput{
		Title:      title,
		Scenario:   models.ScenarioVendorFraud,
		Difficulty: 2,
		Briefing:   "Irregular invoices were flagged by the finance team.",
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Failed to create test case: %v", err)
	}
	t.Cleanup(func() {
		_ = testDB.QueryDeleteCase(context.Background(), models.MustRecordIDString(c.ID))
	})
	return c
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestClientRawQuery(t *testing.T) {
	ctx := context.Background()

	result, err := testDB.Query(ctx, "RETURN 1", nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result == nil {
		t.Fatal("Query returned nil result")
	}
}

func TestClientSchemaIdempotent(t *testing.T) {
	ctx := context.Background()

	// Schema uses IF NOT EXISTS throughout, so re-running is safe
	if err := testDB.InitSchema(ctx, testEmbedDim); err != nil {
		t.Fatalf("Repeated InitSchema failed: %v", err)
	}
}

// =============================================================================
// CASE TESTS
// =============================================================================

func TestCreateAndGetCase(t *testing.T) {
	ctx := context.Background()

	created := mustCreateCase(t, "Vendor Fraud at Meridian")
	caseID := models.MustRecordIDString(created.ID)

	fetched, err := testDB.QueryGetCase(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryGetCase failed: %v", err)
	}
	if fetched.Title != "Vendor Fraud at Meridian" {
		t.Errorf("Expected title 'Vendor Fraud at Meridian', got %q", fetched.Title)
	}
	if fetched.Scenario != models.ScenarioVendorFraud {
		t.Errorf("Expected scenario %q, got %q", models.ScenarioVendorFraud, fetched.Scenario)
	}
	if fetched.Created.IsZero() {
		t.Error("Expected created timestamp to be set")
	}
}

func TestGetCaseNotFound(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.QueryGetCase(ctx, "no-such-case")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListCases(t *testing.T) {
	ctx := context.Background()

	created := mustCreateCase(t, "List Test Case")

	cases, err := testDB.QueryListCases(ctx)
	if err != nil {
		t.Fatalf("QueryListCases failed: %v", err)
	}

	found := false
	for _, c := range cases {
		if c.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Error("QueryListCases should include created case")
	}
}

func TestDeleteCaseCascades(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Cascade Test Case")
	caseID := models.MustRecordIDString(c.ID)

	entity, err := testDB.QueryCreateEntity(ctx, models.EntityInput{
		CaseID: caseID,
		Type:   models.EntityPerson,
		Name:   "Dana Voss",
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	entityID := models.MustRecordIDString(entity.ID)

	doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseID,
		Type:     models.DocEmail,
		TS:       time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		AuthorID: &entityID,
		Body:     "Please expedite the payment.",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docID := models.MustRecordIDString(doc.ID)

	err = testDB.QueryInsertChunks(ctx, []models.ChunkInput{
		{DocumentID: docID, CaseID: caseID, Index: 0, Text: "Please expedite the payment.",
			Embedding: testEmbedding(1), Language: "en", DocType: models.DocEmail, TS: doc.TS},
	})
	if err != nil {
		t.Fatalf("Failed to insert chunks: %v", err)
	}

	err = testDB.QueryUpsertNode(ctx, NodeInput{
		CaseID: caseID, RefTable: "entity", RefID: entityID,
		NodeType: "entity", SubType: string(models.EntityPerson), Label: "Dana Voss",
	})
	if err != nil {
		t.Fatalf("Failed to upsert node: %v", err)
	}

	if err := testDB.QueryDeleteCase(ctx, caseID); err != nil {
		t.Fatalf("QueryDeleteCase failed: %v", err)
	}

	if _, err := testDB.QueryGetCase(ctx, caseID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected case gone, got %v", err)
	}
	if _, err := testDB.QueryGetEntity(ctx, caseID, entityID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected entity gone, got %v", err)
	}
	if _, err := testDB.QueryGetDocument(ctx, caseID, docID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected document gone, got %v", err)
	}
	nodes, err := testDB.QueryCaseNodes(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryCaseNodes failed: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("Expected 0 nodes after case delete, got %d", len(nodes))
	}

	// Deleting again reports not found
	if err := testDB.QueryDeleteCase(ctx, caseID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

// =============================================================================
// ENTITY TESTS
// =============================================================================

func TestEntityCaseScoping(t *testing.T) {
	ctx := context.Background()

	caseA := mustCreateCase(t, "Scoping Case A")
	caseB := mustCreateCase(t, "Scoping Case B")
	caseAID := models.MustRecordIDString(caseA.ID)
	caseBID := models.MustRecordIDString(caseB.ID)

	entity, err := testDB.QueryCreateEntity(ctx, models.EntityInput{
		CaseID: caseAID,
		Type:   models.EntityOrg,
		Name:   "Northgate Supplies",
		Attrs:  map[string]any{"vendor_code": "NG-114"},
	})
	if err != nil {
		t.Fatalf("QueryCreateEntity failed: %v", err)
	}
	entityID := models.MustRecordIDString(entity.ID)

	// Owning case sees it
	fetched, err := testDB.QueryGetEntity(ctx, caseAID, entityID)
	if err != nil {
		t.Fatalf("QueryGetEntity failed: %v", err)
	}
	if fetched.Name != "Northgate Supplies" {
		t.Errorf("Expected name 'Northgate Supplies', got %q", fetched.Name)
	}

	// Another case does not
	if _, err := testDB.QueryGetEntity(ctx, caseBID, entityID); !errors.Is(err, ErrWrongCase) {
		t.Errorf("Expected ErrWrongCase, got %v", err)
	}

	// Delete is scoped the same way
	if err := testDB.QueryDeleteEntity(ctx, caseBID, entityID); !errors.Is(err, ErrWrongCase) {
		t.Errorf("Expected ErrWrongCase on cross-case delete, got %v", err)
	}
}

func TestListEntitiesByType(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Entity List Case")
	caseID := models.MustRecordIDString(c.ID)

	inputs := []models.EntityInput{
		{CaseID: caseID, Type: models.EntityPerson, Name: "Ben Okafor"},
		{CaseID: caseID, Type: models.EntityPerson, Name: "Alice Tran"},
		{CaseID: caseID, Type: models.EntityOrg, Name: "Westfall Logistics"},
	}
	for _, in := range inputs {
		if _, err := testDB.QueryCreateEntity(ctx, in); err != nil {
			t.Fatalf("Failed to create entity %s: %v", in.Name, err)
		}
	}

	all, err := testDB.QueryListEntities(ctx, caseID, nil)
	if err != nil {
		t.Fatalf("QueryListEntities failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 entities, got %d", len(all))
	}
	if len(all) == 3 && all[0].Name != "Alice Tran" {
		t.Errorf("Expected name-ordered output, got %q first", all[0].Name)
	}

	personType := models.EntityPerson
	people, err := testDB.QueryListEntities(ctx, caseID, &personType)
	if err != nil {
		t.Fatalf("QueryListEntities with type failed: %v", err)
	}
	if len(people) != 2 {
		t.Errorf("Expected 2 people, got %d", len(people))
	}
}

func TestDeleteEntityClearsAuthorship(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Authorship Case")
	caseID := models.MustRecordIDString(c.ID)

	entity, err := testDB.QueryCreateEntity(ctx, models.EntityInput{
		CaseID: caseID,
		Type:   models.EntityPerson,
		Name:   "Priya Nair",
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	entityID := models.MustRecordIDString(entity.ID)

	doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseID,
		Type:     models.DocChat,
		TS:       time.Date(2025, 3, 2, 14, 30, 0, 0, time.UTC),
		AuthorID: &entityID,
		Body:     "Can you approve PO-7741 today?",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docID := models.MustRecordIDString(doc.ID)
	if doc.Author == nil {
		t.Fatal("Expected author to be set on created document")
	}

	if err := testDB.QueryDeleteEntity(ctx, caseID, entityID); err != nil {
		t.Fatalf("QueryDeleteEntity failed: %v", err)
	}

	// Document survives with authorship cleared
	after, err := testDB.QueryGetDocument(ctx, caseID, docID)
	if err != nil {
		t.Fatalf("QueryGetDocument after entity delete failed: %v", err)
	}
	if after.Author != nil {
		t.Errorf("Expected author cleared, got %v", after.Author)
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestDocumentAuthorMustBelongToCase(t *testing.T) {
	ctx := context.Background()

	caseA := mustCreateCase(t, "Author Case A")
	caseB := mustCreateCase(t, "Author Case B")
	caseAID := models.MustRecordIDString(caseA.ID)
	caseBID := models.MustRecordIDString(caseB.ID)

	entity, err := testDB.QueryCreateEntity(ctx, models.EntityInput{
		CaseID: caseAID,
		Type:   models.EntityPerson,
		Name:   "Marco Silva",
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	entityID := models.MustRecordIDString(entity.ID)

	_, err = testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseBID,
		Type:     models.DocEmail,
		TS:       time.Now().UTC(),
		AuthorID: &entityID,
		Body:     "Misfiled evidence.",
		Language: "en",
	})
	if !errors.Is(err, ErrWrongCase) {
		t.Errorf("Expected ErrWrongCase for cross-case author, got %v", err)
	}
}

func TestListDocumentsTimelineOrder(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Timeline Case")
	caseID := models.MustRecordIDString(c.ID)

	// Created out of order on purpose
	stamps := []time.Time{
		time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 18, 45, 0, 0, time.UTC),
	}
	for i, ts := range stamps {
		_, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
			CaseID:   caseID,
			Type:     models.DocNote,
			TS:       ts,
			Body:     fmt.Sprintf("Note %d", i),
			Language: "en",
		})
		if err != nil {
			t.Fatalf("Failed to create document %d: %v", i, err)
		}
	}

	docs, err := testDB.QueryListDocuments(ctx, caseID, nil)
	if err != nil {
		t.Fatalf("QueryListDocuments failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].TS.Before(docs[i-1].TS) {
			t.Errorf("Documents not in timeline order: %v before %v", docs[i].TS, docs[i-1].TS)
		}
	}
}

// =============================================================================
// CHUNK AND SEARCH TESTS
// =============================================================================

func TestChunkReplaceAndVectorSearch(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Search Case")
	caseID := models.MustRecordIDString(c.ID)

	doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseID,
		Type:     models.DocInvoice,
		TS:       time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
		Body:     "Invoice INV-2209 for consulting services.",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docID := models.MustRecordIDString(doc.ID)

	chunks := []models.ChunkInput{
		{DocumentID: docID, CaseID: caseID, Index: 0, Text: "Invoice INV-2209",
			Embedding: testEmbedding(1, 0), Language: "en", DocType: models.DocInvoice, TS: doc.TS},
		{DocumentID: docID, CaseID: caseID, Index: 1, Text: "consulting services",
			Embedding: testEmbedding(0, 1), Language: "en", DocType: models.DocInvoice, TS: doc.TS},
		{DocumentID: docID, CaseID: caseID, Index: 2, Text: "payment terms net 30",
			Embedding: testEmbedding(1, 1), Language: "en", DocType: models.DocInvoice, TS: doc.TS},
	}
	if err := testDB.QueryInsertChunks(ctx, chunks); err != nil {
		t.Fatalf("QueryInsertChunks failed: %v", err)
	}

	// Query along the first axis: exact match first, diagonal second
	hits, err := testDB.QueryVectorSearch(ctx, caseID, testEmbedding(1, 0), 10, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("Expected 3 hits, got %d", len(hits))
	}
	if hits[0].Text != "Invoice INV-2209" {
		t.Errorf("Expected exact match first, got %q", hits[0].Text)
	}
	if hits[0].Score < hits[1].Score || hits[1].Score < hits[2].Score {
		t.Errorf("Expected descending scores, got %v %v %v", hits[0].Score, hits[1].Score, hits[2].Score)
	}
	if hits[0].Score < 0.999 {
		t.Errorf("Expected exact match score ~1.0, got %v", hits[0].Score)
	}

	// k limits the result set
	topOne, err := testDB.QueryVectorSearch(ctx, caseID, testEmbedding(1, 0), 1, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch with k=1 failed: %v", err)
	}
	if len(topOne) != 1 {
		t.Errorf("Expected 1 hit with k=1, got %d", len(topOne))
	}

	// Re-ingestion path: delete then insert
	deleted, err := testDB.QueryDeleteChunksByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("QueryDeleteChunksByDocument failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted chunks, got %d", deleted)
	}
	hits, err = testDB.QueryVectorSearch(ctx, caseID, testEmbedding(1, 0), 10, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch after delete failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Expected 0 hits after chunk delete, got %d", len(hits))
	}
}

func TestReplaceDocumentChunks(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Replace Case")
	caseID := models.MustRecordIDString(c.ID)

	doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseID,
		Type:     models.DocNote,
		TS:       time.Date(2025, 3, 6, 9, 0, 0, 0, time.UTC),
		Body:     "Ledger discrepancy noted by the auditor.",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docID := models.MustRecordIDString(doc.ID)

	mkChunk := func(idx int, text string) models.ChunkInput {
		return models.ChunkInput{
			DocumentID: docID, CaseID: caseID, Index: idx, Text: text,
			Embedding: testEmbedding(1, 0), Language: "en", DocType: models.DocNote, TS: doc.TS,
		}
	}

	deleted, err := testDB.QueryReplaceDocumentChunks(ctx, docID,
		[]models.ChunkInput{mkChunk(0, "ledger discrepancy"), mkChunk(1, "auditor note")})
	if err != nil {
		t.Fatalf("Initial replace failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected nothing deleted on first write, got %d", deleted)
	}

	deleted, err = testDB.QueryReplaceDocumentChunks(ctx, docID,
		[]models.ChunkInput{mkChunk(0, "revised note")})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted chunks, got %d", deleted)
	}

	hits, err := testDB.QueryVectorSearch(ctx, caseID, testEmbedding(1, 0), 10, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Expected only the new chunk, got %d hits", len(hits))
	}
	if hits[0].Text != "revised note" {
		t.Errorf("Expected the replacement chunk, got %q", hits[0].Text)
	}

	// Empty set clears the document
	deleted, err = testDB.QueryReplaceDocumentChunks(ctx, docID, nil)
	if err != nil {
		t.Fatalf("Clearing replace failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted chunk, got %d", deleted)
	}
}

func TestChunkEmbeddingDimensionEnforced(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Dimension Case")
	caseID := models.MustRecordIDString(c.ID)

	doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseID,
		Type:     models.DocNote,
		TS:       time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC),
		Body:     "Short memo.",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docID := models.MustRecordIDString(doc.ID)

	wrong := make([]float32, testEmbedDim+1)
	err = testDB.QueryInsertChunks(ctx, []models.ChunkInput{{
		DocumentID: docID, CaseID: caseID, Index: 0, Text: "Short memo.",
		Embedding: wrong, Language: "en", DocType: models.DocNote, TS: doc.TS,
	}})
	if err == nil {
		t.Fatal("Expected a wrong-dimension embedding to be rejected")
	}
}

func TestVectorSearchScopesAndFilters(t *testing.T) {
	ctx := context.Background()

	caseA := mustCreateCase(t, "Filter Case A")
	caseB := mustCreateCase(t, "Filter Case B")
	caseAID := models.MustRecordIDString(caseA.ID)
	caseBID := models.MustRecordIDString(caseB.ID)

	makeDoc := func(caseID string, docType models.DocType, body string) string {
		t.Helper()
		doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
			CaseID:   caseID,
			Type:     docType,
			TS:       time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
			Body:     body,
			Language: "en",
		})
		if err != nil {
			t.Fatalf("Failed to create document: %v", err)
		}
		return models.MustRecordIDString(doc.ID)
	}

	emailDoc := makeDoc(caseAID, models.DocEmail, "Wire transfer confirmation")
	noteDoc := makeDoc(caseAID, models.DocNote, "Handwritten observation")
	otherDoc := makeDoc(caseBID, models.DocEmail, "Unrelated case evidence")

	err := testDB.QueryInsertChunks(ctx, []models.ChunkInput{
		{DocumentID: emailDoc, CaseID: caseAID, Index: 0, Text: "Wire transfer confirmation",
			Embedding: testEmbedding(1), Language: "en", DocType: models.DocEmail, TS: time.Now().UTC()},
		{DocumentID: noteDoc, CaseID: caseAID, Index: 0, Text: "Handwritten observation",
			Embedding: testEmbedding(1), Language: "de", DocType: models.DocNote, TS: time.Now().UTC()},
		{DocumentID: otherDoc, CaseID: caseBID, Index: 0, Text: "Unrelated case evidence",
			Embedding: testEmbedding(1), Language: "en", DocType: models.DocEmail, TS: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("QueryInsertChunks failed: %v", err)
	}

	// Case scope: case B's chunk never leaks into case A results
	hits, err := testDB.QueryVectorSearch(ctx, caseAID, testEmbedding(1), 10, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("Expected 2 case-scoped hits, got %d", len(hits))
	}
	for _, h := range hits {
		if !ownedByCase(h.CaseID, caseAID) {
			t.Errorf("Hit from wrong case: %v", h.CaseID)
		}
	}

	// Doc type filter
	hits, err = testDB.QueryVectorSearch(ctx, caseAID, testEmbedding(1), 10, SearchFilter{
		DocTypes: []models.DocType{models.DocEmail},
	})
	if err != nil {
		t.Fatalf("QueryVectorSearch with doc types failed: %v", err)
	}
	if len(hits) != 1 || hits[0].DocType != models.DocEmail {
		t.Errorf("Expected 1 email hit, got %d", len(hits))
	}

	// Language filter
	hits, err = testDB.QueryVectorSearch(ctx, caseAID, testEmbedding(1), 10, SearchFilter{Language: "de"})
	if err != nil {
		t.Fatalf("QueryVectorSearch with language failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Language != "de" {
		t.Errorf("Expected 1 German hit, got %d", len(hits))
	}

	// Chunk exclusion (similar-chunks path)
	all, err := testDB.QueryVectorSearch(ctx, caseAID, testEmbedding(1), 10, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch failed: %v", err)
	}
	excludeRef := all[0].ID
	hits, err = testDB.QueryVectorSearch(ctx, caseAID, testEmbedding(1), 10, SearchFilter{
		ExcludeChunk: &excludeRef,
	})
	if err != nil {
		t.Fatalf("QueryVectorSearch with exclusion failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Expected 1 hit after exclusion, got %d", len(hits))
	}
	if hits[0].ID == excludeRef {
		t.Error("Excluded chunk came back in results")
	}

	// Restriction to a single document
	onlyDoc := surrealmodels.RecordID{Table: "document", ID: emailDoc}
	hits, err = testDB.QueryVectorSearch(ctx, caseAID, testEmbedding(1), 10, SearchFilter{
		OnlyDocument: &onlyDoc,
	})
	if err != nil {
		t.Fatalf("QueryVectorSearch with document restriction failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "Wire transfer confirmation" {
		t.Errorf("Expected only the email chunk, got %d hits", len(hits))
	}
}

func TestVectorSearchSkipsChunksWithoutEmbeddings(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "No Embedding Case")
	caseID := models.MustRecordIDString(c.ID)

	doc, err := testDB.QueryCreateDocument(ctx, models.DocumentInput{
		CaseID:   caseID,
		Type:     models.DocReport,
		TS:       time.Now().UTC(),
		Body:     "Quarterly audit report.",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docID := models.MustRecordIDString(doc.ID)

	err = testDB.QueryInsertChunks(ctx, []models.ChunkInput{
		{DocumentID: docID, CaseID: caseID, Index: 0, Text: "embedded chunk",
			Embedding: testEmbedding(1), Language: "en", DocType: models.DocReport, TS: doc.TS},
		{DocumentID: docID, CaseID: caseID, Index: 1, Text: "pending embedding",
			Language: "en", DocType: models.DocReport, TS: doc.TS},
	})
	if err != nil {
		t.Fatalf("QueryInsertChunks failed: %v", err)
	}

	hits, err := testDB.QueryVectorSearch(ctx, caseID, testEmbedding(1), 10, SearchFilter{})
	if err != nil {
		t.Fatalf("QueryVectorSearch failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Expected 1 hit, got %d", len(hits))
	}
	if hits[0].Text != "embedded chunk" {
		t.Errorf("Expected embedded chunk only, got %q", hits[0].Text)
	}
}

// =============================================================================
// GRAPH PROJECTION TESTS
// =============================================================================

func TestGraphProjection(t *testing.T) {
	ctx := context.Background()

	c := mustCreateCase(t, "Graph Case")
	caseID := models.MustRecordIDString(c.ID)

	nodes := []NodeInput{
		{CaseID: caseID, RefTable: "entity", RefID: "p1", NodeType: "entity", SubType: "person", Label: "Dana Voss"},
		{CaseID: caseID, RefTable: "entity", RefID: "o1", NodeType: "entity", SubType: "org", Label: "Northgate"},
		{CaseID: caseID, RefTable: "document", RefID: "d1", NodeType: "document", SubType: "email", Label: "Re: payment"},
	}
	for _, n := range nodes {
		if err := testDB.QueryUpsertNode(ctx, n); err != nil {
			t.Fatalf("QueryUpsertNode failed: %v", err)
		}
	}

	// Upserting the same node again must not duplicate it
	if err := testDB.QueryUpsertNode(ctx, nodes[0]); err != nil {
		t.Fatalf("Repeated QueryUpsertNode failed: %v", err)
	}

	gotNodes, err := testDB.QueryCaseNodes(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryCaseNodes failed: %v", err)
	}
	if len(gotNodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(gotNodes))
	}

	p1 := NodeRecordID(caseID, "p1")
	o1 := NodeRecordID(caseID, "o1")
	d1 := NodeRecordID(caseID, "d1")

	if err := testDB.QueryRelateNodes(ctx, caseID, p1, d1, "sent", nil); err != nil {
		t.Fatalf("QueryRelateNodes failed: %v", err)
	}
	if err := testDB.QueryRelateNodes(ctx, caseID, p1, o1, "mentions", nil); err != nil {
		t.Fatalf("QueryRelateNodes failed: %v", err)
	}

	// Duplicate edge hits the unique index
	if err := testDB.QueryRelateNodes(ctx, caseID, p1, d1, "sent", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate edge, got %v", err)
	}

	edges, err := testDB.QueryCaseEdges(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryCaseEdges failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(edges))
	}

	nodeCounts, err := testDB.QueryNodeTypeCounts(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryNodeTypeCounts failed: %v", err)
	}
	total := 0
	for _, nc := range nodeCounts {
		total += nc.Count
	}
	if total != 3 {
		t.Errorf("Expected node counts summing to 3, got %d", total)
	}

	relCounts, err := testDB.QueryRelTypeCounts(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryRelTypeCounts failed: %v", err)
	}
	if len(relCounts) != 2 {
		t.Errorf("Expected 2 relation types, got %d", len(relCounts))
	}

	// Wipe reports what it removed
	wipedNodes, wipedEdges, err := testDB.QueryWipeCaseGraph(ctx, caseID)
	if err != nil {
		t.Fatalf("QueryWipeCaseGraph failed: %v", err)
	}
	if wipedNodes != 3 || wipedEdges != 2 {
		t.Errorf("Expected wipe counts 3/2, got %d/%d", wipedNodes, wipedEdges)
	}
}
