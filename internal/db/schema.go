package db

// SchemaSQL contains the database schema initialization SQL.
// The single %d placeholder is the embedding dimension enforced on
// chunk.embedding; it is filled in by InitSchema so the schema follows the
// configured embedding model.
const SchemaSQL = `
    -- ==========================================================================
    -- CASE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS case SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS title ON case TYPE string;
    DEFINE FIELD IF NOT EXISTS scenario ON case TYPE string;
    DEFINE FIELD IF NOT EXISTS difficulty ON case TYPE int;
    DEFINE FIELD IF NOT EXISTS briefing ON case TYPE string;
    DEFINE FIELD IF NOT EXISTS language ON case TYPE string DEFAULT "en";
    DEFINE FIELD IF NOT EXISTS created ON case TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- ENTITY TABLE (people, orgs, accounts, SKUs, ...)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS case_id ON entity TYPE record<case>;
    DEFINE FIELD IF NOT EXISTS entity_type ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS attrs ON entity TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created ON entity TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS entity_case ON entity FIELDS case_id;
    DEFINE INDEX IF NOT EXISTS entity_case_type ON entity FIELDS case_id, entity_type;

    -- ==========================================================================
    -- DOCUMENT TABLE (case evidence)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS case_id ON document TYPE record<case>;
    DEFINE FIELD IF NOT EXISTS doc_type ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS ts ON document TYPE datetime;
    DEFINE FIELD IF NOT EXISTS author ON document TYPE option<record<entity>>;
    DEFINE FIELD IF NOT EXISTS subject ON document TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS body ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS language ON document TYPE string DEFAULT "en";
    DEFINE FIELD IF NOT EXISTS meta ON document TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created ON document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS document_case ON document FIELDS case_id;
    DEFINE INDEX IF NOT EXISTS document_case_ts ON document FIELDS case_id, ts;

    -- ==========================================================================
    -- CHUNK TABLE (unit of semantic search)
    -- ==========================================================================
    -- Search metadata (doc_type, subject, ts, language) is denormalized onto
    -- the chunk so scoped vector queries need no join.
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS document ON chunk TYPE record<document>;
    DEFINE FIELD IF NOT EXISTS case_id ON chunk TYPE record<case>;
    DEFINE FIELD IF NOT EXISTS idx ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS text ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE option<array<float>> ASSERT $value = NONE OR array::len($value) = %d;
    DEFINE FIELD IF NOT EXISTS language ON chunk TYPE string DEFAULT "en";
    DEFINE FIELD IF NOT EXISTS doc_type ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS subject ON chunk TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS ts ON chunk TYPE datetime;
    DEFINE FIELD IF NOT EXISTS meta ON chunk TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_case ON chunk FIELDS case_id;
    DEFINE INDEX IF NOT EXISTS chunk_document ON chunk FIELDS document;

    -- ==========================================================================
    -- NODE TABLE (graph projection, rebuilt by sync)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS node SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS case_id ON node TYPE record<case>;
    DEFINE FIELD IF NOT EXISTS ref ON node TYPE record;
    DEFINE FIELD IF NOT EXISTS node_type ON node TYPE string;
    DEFINE FIELD IF NOT EXISTS sub_type ON node TYPE string;
    DEFINE FIELD IF NOT EXISTS label ON node TYPE string;
    DEFINE FIELD IF NOT EXISTS ts ON node TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created ON node TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS node_case ON node FIELDS case_id;
    DEFINE INDEX IF NOT EXISTS node_ref ON node FIELDS ref UNIQUE;

    -- ==========================================================================
    -- CONNECTS RELATION (graph edges)
    -- ==========================================================================
    -- Single relation table with rel_type field instead of dynamic table names
    DEFINE TABLE IF NOT EXISTS connects TYPE RELATION IN node OUT node SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS rel_type ON connects TYPE string;
    DEFINE FIELD IF NOT EXISTS case_id ON connects TYPE record<case>;
    DEFINE FIELD IF NOT EXISTS ts ON connects TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created ON connects TYPE datetime DEFAULT time::now();
    -- Unique constraint: [in, out, rel_type] prevents duplicate edges
    DEFINE FIELD IF NOT EXISTS unique_key ON connects VALUE <string>string::concat(<string>in, "|", <string>out, "|", rel_type);
    DEFINE INDEX IF NOT EXISTS unique_edge ON connects FIELDS unique_key UNIQUE;
    DEFINE INDEX IF NOT EXISTS connects_case ON connects FIELDS case_id;
`
