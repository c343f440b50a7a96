package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- COMMENT TABLE (raw user comments, written by the ingestion pipeline)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS comment SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS dataset_id ON comment TYPE string;
    DEFINE FIELD IF NOT EXISTS raw_text ON comment TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON comment TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS comment_dataset ON comment FIELDS dataset_id;

    -- ==========================================================================
    -- DATASET TABLE (catalog metadata + linked resources)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS dataset SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS dataset_id ON dataset TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON dataset TYPE string;
    DEFINE FIELD IF NOT EXISTS theme ON dataset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS description ON dataset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS url ON dataset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS license ON dataset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS refresh_cadence ON dataset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS tags ON dataset TYPE option<array<string>>;
    -- resource objects come straight from the catalog, shape varies by portal
    DEFINE FIELD IF NOT EXISTS resources ON dataset FLEXIBLE TYPE option<array<object>>;
    DEFINE FIELD IF NOT EXISTS last_analysis ON dataset TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS dataset_dataset_id ON dataset FIELDS dataset_id UNIQUE;

    -- ==========================================================================
    -- RESPONSE TABLE (one analysis per comment)
    -- ==========================================================================
    -- score: NONE = unprocessed, -1 = unscorable sentinel, else 0..100
    DEFINE TABLE IF NOT EXISTS response SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS comment_id ON response TYPE record<comment>;
    DEFINE FIELD IF NOT EXISTS dataset_id ON response TYPE string;
    DEFINE FIELD IF NOT EXISTS score ON response TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS message ON response FLEXIBLE TYPE object;
    DEFINE FIELD IF NOT EXISTS created ON response TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON response TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS response_comment ON response FIELDS comment_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS response_dataset ON response FIELDS dataset_id;
`
