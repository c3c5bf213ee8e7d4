package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PETS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- One row per user. The record column holds the same document the JSON
-- file store writes under "users".<id>, so stores can be swapped by
-- exporting and importing documents.
CREATE TABLE IF NOT EXISTS pets (
    user_id    TEXT PRIMARY KEY,
    record     JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS pets;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: RANK INDEX
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE INDEX IF NOT EXISTS idx_pets_experience
    ON pets (((record->>'experience')::INTEGER) DESC);
`

const migration002Down = `
DROP INDEX IF EXISTS idx_pets_experience;
`
