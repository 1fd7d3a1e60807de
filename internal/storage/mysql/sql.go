package mysql

// One row per document; body holds the whole JSON value.
const upsertDocumentSQL = `
INSERT INTO documents
  (id, body)
VALUES
  (?, ?)
ON DUPLICATE KEY UPDATE
  body       = VALUES(body),
  updated_at = CURRENT_TIMESTAMP
`

const getDocumentSQL = `
SELECT body
FROM documents
WHERE id = ?
`
