package forkydb

// schemaStatements creates the three tables of spec §6.3. Each is
// idempotent (IF NOT EXISTS) so runMigrations can be called on every
// startup, the same posture as the teacher's per-migration idempotence
// contract (internal/storage/dolt/migrations.go).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		name VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		current_node_id VARCHAR(64) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		id VARCHAR(64) PRIMARY KEY,
		conversation_id VARCHAR(64) NOT NULL,
		role VARCHAR(16) NOT NULL,
		content LONGTEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		branch_name VARCHAR(255) NOT NULL DEFAULT '',
		merge_metadata_json LONGTEXT,
		attachments_json LONGTEXT,
		INDEX idx_nodes_conversation (conversation_id)
	)`,
	`CREATE TABLE IF NOT EXISTS node_parents (
		node_id VARCHAR(64) NOT NULL,
		parent_id VARCHAR(64) NOT NULL,
		ordinal INT NOT NULL,
		PRIMARY KEY (node_id, ordinal),
		INDEX idx_node_parents_node (node_id)
	)`,
}
