package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				user_id VARCHAR(255) NOT NULL,
				webhook_id VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_workflows_webhook_id ON workflows(webhook_id) WHERE webhook_id IS NOT NULL;
			CREATE INDEX idx_workflows_user_id ON workflows(user_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE workflow_nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(64) NOT NULL,
				config JSONB NOT NULL DEFAULT '{}',
				position INT NOT NULL DEFAULT 0,
				seq INT NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_type ON workflow_nodes(node_type);

			CREATE TABLE workflow_edges (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(64),
				target_handle VARCHAR(64),
				seq INT NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);
		`,
		2: `
			CREATE TABLE workflow_runs (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				input JSONB,
				output JSONB,
				status VARCHAR(16) NOT NULL CHECK (status IN ('RUNNING', 'SUCCESS', 'FAILED')),
				error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_runs_workflow_id ON workflow_runs(workflow_id);

			CREATE TABLE node_runs (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				workflow_run_id VARCHAR(255) NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				input JSONB,
				output JSONB,
				status VARCHAR(16) NOT NULL CHECK (status IN ('RUNNING', 'SUCCESS', 'FAILED')),
				error TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_node_runs_workflow_run_id ON node_runs(workflow_run_id, seq);
		`,
		3: `
			CREATE TABLE credentials (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				provider VARCHAR(32) NOT NULL,
				workspace_id VARCHAR(255) NOT NULL DEFAULT '',
				access_token TEXT NOT NULL,
				refresh_token TEXT NOT NULL DEFAULT '',
				expires_at TIMESTAMP WITH TIME ZONE,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_credentials_lookup ON credentials(user_id, provider, workspace_id);

			CREATE EXTENSION IF NOT EXISTS vector;

			CREATE TABLE document_chunks (
				id VARCHAR(255) PRIMARY KEY,
				document_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				text TEXT NOT NULL,
				embedding vector NOT NULL
			);

			CREATE INDEX idx_document_chunks_user_id ON document_chunks(user_id);
		`,
	}
}
