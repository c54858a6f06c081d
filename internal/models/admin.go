package models

// HealthResponse is the static liveness response.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// ClearResponse is returned by a successful clear-all.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusConfig summarizes the retrieval settings in effect.
type StatusConfig struct {
	VectorBackend  string `json:"vector_backend"`
	IndexName      string `json:"index_name,omitempty"`
	EmbeddingModel string `json:"embedding_model"`
	ChatModel      string `json:"chat_model"`
	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	TopK           int    `json:"top_k"`
	DatabasePath   string `json:"database_path,omitempty"`
	VectorPath     string `json:"vector_path,omitempty"`
}

// StatusResponse is the admin status report.
type StatusResponse struct {
	VectorStoreSize int           `json:"vector_store_size"`
	Batches         int64         `json:"batches"`
	Files           int64         `json:"files"`
	Chunks          int64         `json:"chunks"`
	DiskUsageBytes  *int64        `json:"disk_usage_bytes,omitempty"`
	Config          *StatusConfig `json:"config,omitempty"`
}
