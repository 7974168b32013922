// Package api holds the request and response shapes of the RAG backend's
// HTTP API.
package api

import "fmt"

// DocStatus is the processing state of an ingested document.
type DocStatus string

const (
	DocStatusPending      DocStatus = "pending"
	DocStatusProcessing   DocStatus = "processing"
	DocStatusPreprocessed DocStatus = "preprocessed"
	DocStatusProcessed    DocStatus = "processed"
	DocStatusFailed       DocStatus = "failed"
)

// DocStatuses lists every status in pipeline order.
var DocStatuses = []DocStatus{
	DocStatusPending,
	DocStatusProcessing,
	DocStatusPreprocessed,
	DocStatusProcessed,
	DocStatusFailed,
}

// Valid reports whether s is a known status.
func (s DocStatus) Valid() bool {
	for _, known := range DocStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Document is one ingested document as reported by the backend.
type Document struct {
	ID             string         `json:"id"`
	ContentSummary string         `json:"content_summary"`
	ContentLength  int            `json:"content_length"`
	Status         DocStatus      `json:"status"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
	TrackID        string         `json:"track_id,omitempty"`
	ChunksCount    int            `json:"chunks_count,omitempty"`
	ErrorMsg       string         `json:"error_msg,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	FilePath       string         `json:"file_path"`
}

// DocsStatusesResponse groups every document by status.
type DocsStatusesResponse struct {
	Statuses map[DocStatus][]Document `json:"statuses"`
}

// All flattens the groups in pipeline order, followed by any status the
// backend reported that this client does not know.
func (r DocsStatusesResponse) All() []Document {
	var docs []Document
	for _, status := range DocStatuses {
		docs = append(docs, r.Statuses[status]...)
	}
	for status, group := range r.Statuses {
		if !status.Valid() {
			docs = append(docs, group...)
		}
	}
	return docs
}

// Count returns the number of documents in the given statuses.
func (r DocsStatusesResponse) Count(statuses ...DocStatus) int {
	n := 0
	for _, s := range statuses {
		n += len(r.Statuses[s])
	}
	return n
}

// SortDirection orders paginated results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PaginatedDocsRequest is the body of POST /documents/paginated.
type PaginatedDocsRequest struct {
	Page          int           `json:"page"`
	PageSize      int           `json:"page_size"`
	StatusFilter  *DocStatus    `json:"status_filter"`
	SortField     string        `json:"sort_field,omitempty"`
	SortDirection SortDirection `json:"sort_direction,omitempty"`
}

// Pagination describes one page of a larger result.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPagination computes page bookkeeping for total items.
func NewPagination(page, pageSize, total int) Pagination {
	if pageSize <= 0 {
		pageSize = 1
	}
	pages := (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// PaginatedDocsResponse is one page of documents plus per-status counts.
type PaginatedDocsResponse struct {
	Documents    []Document     `json:"documents"`
	Pagination   Pagination     `json:"pagination"`
	StatusCounts map[string]int `json:"status_counts"`
}

// DeleteDocumentsRequest is the body of DELETE /documents/delete_document.
type DeleteDocumentsRequest struct {
	DocIDs         []string `json:"doc_ids"`
	DeleteFile     bool     `json:"delete_file"`
	DeleteLLMCache bool     `json:"delete_llm_cache"`
}

// StatusMessage is the generic {status, message} reply.
type StatusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ScanResponse is returned by POST /documents/scan.
type ScanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TrackID string `json:"track_id"`
}

// DocActionStatus is the outcome of an ingestion request.
type DocActionStatus string

const (
	DocActionSuccess        DocActionStatus = "success"
	DocActionPartialSuccess DocActionStatus = "partial_success"
	DocActionFailure        DocActionStatus = "failure"
	DocActionDuplicated     DocActionStatus = "duplicated"
)

// DocActionResponse is returned by upload, insert and clear.
type DocActionResponse struct {
	Status  DocActionStatus `json:"status"`
	Message string          `json:"message"`
	TrackID string          `json:"track_id,omitempty"`
}

// PipelineStatus reports the ingestion pipeline.
type PipelineStatus struct {
	Autoscanned           bool     `json:"autoscanned"`
	Busy                  bool     `json:"busy"`
	JobName               string   `json:"job_name"`
	JobStart              string   `json:"job_start,omitempty"`
	Docs                  int      `json:"docs"`
	Batchs                int      `json:"batchs"`
	CurBatch              int      `json:"cur_batch"`
	RequestPending        bool     `json:"request_pending"`
	CancellationRequested bool     `json:"cancellation_requested,omitempty"`
	LatestMessage         string   `json:"latest_message"`
	HistoryMessages       []string `json:"history_messages,omitempty"`
}

// GraphNode is a knowledge-graph entity.
type GraphNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is a knowledge-graph relation.
type GraphEdge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type,omitempty"`
	Properties map[string]any `json:"properties"`
}

// GraphData is a subgraph returned by GET /graphs.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EntityUpdateRequest is the body of POST /graph/entity/edit.
type EntityUpdateRequest struct {
	EntityName  string         `json:"entity_name"`
	UpdatedData map[string]any `json:"updated_data"`
	AllowRename bool           `json:"allow_rename"`
}

// EntityUpdateResponse is the reply to an entity edit.
type EntityUpdateResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// QueryMode selects the retrieval strategy.
type QueryMode string

const (
	QueryModeNaive  QueryMode = "naive"
	QueryModeLocal  QueryMode = "local"
	QueryModeGlobal QueryMode = "global"
	QueryModeHybrid QueryMode = "hybrid"
	QueryModeMix    QueryMode = "mix"
	QueryModeBypass QueryMode = "bypass"
)

// QueryModes lists the supported modes.
var QueryModes = []QueryMode{
	QueryModeNaive, QueryModeLocal, QueryModeGlobal, QueryModeHybrid, QueryModeMix, QueryModeBypass,
}

// Valid reports whether m is a supported mode.
func (m QueryMode) Valid() bool {
	for _, known := range QueryModes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseQueryMode validates a user-supplied mode name.
func ParseQueryMode(s string) (QueryMode, error) {
	m := QueryMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown query mode %q", s)
	}
	return m, nil
}

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of conversation_history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// QueryRequest is the body of POST /query and /query/stream.
type QueryRequest struct {
	Query               string    `json:"query"`
	Mode                QueryMode `json:"mode"`
	Stream              *bool     `json:"stream,omitempty"`
	TopK                int       `json:"top_k,omitempty"`
	ChunkTopK           int       `json:"chunk_top_k,omitempty"`
	MaxEntityTokens     int       `json:"max_entity_tokens,omitempty"`
	MaxRelationTokens   int       `json:"max_relation_tokens,omitempty"`
	MaxTotalTokens      int       `json:"max_total_tokens,omitempty"`
	ConversationHistory []Message `json:"conversation_history,omitempty"`
	HistoryTurns        int       `json:"history_turns,omitempty"`
	ResponseType        string    `json:"response_type,omitempty"`
	UserPrompt          string    `json:"user_prompt,omitempty"`
	EnableRerank        *bool     `json:"enable_rerank,omitempty"`
}

// QueryResponse is the reply of POST /query.
type QueryResponse struct {
	Response string `json:"response"`
}

// AuthMode tells whether the backend enforces login.
type AuthMode string

const (
	AuthModeEnabled  AuthMode = "enabled"
	AuthModeDisabled AuthMode = "disabled"
)

// HealthConfiguration is the backend's reported setup.
type HealthConfiguration struct {
	LLMBinding             string  `json:"llm_binding"`
	LLMBindingHost         string  `json:"llm_binding_host"`
	LLMModel               string  `json:"llm_model"`
	EmbeddingBinding       string  `json:"embedding_binding"`
	EmbeddingBindingHost   string  `json:"embedding_binding_host"`
	EmbeddingModel         string  `json:"embedding_model"`
	KVStorage              string  `json:"kv_storage"`
	DocStatusStorage       string  `json:"doc_status_storage"`
	GraphStorage           string  `json:"graph_storage"`
	VectorStorage          string  `json:"vector_storage"`
	Workspace              string  `json:"workspace,omitempty"`
	MaxGraphNodes          string  `json:"max_graph_nodes,omitempty"`
	EnableRerank           bool    `json:"enable_rerank,omitempty"`
	RerankBinding          *string `json:"rerank_binding,omitempty"`
	RerankModel            *string `json:"rerank_model,omitempty"`
	SummaryLanguage        string  `json:"summary_language"`
	ForceLLMSummaryOnMerge bool    `json:"force_llm_summary_on_merge"`
	MaxParallelInsert      int     `json:"max_parallel_insert"`
	MaxAsync               int     `json:"max_async"`
}

// HealthStatus is the reply of GET /health.
type HealthStatus struct {
	Status           string              `json:"status"`
	WorkingDirectory string              `json:"working_directory"`
	InputDirectory   string              `json:"input_directory"`
	Configuration    HealthConfiguration `json:"configuration"`
	PipelineBusy     bool                `json:"pipeline_busy"`
	CoreVersion      string              `json:"core_version,omitempty"`
	APIVersion       string              `json:"api_version,omitempty"`
	AuthMode         AuthMode            `json:"auth_mode,omitempty"`
}

// AuthStatus is the reply of GET /auth-status.
type AuthStatus struct {
	AuthConfigured   bool     `json:"auth_configured"`
	AccessToken      string   `json:"access_token,omitempty"`
	TokenType        string   `json:"token_type,omitempty"`
	AuthMode         AuthMode `json:"auth_mode,omitempty"`
	Message          string   `json:"message,omitempty"`
	CoreVersion      string   `json:"core_version,omitempty"`
	APIVersion       string   `json:"api_version,omitempty"`
	WebUITitle       string   `json:"webui_title,omitempty"`
	WebUIDescription string   `json:"webui_description,omitempty"`
}

// LoginResponse is the reply of POST /login.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	AuthMode    AuthMode `json:"auth_mode,omitempty"`
	Message     string   `json:"message,omitempty"`
	CoreVersion string   `json:"core_version,omitempty"`
	APIVersion  string   `json:"api_version,omitempty"`
}
