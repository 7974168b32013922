package api

import "fmt"

// EvidenceLevel grades the authority of a source, S highest.
type EvidenceLevel string

const (
	EvidenceLevelS EvidenceLevel = "S"
	EvidenceLevelA EvidenceLevel = "A"
	EvidenceLevelB EvidenceLevel = "B"
	EvidenceLevelC EvidenceLevel = "C"
)

// EvidenceLevels lists levels from strongest to weakest.
var EvidenceLevels = []EvidenceLevel{EvidenceLevelS, EvidenceLevelA, EvidenceLevelB, EvidenceLevelC}

// Rank orders levels; lower is stronger. Unknown levels rank last.
func (l EvidenceLevel) Rank() int {
	for i, known := range EvidenceLevels {
		if l == known {
			return i
		}
	}
	return len(EvidenceLevels)
}

// RelationType classifies an evidence chain.
type RelationType string

const (
	RelationCausal     RelationType = "causal"
	RelationSupport    RelationType = "support"
	RelationContradict RelationType = "contradict"
	RelationRelated    RelationType = "related"
)

// RelationTypes lists every relation type.
var RelationTypes = []RelationType{RelationCausal, RelationSupport, RelationContradict, RelationRelated}

// SourceProvenance traces an entity back to its document chunk.
type SourceProvenance struct {
	DocID       string `json:"doc_id"`
	FileName    string `json:"file_name"`
	FilePath    string `json:"file_path"`
	PageNum     int    `json:"page_num,omitempty"`
	ParagraphID string `json:"paragraph_id,omitempty"`
	ChunkID     string `json:"chunk_id"`
}

// EvidenceChain is a graded relation between two entities.
type EvidenceChain struct {
	ChainID       string        `json:"chain_id"`
	ChainType     RelationType  `json:"chain_type"`
	TargetEntity  string        `json:"target_entity"`
	TargetType    string        `json:"target_type,omitempty"`
	Description   string        `json:"description"`
	EvidenceLevel EvidenceLevel `json:"evidence_level"`
	Confidence    float64       `json:"confidence"`
	Keywords      []string      `json:"keywords"`
	ValidFrom     string        `json:"valid_from,omitempty"`
	ValidTo       *string       `json:"valid_to,omitempty"`
}

// EvidenceEntity is an entity together with its evidence chains.
type EvidenceEntity struct {
	EntityName       string           `json:"entity_name"`
	EntityType       string           `json:"entity_type"`
	Description      string           `json:"description"`
	EvidenceLevel    EvidenceLevel    `json:"evidence_level"`
	Confidence       float64          `json:"confidence"`
	SourceProvenance SourceProvenance `json:"source_provenance"`
	SceneTags        []string         `json:"scene_tags"`
	EvidenceChains   []EvidenceChain  `json:"evidence_chains"`
	UpdateTime       string           `json:"update_time,omitempty"`
}

// EvidenceQueryParams is the body of POST /evidence/query.
type EvidenceQueryParams struct {
	EvidenceLevels []EvidenceLevel `json:"evidence_levels,omitempty"`
	RelationTypes  []RelationType  `json:"relation_types,omitempty"`
	SceneTags      []string        `json:"scene_tags,omitempty"`
	Keyword        string          `json:"keyword,omitempty"`
	Page           int             `json:"page,omitempty"`
	PageSize       int             `json:"page_size,omitempty"`
	SortBy         string          `json:"sort_by,omitempty"`
	SortOrder      SortDirection   `json:"sort_order,omitempty"`
}

// Evidence query sort keys.
const (
	EvidenceSortRelevance = "relevance"
	EvidenceSortLevel     = "evidence_level"
	EvidenceSortConf      = "confidence"
	EvidenceSortUpdated   = "update_time"
)

// EvidenceQueryResponse is one page of evidence entities.
type EvidenceQueryResponse struct {
	Items      []EvidenceEntity `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// SupportContradictRatio summarises supporting against contradicting chains.
type SupportContradictRatio struct {
	Support    int    `json:"support"`
	Contradict int    `json:"contradict"`
	Ratio      string `json:"ratio"`
}

// EvidenceStats is the reply of GET /evidence/stats.
type EvidenceStats struct {
	Total                  int                    `json:"total"`
	ByLevel                map[EvidenceLevel]int  `json:"by_level"`
	ByRelationType         map[RelationType]int   `json:"by_relation_type"`
	ByScene                map[string]int         `json:"by_scene"`
	SupportContradictRatio SupportContradictRatio `json:"support_contradict_ratio"`
}

// EvidenceGraphNode is a node of the evidence visualisation.
type EvidenceGraphNode struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Level      EvidenceLevel `json:"level"`
	Confidence float64       `json:"confidence"`
}

// EvidenceGraphEdge is an edge of the evidence visualisation.
type EvidenceGraphEdge struct {
	Source      string        `json:"source"`
	Target      string        `json:"target"`
	Type        RelationType  `json:"type"`
	Level       EvidenceLevel `json:"level"`
	Confidence  float64       `json:"confidence"`
	Description string        `json:"description"`
}

// EvidenceGraphData is the reply of POST /evidence/visualize.
type EvidenceGraphData struct {
	Nodes []EvidenceGraphNode `json:"nodes"`
	Edges []EvidenceGraphEdge `json:"edges"`
}

// VisualizeRequest is the body of POST /evidence/visualize.
type VisualizeRequest struct {
	EntityName     string          `json:"entity_name,omitempty"`
	Depth          int             `json:"depth,omitempty"`
	EvidenceLevels []EvidenceLevel `json:"evidence_levels,omitempty"`
	RelationTypes  []RelationType  `json:"relation_types,omitempty"`
}

// SupportContradict is the reply of GET /kg/evidence/support-contradict/{name}.
type SupportContradict struct {
	SupportEvidence    []map[string]any `json:"support_evidence"`
	ContradictEvidence []map[string]any `json:"contradict_evidence"`
	SupportCount       int              `json:"support_count"`
	ContradictCount    int              `json:"contradict_count"`
}

// AggregateRequest is the body of POST /kg/evidence/aggregate.
type AggregateRequest struct {
	EntityName    string        `json:"entity_name,omitempty"`
	EvidenceLevel EvidenceLevel `json:"evidence_level,omitempty"`
	MinCount      int           `json:"min_count,omitempty"`
}

// Envelope wraps evidence API payloads.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Err returns a non-nil error when the envelope reports a failure code.
// Both 0 and 200 are treated as success.
func (e Envelope[T]) Err() error {
	if e.Code == 0 || e.Code == 200 {
		return nil
	}
	return fmt.Errorf("evidence api error %d: %s", e.Code, e.Message)
}

// LevelInfo is display metadata for an evidence level.
type LevelInfo struct {
	Label       string
	Color       string
	Description string
}

// LevelCatalog describes each evidence level.
var LevelCatalog = map[EvidenceLevel]LevelInfo{
	EvidenceLevelS: {Label: "S级", Color: "#EF4444", Description: "监管机构/权威发布"},
	EvidenceLevelA: {Label: "A级", Color: "#F97316", Description: "头部研报/顶刊论文"},
	EvidenceLevelB: {Label: "B级", Color: "#3B82F6", Description: "中型机构报告"},
	EvidenceLevelC: {Label: "C级", Color: "#6B7280", Description: "普通报告/书籍章节"},
}

// RelationInfo is display metadata for a relation type.
type RelationInfo struct {
	Label string
	Color string
	Icon  string
}

// RelationCatalog describes each relation type.
var RelationCatalog = map[RelationType]RelationInfo{
	RelationCausal:     {Label: "因果", Color: "#8B5CF6", Icon: "→"},
	RelationSupport:    {Label: "支持", Color: "#10B981", Icon: "✓"},
	RelationContradict: {Label: "反驳", Color: "#EF4444", Icon: "✗"},
	RelationRelated:    {Label: "相关", Color: "#6B7280", Icon: "↔"},
}

// SceneTags is the catalogue of industry scene tags the backend assigns.
var SceneTags = []string{
	// finance
	"投研分析", "风险控制", "合规审核", "产品设计", "市场研判", "政策法规", "金融", "投资",
	// healthcare
	"医疗健康", "医药", "医疗器械", "公共卫生",
	// urban governance
	"城市治理", "智慧城市", "公共服务", "应急管理",
	// education
	"教育", "职业教育", "教育科技",
	// manufacturing
	"工业制造", "供应链", "质量管理", "智能制造",
	// energy
	"能源", "电力", "新能源",
	// agriculture
	"农业", "食品安全", "乡村振兴",
	// legal
	"法律", "司法", "合规法律",
	// media
	"媒体", "公共关系",
	// environment
	"环境保护", "生态", "气候变化",
	// transportation
	"交通运输", "物流", "自动驾驶",
	// real estate
	"房地产", "建筑", "物业管理",
	// IT
	"信息技术", "网络安全", "数据隐私",
	// retail
	"商业零售", "电子商务", "消费者保护",
}
