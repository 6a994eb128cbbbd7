package nodes

// Graph node names.
const (
	NodeSupervisor    = "supervisor"
	NodeTextToSQL     = "text_to_sql"
	NodeRAG           = "rag"
	NodeMisleading    = "misleading"
	NodeHistoryReport = "history_report"
)
