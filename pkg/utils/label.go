package utils

// 常用 Label key
const (
	LabelRecallSource = "recall_source" // 候选来源，例如 "similar"
	LabelFiltered     = "filtered"      // 被过滤时写入，Source 为过滤器名称
	LabelRank         = "rank"          // TopN 选出后的名次（从 1 开始）
)

// Label 是预测链路中的一等公民：可解释、可追踪、可透传。
// Value 与 Source 的语义由调用方自定义；这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank ...
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// FilteredBy 构造“被某过滤器剔除”的 Label。
func FilteredBy(filterName string) Label {
	return Label{Value: "true", Source: filterName}
}
