package scripttools

// DefaultKeywordLimit 聚合关键词的默认上限
const DefaultKeywordLimit = 10

// AggregateKeywords 从脚本的所有场景聚合搜索关键词
// 按场景顺序拼接后做保序去重（首次出现的位置生效，顺序影响下游搜索的相关性），
// 最后截断到 limit；空脚本返回空列表而不是错误
func AggregateKeywords(script *StructuredScript, limit int) []string {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}

	keywords := make([]string, 0, limit)
	if script == nil || len(script.Scenes) == 0 {
		return keywords
	}

	seen := make(map[string]struct{})
	for _, scene := range script.Scenes {
		for _, kw := range scene.Keywords {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
			if len(keywords) >= limit {
				return keywords
			}
		}
	}

	return keywords
}
