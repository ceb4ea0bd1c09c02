package forr

import "strings"

// ParseFilterCondition 将逗号分隔的过滤条件解析为集合
func ParseFilterCondition(condition string) map[string]struct{} {
	set := make(map[string]struct{})
	if strings.TrimSpace(condition) == "" {
		return set
	}
	for _, v := range strings.Split(condition, ",") {
		set[strings.TrimSpace(v)] = struct{}{}
	}
	return set
}

// Filter 剔除任一取值命中过滤条件的参数组，保留原有顺序
func Filter(groups []ParameterGroup, condition string) []ParameterGroup {
	excluded := ParseFilterCondition(condition)
	if len(excluded) == 0 {
		return groups
	}

	kept := make([]ParameterGroup, 0, len(groups))
	for _, g := range groups {
		if !containsAny(g, excluded) {
			kept = append(kept, g)
		}
	}
	return kept
}

func containsAny(g ParameterGroup, excluded map[string]struct{}) bool {
	for _, v := range g {
		if _, hit := excluded[v]; hit {
			return true
		}
	}
	return false
}
