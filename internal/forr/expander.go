package forr

import "fmt"

// DefaultMaxProductSize 笛卡尔积规模上限，超出直接拒绝，避免一次性分配过多内存
const DefaultMaxProductSize = 100000

// Expand 计算全部参数候选值的笛卡尔积。
// 最左侧参数变化最慢，相同输入总是得到相同顺序；参数列表为空时返回空结果。
func Expand(params []ForrInputParameter) ([]ParameterGroup, error) {
	return ExpandWithLimit(params, DefaultMaxProductSize)
}

// ExpandWithLimit 同 Expand，limit <= 0 表示不限制
func ExpandWithLimit(params []ForrInputParameter, limit int) ([]ParameterGroup, error) {
	if len(params) == 0 {
		return []ParameterGroup{}, nil
	}

	seen := make(map[string]struct{}, len(params))
	axes := make([][]string, len(params))
	size := 1
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidTaskParameters, p.Name)
		}
		seen[p.Name] = struct{}{}

		axes[i] = p.Candidates()
		size *= len(axes[i])
		if limit > 0 && size > limit {
			return nil, fmt.Errorf("%w: cartesian product exceeds %d groups", ErrInvalidTaskParameters, limit)
		}
	}

	groups := make([]ParameterGroup, 0, size)
	cursor := make([]int, len(axes))
	for {
		group := make(ParameterGroup, len(params))
		for i, p := range params {
			group[p.Name] = axes[i][cursor[i]]
		}
		groups = append(groups, group)

		// 末位进位
		pos := len(cursor) - 1
		for pos >= 0 {
			cursor[pos]++
			if cursor[pos] < len(axes[pos]) {
				break
			}
			cursor[pos] = 0
			pos--
		}
		if pos < 0 {
			return groups, nil
		}
	}
}
