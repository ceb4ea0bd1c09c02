package forr

import "regexp"

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// resolvePlaceholders 用预处理参数替换 ${name}，未知变量保持原样
func resolvePlaceholders(text string, params map[string]string) string {
	if len(params) == 0 || text == "" {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := params[name]; ok {
			return v
		}
		return match
	})
}
