// Package conv 读取 Node 配置（YAML/JSON 解码得到的 map[string]any）中的取值。
//
// key 不存在时返回默认值；key 存在但类型不符时返回错误，避免写错的配置被静默忽略。
package conv

import (
	"fmt"
	"math"
	"strconv"
)

// String 读取字符串配置项。
func String(m map[string]any, key, def string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", key, v)
	}
	return s, nil
}

// Int 读取整数配置项。YAML 解码得到 int，JSON 解码得到 float64，两者都接受；
// 带小数部分的数字返回错误。
func Int(m map[string]any, key string, def int) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s: want integer, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s: want integer, got %T", key, v)
	}
}

// Strings 读取字符串列表配置项，key 不存在时返回 nil。
// 数字元素格式化为整数文本，例如 item_ids: [1001, "a7"] 得到 ["1001", "a7"]。
func Strings(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: want list, got %T", key, v)
	}
	out := make([]string, 0, len(raw))
	for i, e := range raw {
		switch x := e.(type) {
		case string:
			out = append(out, x)
		case int:
			out = append(out, strconv.Itoa(x))
		case int64:
			out = append(out, strconv.FormatInt(x, 10))
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("%s[%d]: want id, got %v", key, i, x)
			}
			out = append(out, strconv.FormatInt(int64(x), 10))
		default:
			return nil, fmt.Errorf("%s[%d]: want id, got %T", key, i, e)
		}
	}
	return out, nil
}
