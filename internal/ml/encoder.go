// internal/ml/encoder.go
package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCategory 表示取值不在训练词表中
var ErrUnknownCategory = errors.New("unknown category")

// LabelEncoder 将类别文本映射为整数编码
// 词表在拟合时排序，保证相同数据总是产生相同编码
type LabelEncoder struct {
	Classes []string `json:"classes"` // 排序后的词表，下标即编码

	index map[string]int
}

// FitLabelEncoder 从一列取值拟合编码器
func FitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]bool, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)

	encoder := &LabelEncoder{Classes: classes}
	encoder.buildIndex()
	return encoder
}

// buildIndex 重建反查索引
func (e *LabelEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, class := range e.Classes {
		e.index[class] = i
	}
}

// Transform 将文本取值编码为整数
// 未知取值返回 ErrUnknownCategory，没有回退编码
func (e *LabelEncoder) Transform(value string) (int, error) {
	if e.index == nil {
		e.buildIndex()
	}

	code, ok := e.index[value]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
	return code, nil
}

// TransformAll 编码一组取值
func (e *LabelEncoder) TransformAll(values []string) ([]int, error) {
	codes := make([]int, len(values))
	for i, v := range values {
		code, err := e.Transform(v)
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

// Inverse 将整数编码还原为文本取值
func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("编码 %d 超出词表范围 [0, %d)", code, len(e.Classes))
	}
	return e.Classes[code], nil
}

// Len 返回词表大小
func (e *LabelEncoder) Len() int {
	return len(e.Classes)
}

// UnmarshalJSON 反序列化后重建索引
func (e *LabelEncoder) UnmarshalJSON(data []byte) error {
	var raw struct {
		Classes []string `json:"classes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Classes = raw.Classes
	e.buildIndex()
	return nil
}
