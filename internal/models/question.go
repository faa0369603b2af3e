// internal/models/question.go
package models

// Question 表示测验中的一个多选题
type Question struct {
	ID      string   `json:"id"`      // 对应训练列，如 A1
	Prompt  string   `json:"prompt"`  // 题干
	Options []string `json:"options"` // 允许的答案集合，顺序可被打乱展示
}

// AnswerSet 表示一次答题：问题ID -> 选中的答案文本
type AnswerSet map[string]string

// QuizPayload 是返回给前端的完整测验内容
type QuizPayload struct {
	Questions []Question `json:"questions"`
	Shuffled  bool       `json:"shuffled"`
}
