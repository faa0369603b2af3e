// internal/models/character.go
package models

import "time"

// Character 表示测验可能命中的一个角色
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// PredictionResult 表示一次分类结果
type PredictionResult struct {
	Character     string             `json:"character"`               // 预测出的角色名
	Description   string             `json:"description,omitempty"`   // 角色描述
	ImageURL      string             `json:"image_url,omitempty"`     // 角色头像
	Confidence    float64            `json:"confidence"`              // 命中类别的概率
	Probabilities map[string]float64 `json:"probabilities,omitempty"` // 每个类别的概率
	ShareText     string             `json:"share_text,omitempty"`    // 可分享的文案
	ShareURL      string             `json:"share_url,omitempty"`     // URL编码后的分享链接
	Timestamp     time.Time          `json:"timestamp"`
}

// ModelStatus 表示模型工件的当前状态
type ModelStatus struct {
	Trained   bool      `json:"trained"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Classes   []string  `json:"classes,omitempty"`
	Trees     int       `json:"trees,omitempty"`
	Columns   []string  `json:"columns,omitempty"`
	Rows      int       `json:"rows,omitempty"`
}
