// internal/models/submission.go
package models

import "time"

// QuizSubmission 表示一次用户提交，会被追加回工作簿的 user_submissions 表
type QuizSubmission struct {
	Name               string    `json:"name"`
	Answers            AnswerSet `json:"answers"`
	PredictedCharacter string    `json:"predicted_character"`
	CreatedAt          time.Time `json:"created_at"`
}
