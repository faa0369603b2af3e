// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"

	// 测验相关错误
	ErrorQuizLoadFailed    = "QUIZ_LOAD_FAILED"
	ErrorAnswersIncomplete = "ANSWERS_INCOMPLETE"

	// 预测相关错误
	ErrorUnknownCategory = "UNKNOWN_CATEGORY"
	ErrorModelNotReady   = "MODEL_NOT_READY"
	ErrorPredictFailed   = "PREDICT_FAILED"

	// 训练相关错误
	ErrorTrainingFailed     = "TRAINING_FAILED"
	ErrorTrainingInProgress = "TRAINING_IN_PROGRESS"
	ErrorTaskNotFound       = "TASK_NOT_FOUND"
)
