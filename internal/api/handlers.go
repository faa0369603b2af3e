// internal/api/handlers.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	apperrors "github.com/Corphon/SortingHatQuiz/internal/errors"
	"github.com/Corphon/SortingHatQuiz/internal/models"
	"github.com/Corphon/SortingHatQuiz/internal/services"
	"github.com/Corphon/SortingHatQuiz/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	QuizService       *services.QuizService       // 题库与角色资料
	PredictorService  *services.PredictorService  // 分类预测服务
	TrainerService    *services.TrainerService    // 模型训练服务
	SubmissionService *services.SubmissionService // 提交记录服务
	StatsService      *services.StatsService      // 统计服务
	ProgressService   *services.ProgressService   // 进度跟踪服务
	Response          *ResponseHelper             // 响应助手
}

// PredictRequest 预测请求结构
type PredictRequest struct {
	Name    string           `json:"name"`                       // 用户名，可选；提供时记录提交
	Answers models.AnswerSet `json:"answers" binding:"required"` // 问题ID -> 答案文本
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewHandler 创建API处理器
func NewHandler(
	quizService *services.QuizService,
	predictorService *services.PredictorService,
	trainerService *services.TrainerService,
	submissionService *services.SubmissionService,
	statsService *services.StatsService,
	progressService *services.ProgressService) *Handler {

	return &Handler{
		QuizService:       quizService,
		PredictorService:  predictorService,
		TrainerService:    trainerService,
		SubmissionService: submissionService,
		StatsService:      statsService,
		ProgressService:   progressService,
		Response:          NewResponseHelper(),
	}
}

// ========================================
// 页面处理器
// ========================================

// IndexPage 返回主页
func (h *Handler) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"model_ready": h.PredictorService.Ready(),
	})
}

// QuizPage 返回答题页面
func (h *Handler) QuizPage(c *gin.Context) {
	quiz, err := h.QuizService.GetQuiz(true)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "加载题库失败: " + err.Error(),
		})
		return
	}

	c.HTML(http.StatusOK, "quiz.html", gin.H{
		"questions": quiz.Questions,
	})
}

// ========================================
// 测验相关处理器
// ========================================

// GetQuestions 获取测验题目
func (h *Handler) GetQuestions(c *gin.Context) {
	shuffle := c.DefaultQuery("shuffle", "true") == "true"

	quiz, err := h.QuizService.GetQuiz(shuffle)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorQuizLoadFailed,
			"加载题库失败", err.Error())
		return
	}

	h.Response.Success(c, quiz, "题库获取成功")
}

// GetCharacters 获取全部角色资料
func (h *Handler) GetCharacters(c *gin.Context) {
	h.Response.Success(c, h.QuizService.GetCharacters(), "角色列表获取成功")
}

// Predict 对一组答案执行预测
func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	result, err := h.PredictorService.Predict(req.Answers)
	if err != nil {
		switch {
		case apperrors.IsModelNotReadyError(err):
			h.Response.ServiceUnavailable(c, ErrorModelNotReady,
				"模型尚未训练", "请先运行训练或调用 POST /api/train")
		case apperrors.IsUnknownCategoryError(err):
			h.Response.UnprocessableEntity(c, ErrorUnknownCategory,
				"答案不在训练词表中", err.Error())
		case apperrors.IsValidationError(err):
			h.Response.Error(c, http.StatusBadRequest, ErrorAnswersIncomplete,
				"答案不完整", err.Error())
		default:
			h.Response.Error(c, http.StatusInternalServerError, ErrorPredictFailed,
				"预测失败", err.Error())
		}
		return
	}

	// 补充角色资料与分享文案
	character := h.QuizService.Describe(result.Character)
	result.Description = character.Description
	result.ImageURL = character.ImageURL
	result.ShareText, result.ShareURL = h.QuizService.BuildShareText(result.Character)

	// 记录统计；失败只记日志，不影响预测结果
	if err := h.StatsService.RecordPrediction(result.Character); err != nil {
		utils.GetLogger().Warnf("记录预测统计失败: %v", err)
	}

	// 提供了用户名时记录提交
	if req.Name != "" {
		submission := &models.QuizSubmission{
			Name:               req.Name,
			Answers:            req.Answers,
			PredictedCharacter: result.Character,
			CreatedAt:          time.Now(),
		}
		if err := h.SubmissionService.Record(submission); err != nil {
			utils.GetLogger().Warnf("记录用户提交失败: %v", err)
		}
	}

	h.Response.Success(c, result, "预测成功")
}

// GetModelStatus 获取模型工件状态
func (h *Handler) GetModelStatus(c *gin.Context) {
	h.Response.Success(c, h.PredictorService.Status())
}

// ========================================
// 训练相关处理器
// ========================================

// TrainModel 启动一次后台训练，立即返回任务ID
// 同一时间只允许一个训练任务运行
func (h *Handler) TrainModel(c *gin.Context) {
	if runningID, running := h.ProgressService.ActiveTask(); running {
		h.Response.Error(c, http.StatusConflict, ErrorTrainingInProgress,
			"已有训练任务在运行", runningID)
		return
	}

	// 数据集不可用时直接失败，不创建任务
	if _, err := os.Stat(h.TrainerService.DatasetPath); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorTrainingFailed,
			"训练数据集不可用", err.Error())
		return
	}

	taskID := fmt.Sprintf("train_%d", time.Now().UnixNano())
	tracker := h.ProgressService.CreateTracker(taskID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := h.TrainerService.Train(ctx, tracker)
		if err != nil {
			utils.GetLogger().Errorf("训练任务 %s 失败: %v", taskID, err)
			tracker.Fail(err.Error())
			return
		}

		// 训练成功后让预测服务加载新工件
		if err := h.PredictorService.Reload(); err != nil {
			utils.GetLogger().Errorf("重新加载模型工件失败: %v", err)
			tracker.Fail(fmt.Sprintf("重新加载模型工件失败: %v", err))
			return
		}

		tracker.Complete(fmt.Sprintf("训练完成: %d 行样本, %d 棵树, 训练集准确率 %.2f%%",
			result.Rows, result.Trees, result.TrainAccuracy*100))
	}()

	h.Response.Accepted(c, gin.H{"task_id": taskID}, "训练任务已启动")
}

// GetTrainingProgress 获取训练任务的当前进度（轮询接口）
func (h *Handler) GetTrainingProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.Error(c, http.StatusNotFound, ErrorTaskNotFound, "训练任务不存在")
		return
	}

	// 训练 goroutine 可能正在更新进度，读取加锁后的快照
	h.Response.Success(c, tracker.Snapshot())
}

// ========================================
// 统计相关处理器
// ========================================

// GetStats 获取使用统计与运行指标
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"usage":   h.StatsService.GetUsageStats(),
		"metrics": utils.GetMetricsCollector().Snapshot(),
	})
}
