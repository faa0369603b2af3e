// internal/api/router.go
package api

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/config"
	"github.com/Corphon/SortingHatQuiz/internal/di"
	"github.com/Corphon/SortingHatQuiz/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	// 获取配置
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// ✅ 只从容器获取服务，不再创建新实例
	quizService, ok := container.Get("quiz").(*services.QuizService)
	if !ok {
		return nil, fmt.Errorf("题库服务未正确初始化")
	}

	predictorService, ok := container.Get("predictor").(*services.PredictorService)
	if !ok {
		return nil, fmt.Errorf("预测服务未正确初始化")
	}

	trainerService, ok := container.Get("trainer").(*services.TrainerService)
	if !ok {
		return nil, fmt.Errorf("训练服务未正确初始化")
	}

	submissionService, ok := container.Get("submission").(*services.SubmissionService)
	if !ok {
		return nil, fmt.Errorf("提交记录服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	// ✅ 创建API处理器 - 只传递从容器获取的服务
	handler := NewHandler(
		quizService,
		predictorService,
		trainerService,
		submissionService,
		statsService,
		progressService,
	)

	// 创建路由
	r := gin.Default()

	// 启用CORS和请求ID
	r.Use(corsMiddleware())
	r.Use(RequestIDMiddleware())

	// 静态文件服务
	r.Static("/static", cfg.StaticDir)

	// HTML模板
	r.LoadHTMLGlob(filepath.Join(cfg.TemplatesDir, "*.html"))

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)
	r.GET("/quiz", handler.QuizPage)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// 测验相关路由
		api.GET("/questions", handler.GetQuestions)
		api.GET("/characters", handler.GetCharacters)

		// 预测路由，按IP限流防止刷量
		api.POST("/predict", RateLimitByIP(60, time.Minute), handler.Predict)

		// 模型状态
		api.GET("/model", handler.GetModelStatus)

		// 训练相关路由
		api.POST("/train", RateLimitByIP(5, time.Minute), handler.TrainModel)
		api.GET("/train/:taskID", handler.GetTrainingProgress)
		api.GET("/train/:taskID/progress", handler.TrainingProgressWS)

		// 统计路由
		api.GET("/stats", handler.GetStats)
	}

	return r, nil
}
