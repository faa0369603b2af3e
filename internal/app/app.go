// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/config"
	"github.com/Corphon/SortingHatQuiz/internal/di"
	"github.com/Corphon/SortingHatQuiz/internal/services"
	"github.com/Corphon/SortingHatQuiz/internal/storage"
	"github.com/Corphon/SortingHatQuiz/internal/utils"
)

// serverInterface 抽象HTTP服务器，便于测试替换
type serverInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 表示应用程序实例
type App struct {
	config   *config.AppConfig
	router   http.Handler
	server   serverInterface
	stopChan chan os.Signal
}

// 全局应用实例
var instance *App

// GetApp 获取应用实例（单例模式）
func GetApp() *App {
	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// GetConfig 返回应用配置
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// SetRouter 设置HTTP路由
func (a *App) SetRouter(router http.Handler) {
	a.router = router
}

// GetDIContainer 获取依赖注入容器
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode 检查是否处于调试模式
func IsDebugMode() bool {
	if instance == nil || instance.config == nil {
		return false
	}
	return instance.config.DebugMode
}

// Initialize 初始化应用：配置、日志、服务与路由
func Initialize(dataDir string) error {
	if err := config.InitConfig(dataDir); err != nil {
		return fmt.Errorf("初始化配置失败: %w", err)
	}

	cfg := config.GetCurrentConfig()
	GetApp().config = cfg

	if err := initLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	return nil
}

// initLogger 初始化日志系统
func initLogger(logDir string) error {
	logFile := filepath.Join(logDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	// 模型工件存储
	modelStorage, err := storage.NewFileStorage(cfg.ModelDir)
	if err != nil {
		return fmt.Errorf("初始化模型存储失败: %w", err)
	}
	container.Register("model_storage", modelStorage)

	// 基础服务
	container.Register("progress", services.NewProgressService())
	container.Register("stats", services.NewStatsService(filepath.Join(cfg.DataDir, "stats")))
	container.Register("quiz", services.NewQuizService(cfg.DatasetPath))
	container.Register("submission", services.NewSubmissionService(cfg.DatasetPath))

	// 依赖模型存储的服务
	container.Register("trainer", services.NewTrainerService(modelStorage, cfg.DatasetPath, cfg.ForestTrees, cfg.ForestSeed))
	container.Register("predictor", services.NewPredictorService(modelStorage))

	return nil
}

// Run 启动HTTP服务器并等待关闭信号
func Run() error {
	app := GetApp()

	if app.server == nil {
		if app.config == nil || app.router == nil {
			return fmt.Errorf("应用未初始化")
		}
		app.server = &http.Server{
			Addr:    ":" + app.config.Port,
			Handler: app.router,
		}
	}

	// 在新的 goroutine 中启动服务器
	errChan := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// 等待中断信号
	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("启动服务器失败: %w", err)
	case <-app.stopChan:
	}

	utils.GetLogger().Info("正在关闭服务器...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	app.cleanup()

	return nil
}

// cleanup 释放各服务持有的资源
func (a *App) cleanup() {
	container := di.GetContainer()

	if statsService, ok := container.Get("stats").(*services.StatsService); ok && statsService != nil {
		if err := statsService.Close(); err != nil {
			utils.GetLogger().Warnf("关闭统计服务失败: %v", err)
		}
	}
}
