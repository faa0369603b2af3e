// internal/services/submission_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/dataset"
	"github.com/Corphon/SortingHatQuiz/internal/models"
	"github.com/Corphon/SortingHatQuiz/internal/utils"
)

// SubmissionService 把用户提交追加回工作簿的 user_submissions 表
// 工作簿不支持并发写，所有写入经过同一把互斥锁
type SubmissionService struct {
	DatasetPath string
	mutex       sync.Mutex
}

// NewSubmissionService 创建提交记录服务实例
func NewSubmissionService(datasetPath string) *SubmissionService {
	return &SubmissionService{DatasetPath: datasetPath}
}

// Record 记录一次用户提交
func (s *SubmissionService) Record(sub *models.QuizSubmission) error {
	if sub == nil {
		return fmt.Errorf("提交记录为空")
	}
	if sub.Name == "" {
		return fmt.Errorf("提交记录缺少用户名")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := dataset.AppendSubmission(s.DatasetPath, sub); err != nil {
		return fmt.Errorf("追加提交记录失败: %w", err)
	}

	utils.GetMetricsCollector().IncrementCounter(utils.MetricSubmissionsTotal)

	return nil
}
