// internal/services/predictor_service.go
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Corphon/SortingHatQuiz/internal/errors"
	"github.com/Corphon/SortingHatQuiz/internal/ml"
	"github.com/Corphon/SortingHatQuiz/internal/models"
	"github.com/Corphon/SortingHatQuiz/internal/storage"
	"github.com/Corphon/SortingHatQuiz/internal/utils"
)

// PredictorService 加载持久化的模型工件并执行预测
// 工件加载后只读，可被并发请求安全共享
type PredictorService struct {
	Storage *storage.FileStorage // 以模型目录为根

	mutex    sync.RWMutex
	forest   *ml.RandomForest
	encoders *FeatureEncoders
	target   *ml.LabelEncoder
}

// NewPredictorService 创建预测服务并尝试加载工件
// 工件缺失不是致命错误：服务以未训练状态启动，训练完成后可 Reload
func NewPredictorService(store *storage.FileStorage) *PredictorService {
	service := &PredictorService{Storage: store}

	if err := service.Reload(); err != nil {
		// 预测请求到来时会返回模型未就绪错误
		utils.GetLogger().Warnf("模型工件未加载: %v", err)
	}

	return service
}

// Reload 从存储重新加载三个工件
func (s *PredictorService) Reload() error {
	var forest ml.RandomForest
	if err := s.Storage.LoadJSONFile("", ModelFile, &forest); err != nil {
		return fmt.Errorf("加载模型失败: %w", err)
	}

	var encoders FeatureEncoders
	if err := s.Storage.LoadJSONFile("", EncodersFile, &encoders); err != nil {
		return fmt.Errorf("加载特征编码器失败: %w", err)
	}

	var target ml.LabelEncoder
	if err := s.Storage.LoadJSONFile("", TargetEncoderFile, &target); err != nil {
		return fmt.Errorf("加载标签编码器失败: %w", err)
	}

	if len(encoders.Columns) != forest.NumFeatures {
		return fmt.Errorf("编码器列数 %d 与模型特征数 %d 不一致", len(encoders.Columns), forest.NumFeatures)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.forest = &forest
	s.encoders = &encoders
	s.target = &target

	return nil
}

// Ready 检查模型工件是否已加载
func (s *PredictorService) Ready() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.forest != nil && s.encoders != nil && s.target != nil
}

// Predict 对一组答案执行分类
// 答案按训练时的列顺序编码；未知答案返回未知类别错误，没有回退类别
func (s *PredictorService) Predict(answers models.AnswerSet) (*models.PredictionResult, error) {
	s.mutex.RLock()
	forest, encoders, target := s.forest, s.encoders, s.target
	s.mutex.RUnlock()

	if forest == nil || encoders == nil || target == nil {
		return nil, apperrors.NewModelNotReadyError(nil)
	}

	metrics := utils.GetMetricsCollector()

	// 按训练列顺序编码输入
	features := make([]int, len(encoders.Columns))
	for i, col := range encoders.Columns {
		value, ok := answers[col]
		if !ok || value == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("缺少问题 %s 的答案", col), nil)
		}

		encoder, ok := encoders.Encoders[col]
		if !ok {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("缺少列 %s 的编码器", col), nil)
		}

		code, err := encoder.Transform(value)
		if err != nil {
			if errors.Is(err, ml.ErrUnknownCategory) {
				metrics.IncrementCounter(utils.MetricUnknownCategoryTotal)
				return nil, apperrors.NewUnknownCategoryError(col, value)
			}
			return nil, apperrors.NewProcessingError(fmt.Sprintf("编码列 %s 失败", col), err)
		}
		features[i] = code
	}

	// 预测并还原角色名
	proba, err := forest.PredictProba(features)
	if err != nil {
		return nil, apperrors.NewProcessingError("预测失败", err)
	}

	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}

	character, err := target.Inverse(best)
	if err != nil {
		return nil, apperrors.NewProcessingError("还原角色标签失败", err)
	}

	probabilities := make(map[string]float64, len(proba))
	for code, p := range proba {
		name, err := target.Inverse(code)
		if err != nil {
			return nil, apperrors.NewProcessingError("还原角色标签失败", err)
		}
		probabilities[name] = p
	}

	metrics.IncrementCounter(utils.MetricPredictionsTotal)

	return &models.PredictionResult{
		Character:     character,
		Confidence:    proba[best],
		Probabilities: probabilities,
		Timestamp:     time.Now(),
	}, nil
}

// Status 返回模型工件的当前状态
func (s *PredictorService) Status() *models.ModelStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.forest == nil || s.target == nil {
		return &models.ModelStatus{Trained: false}
	}

	return &models.ModelStatus{
		Trained:   true,
		TrainedAt: s.forest.TrainedAt,
		Classes:   append([]string{}, s.target.Classes...),
		Trees:     len(s.forest.Trees),
		Columns:   append([]string{}, s.encoders.Columns...),
	}
}
