// internal/services/trainer_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/dataset"
	"github.com/Corphon/SortingHatQuiz/internal/ml"
	"github.com/Corphon/SortingHatQuiz/internal/storage"
	"github.com/Corphon/SortingHatQuiz/internal/utils"
)

// 模型工件文件名，与训练脚本保持一致
const (
	ModelFile         = "random_forest.json"
	EncodersFile      = "label_encoders.json"
	TargetEncoderFile = "target_encoder.json"
)

// FeatureEncoders 持久化的特征编码器集合
// Columns 记录训练时的列顺序，预测时必须按同样顺序编码
type FeatureEncoders struct {
	Columns  []string                    `json:"columns"`
	Encoders map[string]*ml.LabelEncoder `json:"encoders"`
}

// TrainingResult 一次训练的摘要
type TrainingResult struct {
	Rows          int                `json:"rows"`
	Skipped       int                `json:"skipped"`
	Classes       []string           `json:"classes"`
	Trees         int                `json:"trees"`
	TrainAccuracy float64            `json:"train_accuracy"`
	ClassAccuracy map[string]float64 `json:"class_accuracy"` // 每个角色的训练集准确率
	Duration      time.Duration      `json:"duration"`
}

// TrainerService 负责完整的训练流程：
// 加载数据集 -> 拟合编码器 -> 训练森林 -> 持久化三个工件
type TrainerService struct {
	Storage     *storage.FileStorage // 以模型目录为根
	DatasetPath string
	Trees       int
	Seed        int64
}

// NewTrainerService 创建训练服务实例
func NewTrainerService(store *storage.FileStorage, datasetPath string, trees int, seed int64) *TrainerService {
	if trees <= 0 {
		trees = 100
	}

	return &TrainerService{
		Storage:     store,
		DatasetPath: datasetPath,
		Trees:       trees,
		Seed:        seed,
	}
}

// Train 执行一次完整训练
// tracker 可以为 nil（命令行训练时没有订阅者）
func (s *TrainerService) Train(ctx context.Context, tracker *ProgressTracker) (*TrainingResult, error) {
	startTime := time.Now()
	report := func(progress int, message string) {
		if tracker != nil {
			tracker.UpdateProgress(progress, message)
		}
	}

	// 1. 加载数据集
	report(5, "加载训练数据集...")
	data, err := dataset.LoadTrainingData(s.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("加载训练数据失败: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. 拟合特征编码器
	report(20, "拟合特征编码器...")
	featureEncoders := &FeatureEncoders{
		Columns:  data.Columns,
		Encoders: make(map[string]*ml.LabelEncoder, len(data.Columns)),
	}

	encoded := make([][]int, len(data.Rows))
	for i := range encoded {
		encoded[i] = make([]int, len(data.Columns))
	}

	for colIdx, col := range data.Columns {
		values := make([]string, len(data.Rows))
		for rowIdx, row := range data.Rows {
			values[rowIdx] = row[colIdx]
		}

		encoder := ml.FitLabelEncoder(values)
		featureEncoders.Encoders[col] = encoder

		codes, err := encoder.TransformAll(values)
		if err != nil {
			// 拟合与转换使用同一列数据，这里不应该失败
			return nil, fmt.Errorf("编码列 %s 失败: %w", col, err)
		}
		for rowIdx, code := range codes {
			encoded[rowIdx][colIdx] = code
		}
	}

	// 3. 拟合标签编码器
	report(35, "拟合标签编码器...")
	targetEncoder := ml.FitLabelEncoder(data.Labels)
	labels, err := targetEncoder.TransformAll(data.Labels)
	if err != nil {
		return nil, fmt.Errorf("编码标签失败: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. 训练随机森林
	report(45, fmt.Sprintf("训练随机森林（%d 棵树）...", s.Trees))
	forest, err := ml.TrainForest(encoded, labels, targetEncoder.Len(), ml.ForestOptions{
		NumTrees: s.Trees,
		Seed:     s.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("训练随机森林失败: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. 训练集准确率，仅作为摘要信息
	report(80, "评估训练集准确率...")
	correct := 0
	classTotal := make([]int, targetEncoder.Len())
	classCorrect := make([]int, targetEncoder.Len())
	for i, features := range encoded {
		predicted, err := forest.Predict(features)
		if err != nil {
			return nil, fmt.Errorf("评估失败: %w", err)
		}
		classTotal[labels[i]]++
		if predicted == labels[i] {
			correct++
			classCorrect[labels[i]]++
		}
	}

	classAccuracy := make(map[string]float64, targetEncoder.Len())
	for code, name := range targetEncoder.Classes {
		if classTotal[code] > 0 {
			classAccuracy[name] = float64(classCorrect[code]) / float64(classTotal[code])
		}
	}

	// 6. 持久化工件
	report(90, "保存模型工件...")
	if err := s.Storage.SaveJSONFile("", ModelFile, forest); err != nil {
		return nil, fmt.Errorf("保存模型失败: %w", err)
	}
	if err := s.Storage.SaveJSONFile("", EncodersFile, featureEncoders); err != nil {
		return nil, fmt.Errorf("保存特征编码器失败: %w", err)
	}
	if err := s.Storage.SaveJSONFile("", TargetEncoderFile, targetEncoder); err != nil {
		return nil, fmt.Errorf("保存标签编码器失败: %w", err)
	}

	duration := time.Since(startTime)

	metrics := utils.GetMetricsCollector()
	metrics.IncrementCounter(utils.MetricTrainingRunsTotal)
	metrics.RecordHistogram(utils.MetricTrainingDurationMs, duration.Milliseconds())

	report(100, "训练完成")

	return &TrainingResult{
		Rows:          len(data.Rows),
		Skipped:       data.Skipped,
		Classes:       targetEncoder.Classes,
		Trees:         len(forest.Trees),
		TrainAccuracy: float64(correct) / float64(len(encoded)),
		ClassAccuracy: classAccuracy,
		Duration:      duration,
	}, nil
}
