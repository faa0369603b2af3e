// internal/services/trainer_service_test.go
package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Corphon/SortingHatQuiz/internal/dataset"
	apperrors "github.com/Corphon/SortingHatQuiz/internal/errors"
	"github.com/Corphon/SortingHatQuiz/internal/models"
	"github.com/Corphon/SortingHatQuiz/internal/storage"
	"github.com/xuri/excelize/v2"
)

// setupTrainingWorkbook 生成一个小型可分的训练工作簿
// 每个角色的五个答案完全固定，森林应能准确记住训练样本
func setupTrainingWorkbook(t *testing.T) (workbookPath, modelDir string) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "trainer_test_*")
	if err != nil {
		t.Fatalf("创建临时目录失败: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(dataset.SheetTrainingData); err != nil {
		t.Fatalf("创建训练数据表失败: %v", err)
	}

	writeTestRow(t, f, dataset.SheetTrainingData, 1,
		[]interface{}{"A1", "A2", "A3", "A4", "A5", "Character"})

	// 三个角色各四行完全相同的答案
	profiles := map[string][]interface{}{
		"Harry Potter":     {"Fight", "Defense", "Courage", "Quidditch", "Hero"},
		"Hermione Granger": {"Plan", "Charms", "Wisdom", "Library", "Scholar"},
		"Ron Weasley":      {"Joke", "Potions", "Loyalty", "Chess", "Friend"},
	}
	rowNum := 2
	for _, name := range []string{"Harry Potter", "Hermione Granger", "Ron Weasley"} {
		for i := 0; i < 4; i++ {
			row := append(append([]interface{}{}, profiles[name]...), name)
			writeTestRow(t, f, dataset.SheetTrainingData, rowNum, row)
			rowNum++
		}
	}

	// 题库表
	if _, err := f.NewSheet(dataset.SheetQuestions); err != nil {
		t.Fatalf("创建题库表失败: %v", err)
	}
	questionRows := [][]interface{}{
		{"Question", "Option1", "Option2", "Option3"},
		{"Q1 How do you face danger?", "Fight", "Plan", "Joke"},
		{"Q2 Favorite class?", "Defense", "Charms", "Potions"},
		{"Q3 What do you value most?", "Courage", "Wisdom", "Loyalty"},
		{"Q4 Your free time?", "Quidditch", "Library", "Chess"},
		{"Q5 Your ambition?", "Hero", "Scholar", "Friend"},
	}
	for i, row := range questionRows {
		writeTestRow(t, f, dataset.SheetQuestions, i+1, row)
	}

	f.DeleteSheet("Sheet1")

	workbookPath = filepath.Join(tempDir, "quiz_training_data.xlsx")
	if err := f.SaveAs(workbookPath); err != nil {
		t.Fatalf("保存工作簿失败: %v", err)
	}

	return workbookPath, filepath.Join(tempDir, "saved_model")
}

// writeTestRow 写入一行单元格
func writeTestRow(t *testing.T, f *excelize.File, sheet string, rowNum int, values []interface{}) {
	t.Helper()

	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			t.Fatalf("计算单元格坐标失败: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("写入单元格 %s 失败: %v", cell, err)
		}
	}
}

// TestTrainerProducesArtifacts 训练应生成三个模型工件
func TestTrainerProducesArtifacts(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	trainer := NewTrainerService(store, workbookPath, 20, 42)
	result, err := trainer.Train(context.Background(), nil)
	if err != nil {
		t.Fatalf("训练失败: %v", err)
	}

	if result.Rows != 12 {
		t.Errorf("应训练 12 行样本，实际 %d", result.Rows)
	}
	if result.Trees != 20 {
		t.Errorf("应训练 20 棵树，实际 %d", result.Trees)
	}
	if len(result.Classes) != 3 {
		t.Errorf("应有 3 个类别，实际 %d", len(result.Classes))
	}
	if result.TrainAccuracy < 0.99 {
		t.Errorf("完全可分数据的训练集准确率应接近 1，实际 %v", result.TrainAccuracy)
	}
	for _, class := range result.Classes {
		if result.ClassAccuracy[class] < 0.99 {
			t.Errorf("角色 %s 的训练集准确率应接近 1，实际 %v", class, result.ClassAccuracy[class])
		}
	}

	for _, filename := range []string{ModelFile, EncodersFile, TargetEncoderFile} {
		if !store.FileExists("", filename) {
			t.Errorf("工件 %s 应已生成", filename)
		}
	}
}

// TestTrainerProgressReporting 训练应向跟踪器报告进度直到完成
func TestTrainerProgressReporting(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	progressService := NewProgressService()
	tracker := progressService.CreateTracker("train_test")

	trainer := NewTrainerService(store, workbookPath, 10, 42)
	if _, err := trainer.Train(context.Background(), tracker); err != nil {
		t.Fatalf("训练失败: %v", err)
	}

	if tracker.Progress != 100 {
		t.Errorf("训练完成后进度应为 100，实际 %d", tracker.Progress)
	}
}

// TestTrainerCancelledContext 已取消的上下文应中止训练
func TestTrainerCancelledContext(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := NewTrainerService(store, workbookPath, 10, 42)
	if _, err := trainer.Train(ctx, nil); err == nil {
		t.Error("已取消的上下文应返回错误")
	}
}

// TestPredictorEndToEnd 训练后的预测器应能还原训练样本对应的角色
func TestPredictorEndToEnd(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	trainer := NewTrainerService(store, workbookPath, 30, 42)
	if _, err := trainer.Train(context.Background(), nil); err != nil {
		t.Fatalf("训练失败: %v", err)
	}

	predictor := NewPredictorService(store)
	if !predictor.Ready() {
		t.Fatal("训练后预测器应处于就绪状态")
	}

	cases := []struct {
		answers models.AnswerSet
		want    string
	}{
		{models.AnswerSet{"A1": "Fight", "A2": "Defense", "A3": "Courage", "A4": "Quidditch", "A5": "Hero"}, "Harry Potter"},
		{models.AnswerSet{"A1": "Plan", "A2": "Charms", "A3": "Wisdom", "A4": "Library", "A5": "Scholar"}, "Hermione Granger"},
		{models.AnswerSet{"A1": "Joke", "A2": "Potions", "A3": "Loyalty", "A4": "Chess", "A5": "Friend"}, "Ron Weasley"},
	}

	for _, tc := range cases {
		result, err := predictor.Predict(tc.answers)
		if err != nil {
			t.Fatalf("预测失败: %v", err)
		}
		if result.Character != tc.want {
			t.Errorf("应预测为 %s，实际 %s", tc.want, result.Character)
		}
		if result.Confidence <= 0 || result.Confidence > 1 {
			t.Errorf("置信度 %v 超出 (0, 1]", result.Confidence)
		}
		if len(result.Probabilities) != 3 {
			t.Errorf("应返回 3 个类别的概率，实际 %d", len(result.Probabilities))
		}
	}
}

// TestPredictorUnknownCategory 未知答案应返回未知类别错误
func TestPredictorUnknownCategory(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	trainer := NewTrainerService(store, workbookPath, 10, 42)
	if _, err := trainer.Train(context.Background(), nil); err != nil {
		t.Fatalf("训练失败: %v", err)
	}

	predictor := NewPredictorService(store)

	_, err = predictor.Predict(models.AnswerSet{
		"A1": "Dance", "A2": "Defense", "A3": "Courage", "A4": "Quidditch", "A5": "Hero",
	})
	if err == nil {
		t.Fatal("未知答案应返回错误")
	}
	if !apperrors.IsUnknownCategoryError(err) {
		t.Errorf("错误应为未知类别错误，实际: %v", err)
	}
}

// TestPredictorMissingAnswer 缺少答案应返回校验错误
func TestPredictorMissingAnswer(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	trainer := NewTrainerService(store, workbookPath, 10, 42)
	if _, err := trainer.Train(context.Background(), nil); err != nil {
		t.Fatalf("训练失败: %v", err)
	}

	predictor := NewPredictorService(store)

	_, err = predictor.Predict(models.AnswerSet{"A1": "Fight"})
	if err == nil {
		t.Fatal("缺少答案应返回错误")
	}
	if !apperrors.IsValidationError(err) {
		t.Errorf("错误应为校验错误，实际: %v", err)
	}
}

// TestPredictorNotReady 没有模型工件时预测应返回模型未就绪错误
func TestPredictorNotReady(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "predictor_test_*")
	if err != nil {
		t.Fatalf("创建临时目录失败: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := storage.NewFileStorage(tempDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	predictor := NewPredictorService(store)
	if predictor.Ready() {
		t.Fatal("没有工件时预测器不应就绪")
	}

	status := predictor.Status()
	if status.Trained {
		t.Error("没有工件时模型状态应为未训练")
	}

	_, err = predictor.Predict(models.AnswerSet{
		"A1": "Fight", "A2": "Defense", "A3": "Courage", "A4": "Quidditch", "A5": "Hero",
	})
	if err == nil {
		t.Fatal("未就绪的预测器应返回错误")
	}
	if !apperrors.IsModelNotReadyError(err) {
		t.Errorf("错误应为模型未就绪错误，实际: %v", err)
	}
}

// TestPredictorDeterministicAcrossReloads 相同种子训练两次应得到相同预测
func TestPredictorDeterministicAcrossReloads(t *testing.T) {
	workbookPath, modelDir := setupTrainingWorkbook(t)

	store, err := storage.NewFileStorage(modelDir)
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	answers := models.AnswerSet{
		"A1": "Fight", "A2": "Charms", "A3": "Loyalty", "A4": "Quidditch", "A5": "Hero",
	}

	trainer := NewTrainerService(store, workbookPath, 20, 42)
	if _, err := trainer.Train(context.Background(), nil); err != nil {
		t.Fatalf("训练失败: %v", err)
	}

	predictor := NewPredictorService(store)
	first, err := predictor.Predict(answers)
	if err != nil {
		t.Fatalf("预测失败: %v", err)
	}

	// 重新训练并重新加载
	if _, err := trainer.Train(context.Background(), nil); err != nil {
		t.Fatalf("第二次训练失败: %v", err)
	}
	if err := predictor.Reload(); err != nil {
		t.Fatalf("重新加载失败: %v", err)
	}

	second, err := predictor.Predict(answers)
	if err != nil {
		t.Fatalf("第二次预测失败: %v", err)
	}

	if first.Character != second.Character {
		t.Errorf("相同种子的两次训练预测结果应一致: %s != %s", first.Character, second.Character)
	}
	if first.Confidence != second.Confidence {
		t.Errorf("相同种子的两次训练置信度应一致: %v != %v", first.Confidence, second.Confidence)
	}
}
