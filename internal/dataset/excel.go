// internal/dataset/excel.go
package dataset

import (
	"fmt"
	"log"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/models"
	"github.com/xuri/excelize/v2"
)

// 工作簿中的固定表名
const (
	SheetTrainingData = "answers_training_data"
	SheetQuestions    = "questions_and_answers"
	SheetSubmissions  = "user_submissions"
)

// FeatureColumns 特征列的训练顺序，预测时必须按同样顺序编码
var FeatureColumns = []string{"A1", "A2", "A3", "A4", "A5"}

// LabelColumn 标签列名
const LabelColumn = "Character"

// TrainingData 表示加载后的带标签数据集
type TrainingData struct {
	Columns []string   // 特征列名，训练顺序
	Rows    [][]string // 每行的特征取值
	Labels  []string   // 每行的角色标签
	Skipped int        // 被跳过的畸形行数
}

// LoadTrainingData 从工作簿加载训练数据
// 畸形行（列数不足或有空单元格）被跳过并记录警告
func LoadTrainingData(path string) (*TrainingData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetTrainingData)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 表失败: %w", SheetTrainingData, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s 表中没有数据行", SheetTrainingData)
	}

	// 按表头定位各列，不依赖列的物理顺序
	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}

	for _, col := range append(append([]string{}, FeatureColumns...), LabelColumn) {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("%s 表缺少列 %s", SheetTrainingData, col)
		}
	}

	data := &TrainingData{
		Columns: append([]string{}, FeatureColumns...),
	}

	for rowNum, row := range rows[1:] {
		features := make([]string, 0, len(FeatureColumns))
		valid := true

		for _, col := range FeatureColumns {
			idx := colIndex[col]
			if idx >= len(row) || row[idx] == "" {
				valid = false
				break
			}
			features = append(features, row[idx])
		}

		labelIdx := colIndex[LabelColumn]
		if labelIdx >= len(row) || row[labelIdx] == "" {
			valid = false
		}

		if !valid {
			log.Printf("警告: 跳过第 %d 行（列数不足或存在空单元格）", rowNum+2)
			data.Skipped++
			continue
		}

		data.Rows = append(data.Rows, features)
		data.Labels = append(data.Labels, row[labelIdx])
	}

	if len(data.Rows) == 0 {
		return nil, fmt.Errorf("%s 表没有可用的数据行", SheetTrainingData)
	}

	return data, nil
}

// LoadQuestions 从工作簿加载题库
// 第 i 行的问题对应特征列 FeatureColumns[i]
func LoadQuestions(path string) ([]models.Question, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetQuestions)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 表失败: %w", SheetQuestions, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s 表中没有问题", SheetQuestions)
	}

	dataRows := rows[1:]
	if len(dataRows) != len(FeatureColumns) {
		return nil, fmt.Errorf("问题数量 %d 与特征列数量 %d 不一致", len(dataRows), len(FeatureColumns))
	}

	questions := make([]models.Question, 0, len(dataRows))
	for i, row := range dataRows {
		if len(row) < 2 || row[0] == "" {
			return nil, fmt.Errorf("第 %d 个问题缺少题干或选项", i+1)
		}

		options := make([]string, 0, len(row)-1)
		for _, opt := range row[1:] {
			if opt != "" {
				options = append(options, opt)
			}
		}
		if len(options) < 2 {
			return nil, fmt.Errorf("问题 %q 至少需要 2 个选项", row[0])
		}

		questions = append(questions, models.Question{
			ID:      FeatureColumns[i],
			Prompt:  row[0],
			Options: options,
		})
	}

	return questions, nil
}

// submissionHeader user_submissions 表的表头
func submissionHeader() []string {
	header := []string{"Name"}
	header = append(header, FeatureColumns...)
	return append(header, "PredictedCharacter", "Timestamp")
}

// AppendSubmission 将一次用户提交追加到工作簿
// 调用方负责串行化写入，工作簿不支持并发写
func AppendSubmission(path string, sub *models.QuizSubmission) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	// 表不存在时先创建并写入表头
	sheetIndex, err := f.GetSheetIndex(SheetSubmissions)
	if err != nil {
		return fmt.Errorf("查找 %s 表失败: %w", SheetSubmissions, err)
	}
	if sheetIndex < 0 {
		if _, err := f.NewSheet(SheetSubmissions); err != nil {
			return fmt.Errorf("创建 %s 表失败: %w", SheetSubmissions, err)
		}
		for i, name := range submissionHeader() {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(SheetSubmissions, cell, name); err != nil {
				return fmt.Errorf("写入表头失败: %w", err)
			}
		}
	}

	rows, err := f.GetRows(SheetSubmissions)
	if err != nil {
		return fmt.Errorf("读取 %s 表失败: %w", SheetSubmissions, err)
	}
	nextRow := len(rows) + 1

	values := []interface{}{sub.Name}
	for _, col := range FeatureColumns {
		values = append(values, sub.Answers[col])
	}
	values = append(values, sub.PredictedCharacter, sub.CreatedAt.Format(time.RFC3339))

	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, nextRow)
		if err := f.SetCellValue(SheetSubmissions, cell, v); err != nil {
			return fmt.Errorf("写入提交记录失败: %w", err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("保存工作簿失败: %w", err)
	}

	return nil
}
