// internal/dataset/excel_test.go
package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/models"
	"github.com/xuri/excelize/v2"
)

// writeTestWorkbook 在临时目录生成一个测试工作簿
func writeTestWorkbook(t *testing.T, trainingRows [][]interface{}, questionRows [][]interface{}) string {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "dataset_test_*")
	if err != nil {
		t.Fatalf("创建临时目录失败: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	f := excelize.NewFile()
	defer f.Close()

	// 训练数据表
	if _, err := f.NewSheet(SheetTrainingData); err != nil {
		t.Fatalf("创建训练数据表失败: %v", err)
	}
	header := []interface{}{"A1", "A2", "A3", "A4", "A5", "Character"}
	writeRow(t, f, SheetTrainingData, 1, header)
	for i, row := range trainingRows {
		writeRow(t, f, SheetTrainingData, i+2, row)
	}

	// 题库表
	if _, err := f.NewSheet(SheetQuestions); err != nil {
		t.Fatalf("创建题库表失败: %v", err)
	}
	writeRow(t, f, SheetQuestions, 1, []interface{}{"Question", "Option1", "Option2", "Option3"})
	for i, row := range questionRows {
		writeRow(t, f, SheetQuestions, i+2, row)
	}

	// 删除默认表
	f.DeleteSheet("Sheet1")

	path := filepath.Join(tempDir, "quiz_training_data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("保存工作簿失败: %v", err)
	}

	return path
}

// writeRow 写入一行单元格
func writeRow(t *testing.T, f *excelize.File, sheet string, rowNum int, values []interface{}) {
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

// defaultQuestionRows 五个问题，每题三个选项
func defaultQuestionRows() [][]interface{} {
	return [][]interface{}{
		{"Q1 How do you face danger?", "Fight", "Plan", "Hide"},
		{"Q2 Favorite class?", "Defense", "Charms", "Potions"},
		{"Q3 What do you value most?", "Courage", "Wisdom", "Loyalty"},
		{"Q4 Your free time?", "Quidditch", "Library", "Chess"},
		{"Q5 Your ambition?", "Hero", "Scholar", "Friend"},
	}
}

// TestLoadTrainingData 测试加载训练数据
func TestLoadTrainingData(t *testing.T) {
	path := writeTestWorkbook(t, [][]interface{}{
		{"Fight", "Defense", "Courage", "Quidditch", "Hero", "Harry Potter"},
		{"Plan", "Charms", "Wisdom", "Library", "Scholar", "Hermione Granger"},
		{"Hide", "Potions", "Loyalty", "Chess", "Friend", "Ron Weasley"},
	}, defaultQuestionRows())

	data, err := LoadTrainingData(path)
	if err != nil {
		t.Fatalf("加载训练数据失败: %v", err)
	}

	if len(data.Rows) != 3 {
		t.Errorf("应加载 3 行数据，实际 %d", len(data.Rows))
	}
	if data.Skipped != 0 {
		t.Errorf("不应跳过任何行，实际跳过 %d", data.Skipped)
	}
	if len(data.Columns) != len(FeatureColumns) {
		t.Errorf("特征列数应为 %d，实际 %d", len(FeatureColumns), len(data.Columns))
	}
	if data.Labels[0] != "Harry Potter" {
		t.Errorf("第一行标签应为 Harry Potter，实际 %q", data.Labels[0])
	}
	if data.Rows[1][2] != "Wisdom" {
		t.Errorf("第二行第三列应为 Wisdom，实际 %q", data.Rows[1][2])
	}
}

// TestLoadTrainingDataSkipsMalformedRows 畸形行应被跳过而不是中断加载
func TestLoadTrainingDataSkipsMalformedRows(t *testing.T) {
	// 三种畸形行：空单元格、列数不足、缺少标签
	path := writeTestWorkbook(t, [][]interface{}{
		{"Fight", "Defense", "Courage", "Quidditch", "Hero", "Harry Potter"},
		{"Plan", "", "Wisdom", "Library", "Scholar", "Hermione Granger"},
		{"Hide", "Potions", "Loyalty"},
		{"Hide", "Potions", "Loyalty", "Chess", "Friend", ""},
		{"Plan", "Charms", "Wisdom", "Library", "Scholar", "Hermione Granger"},
	}, defaultQuestionRows())

	data, err := LoadTrainingData(path)
	if err != nil {
		t.Fatalf("加载训练数据失败: %v", err)
	}

	if len(data.Rows) != 2 {
		t.Errorf("应加载 2 行有效数据，实际 %d", len(data.Rows))
	}
	if data.Skipped != 3 {
		t.Errorf("应跳过 3 行畸形数据，实际 %d", data.Skipped)
	}
}

// TestLoadTrainingDataMissingColumn 缺少必需列应返回错误
func TestLoadTrainingDataMissingColumn(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "dataset_test_*")
	if err != nil {
		t.Fatalf("创建临时目录失败: %v", err)
	}
	defer os.RemoveAll(tempDir)

	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(SheetTrainingData); err != nil {
		t.Fatalf("创建训练数据表失败: %v", err)
	}
	writeRow(t, f, SheetTrainingData, 1, []interface{}{"A1", "A2", "Character"})
	writeRow(t, f, SheetTrainingData, 2, []interface{}{"x", "y", "Harry Potter"})

	path := filepath.Join(tempDir, "bad.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("保存工作簿失败: %v", err)
	}

	if _, err := LoadTrainingData(path); err == nil {
		t.Error("缺少特征列应返回错误")
	}
}

// TestLoadQuestions 测试加载题库
func TestLoadQuestions(t *testing.T) {
	path := writeTestWorkbook(t, [][]interface{}{
		{"Fight", "Defense", "Courage", "Quidditch", "Hero", "Harry Potter"},
		{"Plan", "Charms", "Wisdom", "Library", "Scholar", "Hermione Granger"},
	}, defaultQuestionRows())

	questions, err := LoadQuestions(path)
	if err != nil {
		t.Fatalf("加载题库失败: %v", err)
	}

	if len(questions) != len(FeatureColumns) {
		t.Fatalf("应加载 %d 个问题，实际 %d", len(FeatureColumns), len(questions))
	}

	// 问题ID应与特征列一一对应
	for i, q := range questions {
		if q.ID != FeatureColumns[i] {
			t.Errorf("第 %d 个问题的ID应为 %s，实际 %s", i+1, FeatureColumns[i], q.ID)
		}
		if len(q.Options) < 2 {
			t.Errorf("问题 %s 至少应有 2 个选项，实际 %d", q.ID, len(q.Options))
		}
	}

	if questions[0].Prompt != "Q1 How do you face danger?" {
		t.Errorf("第一个问题题干不正确: %q", questions[0].Prompt)
	}
}

// TestLoadQuestionsCountMismatch 问题数量与特征列不一致应返回错误
func TestLoadQuestionsCountMismatch(t *testing.T) {
	path := writeTestWorkbook(t, [][]interface{}{
		{"Fight", "Defense", "Courage", "Quidditch", "Hero", "Harry Potter"},
	}, [][]interface{}{
		{"Q1 Only one question", "Yes", "No"},
	})

	if _, err := LoadQuestions(path); err == nil {
		t.Error("问题数量不足应返回错误")
	}
}

// TestAppendSubmission 测试追加用户提交
func TestAppendSubmission(t *testing.T) {
	path := writeTestWorkbook(t, [][]interface{}{
		{"Fight", "Defense", "Courage", "Quidditch", "Hero", "Harry Potter"},
	}, defaultQuestionRows())

	sub := &models.QuizSubmission{
		Name: "Alice",
		Answers: models.AnswerSet{
			"A1": "Fight", "A2": "Defense", "A3": "Courage",
			"A4": "Quidditch", "A5": "Hero",
		},
		PredictedCharacter: "Harry Potter",
		CreatedAt:          time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := AppendSubmission(path, sub); err != nil {
		t.Fatalf("追加提交失败: %v", err)
	}

	// 第二次提交应追加到表头之后的下一行
	sub2 := &models.QuizSubmission{
		Name: "Bob",
		Answers: models.AnswerSet{
			"A1": "Plan", "A2": "Charms", "A3": "Wisdom",
			"A4": "Library", "A5": "Scholar",
		},
		PredictedCharacter: "Hermione Granger",
		CreatedAt:          time.Now(),
	}
	if err := AppendSubmission(path, sub2); err != nil {
		t.Fatalf("追加第二条提交失败: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("打开工作簿失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetSubmissions)
	if err != nil {
		t.Fatalf("读取提交表失败: %v", err)
	}

	// 表头 + 两条记录
	if len(rows) != 3 {
		t.Fatalf("提交表应有 3 行，实际 %d", len(rows))
	}
	if rows[0][0] != "Name" {
		t.Errorf("表头第一列应为 Name，实际 %q", rows[0][0])
	}
	if rows[1][0] != "Alice" {
		t.Errorf("第一条记录的名字应为 Alice，实际 %q", rows[1][0])
	}
	if rows[2][6] != "Hermione Granger" {
		t.Errorf("第二条记录的预测角色应为 Hermione Granger，实际 %q", rows[2][6])
	}
}
