// internal/services/quiz_service_test.go
package services

import (
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/Corphon/SortingHatQuiz/internal/models"
)

// newQuizServiceWithQuestions 注入固定题库，绕过工作簿加载
func newQuizServiceWithQuestions() *QuizService {
	service := NewQuizService("")
	service.questions = []models.Question{
		{ID: "A1", Prompt: "Q1", Options: []string{"a", "b", "c"}},
		{ID: "A2", Prompt: "Q2", Options: []string{"d", "e", "f"}},
		{ID: "A3", Prompt: "Q3", Options: []string{"g", "h", "i"}},
		{ID: "A4", Prompt: "Q4", Options: []string{"j", "k", "l"}},
		{ID: "A5", Prompt: "Q5", Options: []string{"m", "n", "o"}},
	}
	return service
}

// TestGetQuizWithoutShuffle 不打乱时应保持原始顺序
func TestGetQuizWithoutShuffle(t *testing.T) {
	service := newQuizServiceWithQuestions()

	quiz, err := service.GetQuiz(false)
	if err != nil {
		t.Fatalf("获取测验失败: %v", err)
	}

	if quiz.Shuffled {
		t.Error("Shuffled 标志应为 false")
	}
	for i, q := range quiz.Questions {
		if q.ID != service.questions[i].ID {
			t.Errorf("第 %d 个问题的ID应为 %s，实际 %s", i, service.questions[i].ID, q.ID)
		}
	}
}

// TestGetQuizShufflePreservesContent 打乱只改变顺序，不改变问题和选项的集合
func TestGetQuizShufflePreservesContent(t *testing.T) {
	service := newQuizServiceWithQuestions()

	quiz, err := service.GetQuiz(true)
	if err != nil {
		t.Fatalf("获取测验失败: %v", err)
	}

	if len(quiz.Questions) != len(service.questions) {
		t.Fatalf("问题数量应为 %d，实际 %d", len(service.questions), len(quiz.Questions))
	}

	// 按ID索引原始问题
	original := make(map[string]models.Question)
	for _, q := range service.questions {
		original[q.ID] = q
	}

	seen := make(map[string]bool)
	for _, q := range quiz.Questions {
		orig, ok := original[q.ID]
		if !ok {
			t.Fatalf("出现了未知的问题ID: %s", q.ID)
		}
		if seen[q.ID] {
			t.Fatalf("问题ID %s 重复出现", q.ID)
		}
		seen[q.ID] = true

		if q.Prompt != orig.Prompt {
			t.Errorf("问题 %s 的题干被修改: %q != %q", q.ID, q.Prompt, orig.Prompt)
		}

		// 选项集合不变
		gotOptions := append([]string{}, q.Options...)
		wantOptions := append([]string{}, orig.Options...)
		sort.Strings(gotOptions)
		sort.Strings(wantOptions)
		if strings.Join(gotOptions, "|") != strings.Join(wantOptions, "|") {
			t.Errorf("问题 %s 的选项集合被修改: %v != %v", q.ID, q.Options, orig.Options)
		}
	}
}

// TestGetQuizShuffleDoesNotMutateCache 打乱不应影响缓存的题库
func TestGetQuizShuffleDoesNotMutateCache(t *testing.T) {
	service := newQuizServiceWithQuestions()

	if _, err := service.GetQuiz(true); err != nil {
		t.Fatalf("获取测验失败: %v", err)
	}

	// 缓存中的顺序应保持不变
	expected := []string{"A1", "A2", "A3", "A4", "A5"}
	for i, q := range service.questions {
		if q.ID != expected[i] {
			t.Errorf("缓存中第 %d 个问题的ID应为 %s，实际 %s", i, expected[i], q.ID)
		}
	}
	if service.questions[0].Options[0] != "a" {
		t.Errorf("缓存中的选项顺序被修改: %v", service.questions[0].Options)
	}
}

// TestGetCharacters 角色列表应按名称排序且资料完整
func TestGetCharacters(t *testing.T) {
	service := NewQuizService("")

	characters := service.GetCharacters()
	if len(characters) != 5 {
		t.Fatalf("应有 5 个角色，实际 %d", len(characters))
	}

	for i := 1; i < len(characters); i++ {
		if characters[i-1].Name >= characters[i].Name {
			t.Errorf("角色列表应按名称排序: %q >= %q", characters[i-1].Name, characters[i].Name)
		}
	}

	for _, c := range characters {
		if c.Description == "" {
			t.Errorf("角色 %s 缺少描述", c.Name)
		}
		if c.ImageURL == "" {
			t.Errorf("角色 %s 缺少头像路径", c.Name)
		}
	}
}

// TestCharacterImageURL 头像路径应为小写下划线格式
func TestCharacterImageURL(t *testing.T) {
	got := CharacterImageURL("Harry Potter")
	want := "/static/images/characters/harry_potter.jpg"
	if got != want {
		t.Errorf("头像路径应为 %q，实际 %q", want, got)
	}
}

// TestBuildShareText 分享文案应包含角色名且编码后可还原
func TestBuildShareText(t *testing.T) {
	service := NewQuizService("")

	text, encoded := service.BuildShareText("Hermione Granger")

	if !strings.Contains(text, "Hermione Granger") {
		t.Errorf("分享文案应包含角色名: %q", text)
	}

	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		t.Fatalf("解码分享链接失败: %v", err)
	}
	if decoded != text {
		t.Errorf("编码后的文案应可还原: %q != %q", decoded, text)
	}
}
