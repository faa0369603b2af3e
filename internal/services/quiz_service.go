// internal/services/quiz_service.go
package services

import (
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/Corphon/SortingHatQuiz/internal/dataset"
	"github.com/Corphon/SortingHatQuiz/internal/models"
)

// characterDescriptions 每个角色的结果文案
var characterDescriptions = map[string]string{
	"Harry Potter":       "With unshakable courage and a heart that leaps to protect, Harry faces danger head-on, leading the way into every adventure, always guided by the unwavering light of doing what's right.",
	"Hermione Granger":   "With brilliance in her mind and honesty in her heart, Hermione finds answers in books and logic, creating thoughtful plans that transform curiosity into power.",
	"Ron Weasley":        "With loyalty as his compass and humor as his shield, Ron may stumble in panic, but he always stands by those he loves, offering the warmth of friendship above all.",
	"Draco Malfoy":       "Driven by ambition and influence, Draco plays life like a chessboard, crafting strategies to turn every challenge into an opportunity for power and success.",
	"Neville Longbottom": "Gentle yet steadfast, Neville grows stronger with every struggle, turning kindness and perseverance into quiet acts of bravery that prove doubters wrong.",
}

// QuizService 提供题库、角色资料与分享文案
type QuizService struct {
	DatasetPath string

	mutex     sync.RWMutex
	questions []models.Question
}

// NewQuizService 创建测验服务实例
func NewQuizService(datasetPath string) *QuizService {
	return &QuizService{DatasetPath: datasetPath}
}

// LoadQuestions 从工作簿加载题库并缓存
func (s *QuizService) LoadQuestions() error {
	questions, err := dataset.LoadQuestions(s.DatasetPath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.questions = questions

	return nil
}

// GetQuiz 返回测验内容
// shuffle 为 true 时打乱问题顺序和每题的选项顺序，问题ID保持不变
func (s *QuizService) GetQuiz(shuffle bool) (*models.QuizPayload, error) {
	s.mutex.RLock()
	cached := s.questions
	s.mutex.RUnlock()

	if cached == nil {
		if err := s.LoadQuestions(); err != nil {
			return nil, err
		}
		s.mutex.RLock()
		cached = s.questions
		s.mutex.RUnlock()
	}

	// 深拷贝，避免打乱共享的缓存
	questions := make([]models.Question, len(cached))
	for i, q := range cached {
		options := append([]string{}, q.Options...)
		questions[i] = models.Question{ID: q.ID, Prompt: q.Prompt, Options: options}
	}

	if shuffle {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
		for i := range questions {
			opts := questions[i].Options
			rand.Shuffle(len(opts), func(a, b int) {
				opts[a], opts[b] = opts[b], opts[a]
			})
		}
	}

	return &models.QuizPayload{Questions: questions, Shuffled: shuffle}, nil
}

// GetCharacters 返回全部角色资料
func (s *QuizService) GetCharacters() []models.Character {
	names := make([]string, 0, len(characterDescriptions))
	for name := range characterDescriptions {
		names = append(names, name)
	}
	// map 遍历无序，输出按名称排序
	sort.Strings(names)

	characters := make([]models.Character, 0, len(names))
	for _, name := range names {
		characters = append(characters, s.Describe(name))
	}
	return characters
}

// Describe 返回单个角色的资料
// 未登记的角色返回只有名字和默认头像的资料
func (s *QuizService) Describe(name string) models.Character {
	return models.Character{
		Name:        name,
		Description: characterDescriptions[name],
		ImageURL:    CharacterImageURL(name),
	}
}

// CharacterImageURL 根据角色名生成头像路径
func CharacterImageURL(name string) string {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	return "/static/images/characters/" + slug + ".jpg"
}

// BuildShareText 生成分享文案与URL编码后的版本
func (s *QuizService) BuildShareText(character string) (text string, encoded string) {
	text = fmt.Sprintf("I got %s! Which Harry Potter character are you? 🧙", character)
	encoded = url.QueryEscape(text)
	return text, encoded
}
