// cmd/server/main.go
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Corphon/SortingHatQuiz/internal/api"
	"github.com/Corphon/SortingHatQuiz/internal/app"
	"github.com/Corphon/SortingHatQuiz/internal/config"
	"github.com/Corphon/SortingHatQuiz/internal/di"
	"github.com/Corphon/SortingHatQuiz/internal/services"
)

func main() {
	log.Println("🚀 启动 SortingHatQuiz 服务器...")

	// 1. 首先加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 创建必要的目录
	createDirectories(baseConfig)
	log.Println("✅ 目录结构创建完成")

	// 3. 初始化配置、日志与所有服务（按依赖顺序）
	if err := app.Initialize(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	container := di.GetContainer()
	log.Printf("✅ 所有服务初始化完成，服务数量: %d", len(container.GetNames()))

	// 4. 服务健康检查
	if err := performHealthCheck(); err != nil {
		log.Fatalf("❌ 服务健康检查失败: %v", err)
	}

	// 5. 确保每个角色都有头像
	ensureCharacterImages(baseConfig)

	// 6. 设置路由（只获取服务，不创建）
	router, err := api.SetupRouter()
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	log.Println("✅ 路由设置完成")

	// 7. 启动服务器并等待关闭信号
	log.Printf("🌐 服务器启动在端口 %s", baseConfig.Port)
	log.Printf("🔗 访问地址: http://localhost:%s", baseConfig.Port)
	log.Printf("🔗 答题页面: http://localhost:%s/quiz", baseConfig.Port)

	app.GetApp().SetRouter(router)
	if err := app.Run(); err != nil {
		log.Fatalf("❌ 服务器运行失败: %v", err)
	}

	log.Println("✅ 服务器优雅关闭完成")
}

// 健康检查函数
func performHealthCheck() error {
	container := di.GetContainer()

	// 检查关键服务是否已注册
	criticalServices := []string{"quiz", "predictor", "trainer", "progress", "stats"}

	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}

	// 模型未训练不是致命错误，提示即可
	if predictor, ok := container.Get("predictor").(*services.PredictorService); ok {
		if !predictor.Ready() {
			log.Println("⚠️ 模型工件不存在，预测接口将返回 503，请先训练模型")
		}
	}

	log.Println("✅ 服务健康检查通过")
	return nil
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		cfg.ModelDir,
		filepath.Join(cfg.DataDir, "stats"),
		cfg.LogDir,
		cfg.StaticDir,
		filepath.Join(cfg.StaticDir, "css"),
		filepath.Join(cfg.StaticDir, "js"),
		filepath.Join(cfg.StaticDir, "images", "characters"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
}

// ensureCharacterImages 为缺少头像的角色生成替代图像
func ensureCharacterImages(cfg *config.Config) {
	quizService, ok := di.GetContainer().Get("quiz").(*services.QuizService)
	if !ok {
		return
	}

	for _, character := range quizService.GetCharacters() {
		slug := strings.ToLower(strings.ReplaceAll(character.Name, " ", "_"))
		imagePath := filepath.Join(cfg.StaticDir, "images", "characters", slug+".jpg")

		if _, err := os.Stat(imagePath); !os.IsNotExist(err) {
			continue
		}

		log.Printf("角色头像不存在，生成替代图像: %s", imagePath)
		if err := generatePlaceholderImage(imagePath, character.Name); err != nil {
			log.Printf("警告: 无法生成替代图像: %v", err)
		}
	}
}

// generatePlaceholderImage 生成一个简单的彩色图像作为角色头像
// 颜色由角色名哈希决定，同名角色始终得到同样的图像
func generatePlaceholderImage(outputPath, name string) error {
	// 图像尺寸
	width, height := 512, 512

	// 根据名字派生基础色调
	var hash uint32
	for _, r := range name {
		hash = hash*31 + uint32(r)
	}
	baseR := uint8(60 + hash%140)
	baseG := uint8(60 + (hash/140)%140)
	baseB := uint8(120 + (hash/19600)%100)

	// 创建一个新的 RGBA 图像
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// 设置背景颜色
	bgColor := color.RGBA{baseR, baseG, baseB, 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	// 生成一个简单的图案 - 中心渐变圆
	center := image.Point{width / 2, height / 2}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x - center.X)
			dy := float64(y - center.Y)
			distance := math.Sqrt(dx*dx + dy*dy)

			if distance < float64(width/2) {
				// 渐变效果 - 距离越远越暗
				factor := 1.0 - (distance / float64(width/2) * 0.7)

				r := uint8(float64(baseR) + 80*factor)
				g := uint8(float64(baseG) + 60*factor)
				b := uint8(float64(baseB) + 30*factor)

				img.Set(x, y, color.RGBA{r, g, b, 255})
			}
		}
	}

	// 生成一个简单的边框
	borderWidth := 10
	borderColor := color.RGBA{baseR / 2, baseG / 2, baseB / 2, 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < borderWidth || x >= width-borderWidth ||
				y < borderWidth || y >= height-borderWidth {
				img.Set(x, y, borderColor)
			}
		}
	}

	// 保存为JPEG图像
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建图像文件失败: %w", err)
	}
	defer outputFile.Close()

	return jpeg.Encode(outputFile, img, &jpeg.Options{Quality: 90})
}
