// cmd/trainer/main.go
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/Corphon/SortingHatQuiz/internal/services"
	"github.com/Corphon/SortingHatQuiz/internal/storage"
)

func main() {
	datasetPath := flag.String("dataset", "data/quiz_training_data.xlsx", "训练工作簿路径")
	modelDir := flag.String("out", "data/saved_model", "模型工件输出目录")
	trees := flag.Int("trees", 100, "随机森林树数量")
	seed := flag.Int64("seed", 42, "随机种子，相同种子得到相同模型")
	timeout := flag.Duration("timeout", 10*time.Minute, "训练超时时间")
	flag.Parse()

	log.Println("🚀 启动模型训练...")
	log.Printf("📄 数据集: %s", *datasetPath)
	log.Printf("📁 输出目录: %s", *modelDir)
	log.Printf("🌲 树数量: %d, 种子: %d", *trees, *seed)

	store, err := storage.NewFileStorage(*modelDir)
	if err != nil {
		log.Fatalf("❌ 初始化模型存储失败: %v", err)
	}

	trainer := services.NewTrainerService(store, *datasetPath, *trees, *seed)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := trainer.Train(ctx, nil)
	if err != nil {
		log.Fatalf("❌ 训练失败: %v", err)
	}

	log.Println("✅ 训练完成")
	log.Printf("📊 样本行数: %d（跳过 %d 行格式错误的数据）", result.Rows, result.Skipped)
	log.Printf("🏷️ 类别: %s", strings.Join(result.Classes, ", "))
	log.Printf("🌲 树数量: %d", result.Trees)
	log.Printf("🎯 训练集准确率: %.2f%%", result.TrainAccuracy*100)
	for _, class := range result.Classes {
		log.Printf("   - %s: %.2f%%", class, result.ClassAccuracy[class]*100)
	}
	log.Printf("⏱️ 耗时: %s", result.Duration.Round(time.Millisecond))
	log.Printf("💾 工件已保存到 %s: %s, %s, %s",
		*modelDir, services.ModelFile, services.EncodersFile, services.TargetEncoderFile)
}
