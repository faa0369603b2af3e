// internal/ml/forest.go
package ml

import (
	"fmt"
	"math/rand"
	"time"
)

// RandomForest 随机森林分类器
// 预测结果是所有树概率分布的平均值，命中类别取 argmax
type RandomForest struct {
	Trees       []*DecisionTree `json:"trees"`
	NumClasses  int             `json:"num_classes"`
	NumFeatures int             `json:"num_features"`
	Seed        int64           `json:"seed"`
	TrainedAt   time.Time       `json:"trained_at"`
}

// ForestOptions 训练选项
type ForestOptions struct {
	NumTrees    int   // 树的数量，默认 100
	MaxDepth    int   // 最大深度，默认 16
	MinLeafSize int   // 叶子最小样本数，默认 1
	Seed        int64 // 随机种子，相同种子训练结果可复现
}

// TrainForest 在整数编码的样本上训练随机森林
func TrainForest(samples [][]int, labels []int, numClasses int, opts ForestOptions) (*RandomForest, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("训练集为空")
	}
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("样本数 %d 与标签数 %d 不一致", len(samples), len(labels))
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("至少需要 2 个类别，实际 %d", numClasses)
	}

	numFeatures := len(samples[0])
	for i, s := range samples {
		if len(s) != numFeatures {
			return nil, fmt.Errorf("第 %d 行特征数 %d 与首行 %d 不一致", i, len(s), numFeatures)
		}
	}

	if opts.NumTrees <= 0 {
		opts.NumTrees = 100
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 16
	}
	if opts.MinLeafSize <= 0 {
		opts.MinLeafSize = 1
	}

	masterRng := rand.New(rand.NewSource(opts.Seed))

	forest := &RandomForest{
		Trees:       make([]*DecisionTree, 0, opts.NumTrees),
		NumClasses:  numClasses,
		NumFeatures: numFeatures,
		Seed:        opts.Seed,
		TrainedAt:   time.Now(),
	}

	for i := 0; i < opts.NumTrees; i++ {
		treeRng := rand.New(rand.NewSource(masterRng.Int63()))

		// 自举采样
		bootSamples := make([][]int, len(samples))
		bootLabels := make([]int, len(labels))
		for j := range bootSamples {
			k := treeRng.Intn(len(samples))
			bootSamples[j] = samples[k]
			bootLabels[j] = labels[k]
		}

		tree := buildTree(bootSamples, bootLabels, buildTreeParams{
			numClasses:       numClasses,
			maxDepth:         opts.MaxDepth,
			minLeafSize:      opts.MinLeafSize,
			featuresPerSplit: defaultFeaturesPerSplit(numFeatures),
			rng:              treeRng,
		})
		forest.Trees = append(forest.Trees, tree)
	}

	return forest, nil
}

// PredictProba 返回每个类别的预测概率
func (f *RandomForest) PredictProba(features []int) ([]float64, error) {
	if len(features) != f.NumFeatures {
		return nil, fmt.Errorf("特征数 %d 与训练时的 %d 不一致", len(features), f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("森林中没有树")
	}

	proba := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		treeProba := tree.predictProba(features)
		for i, p := range treeProba {
			proba[i] += p
		}
	}

	for i := range proba {
		proba[i] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict 返回编码后的预测类别
// 概率并列时取编码较小的类别
func (f *RandomForest) Predict(features []int) (int, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return 0, err
	}

	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return best, nil
}
