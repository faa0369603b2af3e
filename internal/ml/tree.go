// internal/ml/tree.go
package ml

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode 决策树节点
// 内部节点按 features[Feature] <= Threshold 走左子树
// 叶子节点保存训练样本的类别计数
type treeNode struct {
	Feature     int       `json:"feature,omitempty"`
	Threshold   float64   `json:"threshold,omitempty"`
	Left        *treeNode `json:"left,omitempty"`
	Right       *treeNode `json:"right,omitempty"`
	Leaf        bool      `json:"leaf,omitempty"`
	ClassCounts []int     `json:"class_counts,omitempty"`
}

// DecisionTree 一棵 CART 分类树（基尼不纯度）
type DecisionTree struct {
	Root       *treeNode `json:"root"`
	NumClasses int       `json:"num_classes"`
}

// buildTreeParams 建树参数
type buildTreeParams struct {
	numClasses       int
	maxDepth         int
	minLeafSize      int
	featuresPerSplit int
	rng              *rand.Rand
}

// buildTree 在给定样本子集上递归建树
func buildTree(samples [][]int, labels []int, params buildTreeParams) *DecisionTree {
	indices := make([]int, len(samples))
	for i := range indices {
		indices[i] = i
	}

	root := growNode(samples, labels, indices, 0, params)
	return &DecisionTree{Root: root, NumClasses: params.numClasses}
}

// growNode 生成单个节点，无法继续分裂时产出叶子
func growNode(samples [][]int, labels []int, indices []int, depth int, params buildTreeParams) *treeNode {
	counts := countClasses(labels, indices, params.numClasses)

	if depth >= params.maxDepth || len(indices) <= params.minLeafSize || isPure(counts) {
		return &treeNode{Leaf: true, ClassCounts: counts}
	}

	feature, threshold, ok := bestSplit(samples, labels, indices, params)
	if !ok {
		return &treeNode{Leaf: true, ClassCounts: counts}
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if float64(samples[i][feature]) <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return &treeNode{Leaf: true, ClassCounts: counts}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growNode(samples, labels, leftIdx, depth+1, params),
		Right:     growNode(samples, labels, rightIdx, depth+1, params),
	}
}

// bestSplit 在随机特征子集上寻找基尼增益最大的切分点
func bestSplit(samples [][]int, labels []int, indices []int, params buildTreeParams) (int, float64, bool) {
	numFeatures := len(samples[indices[0]])
	candidates := params.rng.Perm(numFeatures)
	if params.featuresPerSplit < numFeatures {
		candidates = candidates[:params.featuresPerSplit]
	}

	parentGini := giniImpurity(countClasses(labels, indices, params.numClasses), len(indices))

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	for _, feature := range candidates {
		// 去重后的取值，切分点取相邻取值的中点
		values := make([]int, 0, len(indices))
		seen := make(map[int]bool)
		for _, i := range indices {
			v := samples[i][feature]
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		if len(values) < 2 {
			continue
		}
		sort.Ints(values)

		for k := 0; k+1 < len(values); k++ {
			threshold := (float64(values[k]) + float64(values[k+1])) / 2

			leftCounts := make([]int, params.numClasses)
			rightCounts := make([]int, params.numClasses)
			leftTotal, rightTotal := 0, 0

			for _, i := range indices {
				if float64(samples[i][feature]) <= threshold {
					leftCounts[labels[i]]++
					leftTotal++
				} else {
					rightCounts[labels[i]]++
					rightTotal++
				}
			}

			if leftTotal == 0 || rightTotal == 0 {
				continue
			}

			total := float64(leftTotal + rightTotal)
			childGini := float64(leftTotal)/total*giniImpurity(leftCounts, leftTotal) +
				float64(rightTotal)/total*giniImpurity(rightCounts, rightTotal)

			gain := parentGini - childGini
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	if bestFeature < 0 || bestGain <= 1e-12 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// predictCounts 返回样本落入叶子的类别计数
func (t *DecisionTree) predictCounts(features []int) []int {
	node := t.Root
	for node != nil && !node.Leaf {
		if float64(features[node.Feature]) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return make([]int, t.NumClasses)
	}
	return node.ClassCounts
}

// predictProba 返回叶子内类别计数归一化后的概率分布
func (t *DecisionTree) predictProba(features []int) []float64 {
	counts := t.predictCounts(features)
	proba := make([]float64, t.NumClasses)

	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return proba
	}

	for i, c := range counts {
		proba[i] = float64(c) / float64(total)
	}
	return proba
}

// countClasses 统计样本子集的类别分布
func countClasses(labels []int, indices []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, i := range indices {
		counts[labels[i]]++
	}
	return counts
}

// isPure 判断子集是否只剩单一类别
func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// giniImpurity 基尼不纯度 1 - Σp²
func giniImpurity(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}

	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}

// defaultFeaturesPerSplit 默认每次分裂考察 √n 个特征
func defaultFeaturesPerSplit(numFeatures int) int {
	k := int(math.Sqrt(float64(numFeatures)))
	if k < 1 {
		k = 1
	}
	return k
}
