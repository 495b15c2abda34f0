package core

import "context"

// TrainedModel 是用户训练回调返回的不透明模型工件。
// 引擎只负责按 draw 序号保存与传递，从不解读其内部结构。
type TrainedModel = any

// TrainingTable 是一次 draw 变换后的完整训练表。
// Columns 的顺序是硬性契约：训练表与之后所有查询表必须逐列一致。
type TrainingTable struct {
	Columns []string
	Rows    [][]float64
	Outcome []float64 // 与 Rows 等长
}

// FeatureTable 是预测输入的特征表（无结果列），列布局与训练表一致。
type FeatureTable struct {
	Columns []string
	Rows    [][]float64
}

// Trainer 是用户提供的训练回调：一张变换后的训练表 -> 一个不透明模型。
type Trainer func(ctx context.Context, table *TrainingTable) (TrainedModel, error)

// Predictor 是用户提供的预测回调：一个不透明模型 + 一张特征表 -> 每行一个预测值。
type Predictor func(ctx context.Context, model TrainedModel, features *FeatureTable) ([]float64, error)

// PredictionRecord 是预测输出的原子单元：一组预测值加上来源索引。
// BaggedModelIndex / TestSetIndex 均为 1 起始，(j,k) 按行主序排列即可还原完整网格。
type PredictionRecord struct {
	Predictions      []float64
	BaggedModelIndex int // 所用袋装模型的 draw 序号 j ∈ [1..num_models]
	TestSetIndex     int // 所用测试特征向量的 draw 序号 k ∈ [1..num_test_draws]
}
