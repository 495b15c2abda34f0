// Package bagkit 是一个两层贝叶斯重采样-袋装预测工具包（Bagging Kit）。
//
// 设计要点：
// - 两层集成: 第一层从稀疏历史拟合属性后验并抽样 N 份对象模型，第二层对每份抽样各训练一个预测模型
// - 全网格预测: 新比赛重新抽样 K 份特征向量，N 个模型 × K 个向量的预测全集连同来源索引一起返回
// - 回调可插拔: 训练与预测是调用方提供的不透明回调，分布族与变换规则经注册表扩展
package bagkit

import (
	"github.com/rushteam/bagkit/bagging"
	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/ensemble"
	"github.com/rushteam/bagkit/predict"
)

// 轻量 facade：便于用户直接 import "bagkit" 使用核心抽象。
type Match = core.Match
type Slot = core.Slot
type Table = core.Table
type PredictionRecord = core.PredictionRecord
type Trainer = core.Trainer
type Predictor = core.Predictor

type ModelSpec = ensemble.ModelSpec
type Fitter = ensemble.Fitter
type Ensemble = ensemble.Ensemble

type BaggingEngine = bagging.Engine
type PredictEngine = predict.Engine
