// Package randutil 提供并行分支的随机源派生工具。
package randutil

import "golang.org/x/exp/rand"

// splitmix64 的混淆常数，用于把 (seed, branch) 打散为互不相关的子种子。
const gamma = 0x9e3779b97f4a7c15

// Split 为第 branch 个并行分支派生独立的随机源。
// 同一 (seed, branch) 永远得到同一序列；不同 branch 的序列互不相关，
// 并行迭代绝不共享或复用彼此的抽样，保证统计独立性。
func Split(seed uint64, branch int) rand.Source {
	z := seed + uint64(branch+1)*gamma
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return rand.NewSource(z ^ (z >> 31))
}
