package core

import (
	"fmt"
	"time"
)

// Slot 是比赛中的一个参与席位：对象 ID 加上该对象在本场比赛中的各项测量值。
// 列名后缀（ID_<k> / <attr>_<k>）的解析属于外部输入层，core 只接收解析后的结构。
type Slot struct {
	ObjectID string             // 参与对象的稳定标识（如队伍 ID）
	Values   map[string]float64 // 属性名 -> 本场测量值
}

// Match 是一场比赛（历史或待预测）。
// 历史比赛 Outcome 非 nil；待预测比赛 Outcome 为 nil，Slot.Values 可为空。
type Match struct {
	Time    time.Time // 可选的时间键，零值表示无时间信息
	Outcome *float64  // 比赛结果 y，训练必需，预测输入忽略
	Slots   []Slot    // 固定席位数的参与列表，席位顺序有语义
}

// Table 是比赛表：行 = 比赛，属性集与顺序由外部解析层声明。
// Attributes 的顺序是特征列顺序契约的上游来源，core 内不会重排。
type Table struct {
	Attributes []string
	Matches    []Match
}

// ObjectHistory 是单个对象跨场次收集到的测量历史。
// Rows 的每行与 Attrs 对齐；Times 与 Rows 等长（无时间信息时为空）。
type ObjectHistory struct {
	ObjectID string      `json:"object_id"`
	Attrs    []string    `json:"attrs"`
	Rows     [][]float64 `json:"rows"`
	Times    []time.Time `json:"times,omitempty"`
}

// Len 返回历史观测条数。
func (h *ObjectHistory) Len() int { return len(h.Rows) }

// Column 返回指定属性的一列测量值；属性不存在时报 schema 错误。
func (h *ObjectHistory) Column(attr string) ([]float64, error) {
	idx := -1
	for i, a := range h.Attrs {
		if a == attr {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, NewDomainError(ModuleEnsemble, ErrorCodeSchema,
			fmt.Sprintf("attribute %q not present in history of object %q", attr, h.ObjectID))
	}
	col := make([]float64, len(h.Rows))
	for i, row := range h.Rows {
		col[i] = row[idx]
	}
	return col, nil
}

// Objects 返回表中出现过的所有对象 ID（按首次出现顺序）。
func (t *Table) Objects() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range t.Matches {
		for _, s := range m.Slots {
			if !seen[s.ObjectID] {
				seen[s.ObjectID] = true
				ids = append(ids, s.ObjectID)
			}
		}
	}
	return ids
}

// History 按对象 ID 汇总该对象在全表中的测量历史。
// 对象从未出现 -> INSUFFICIENT_DATA；出现但缺少已声明属性 -> SCHEMA。
func (t *Table) History(objectID string) (*ObjectHistory, error) {
	h := &ObjectHistory{ObjectID: objectID, Attrs: t.Attributes}
	for _, m := range t.Matches {
		for _, s := range m.Slots {
			if s.ObjectID != objectID {
				continue
			}
			row := make([]float64, len(t.Attributes))
			for i, attr := range t.Attributes {
				v, ok := s.Values[attr]
				if !ok {
					return nil, NewDomainError(ModuleEnsemble, ErrorCodeSchema,
						fmt.Sprintf("attribute %q missing for object %q", attr, objectID))
				}
				row[i] = v
			}
			h.Rows = append(h.Rows, row)
			h.Times = append(h.Times, m.Time)
		}
	}
	if len(h.Rows) == 0 {
		return nil, NewDomainError(ModuleEnsemble, ErrorCodeInsufficientData,
			fmt.Sprintf("object %q has no historical measurements", objectID))
	}
	return h, nil
}
