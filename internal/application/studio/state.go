// Package studio 实现书稿工作台的工作流控制器
package studio

import (
	"fmt"

	apperrors "aipen-studio-api/pkg/errors"
)

// State 工作台顶层状态
type State string

const (
	StateHome      State = "home"
	StateOutlining State = "outlining"
	StateWriting   State = "writing"
	StateViewer    State = "viewer"
	StateLibrary   State = "library"
	StateHistory   State = "history"
	StateAbout     State = "about"
	StateDeveloper State = "developer"
)

// ParseState 解析状态字符串
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateHome, StateOutlining, StateWriting, StateViewer,
		StateLibrary, StateHistory, StateAbout, StateDeveloper:
		return State(s), nil
	default:
		return "", apperrors.New(apperrors.CodeInvalidParam, fmt.Sprintf("unknown state: %s", s))
	}
}

// navTransitions 导航转移表，只覆盖用户主动导航
// 写作流水线内部的状态推进（outlining→writing→viewer）不走这张表
var navTransitions = map[State][]State{
	StateHome:      {StateLibrary, StateHistory, StateAbout, StateDeveloper},
	StateOutlining: {StateHome},
	StateWriting:   {StateHome},
	StateViewer:    {StateHome, StateLibrary, StateHistory},
	StateLibrary:   {StateHome},
	StateHistory:   {StateHome, StateViewer},
	StateAbout:     {StateHome},
	StateDeveloper: {StateHome},
}

// CanNavigate 检查从 from 到 to 的导航是否合法
func CanNavigate(from, to State) bool {
	for _, s := range navTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
