// Package question 加载题库。题目除 q/ans 外的字段原样保留。
package question

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
)

//go:embed builtin.yaml
var builtinYAML []byte

type bankFile struct {
	Questions []map[string]any `yaml:"questions"`
}

// Load 从 YAML 文件加载题库
func Load(path string) ([]protocol.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 题库，每道题都必须有 q 和 ans
func Parse(data []byte) ([]protocol.Question, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	out := make([]protocol.Question, 0, len(f.Questions))
	for i, raw := range f.Questions {
		// 经 JSON 中转，复用 Question 的字段展开规则
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		var q protocol.Question
		if err := json.Unmarshal(b, &q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// Builtin 内置题库
func Builtin() []protocol.Question {
	qs, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin question bank: %v", err))
	}
	return qs
}
