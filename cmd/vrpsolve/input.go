package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vrpsolver/vrpsolver/internal/service"
	"github.com/vrpsolver/vrpsolver/pkg/model"
	"gopkg.in/yaml.v3"
)

// problemFile 请求信封格式：{"problem": {...}, "problem_type": "cvrp"}
type problemFile struct {
	Problem     *model.RoutingProblem `json:"problem" yaml:"problem"`
	ProblemType string                `json:"problem_type" yaml:"problem_type"`
}

// loadRequest 读取 JSON 或 YAML 问题文件，支持信封格式和裸问题
//
// 问题类型优先取命令行参数，其次取信封中的 problem_type，都没有时按是否带时间窗推断。
func loadRequest(path, variantFlag string) (service.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.Request{}, fmt.Errorf("读取问题文件失败: %w", err)
	}

	var (
		envelope problemFile
		problem  model.RoutingProblem
	)
	unmarshal := json.Unmarshal
	if isYAML(path) {
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(data, &envelope); err != nil {
		return service.Request{}, fmt.Errorf("解析问题文件 %s 失败: %w", path, err)
	}
	if envelope.Problem == nil {
		if err := unmarshal(data, &problem); err != nil {
			return service.Request{}, fmt.Errorf("解析问题文件 %s 失败: %w", path, err)
		}
		envelope.Problem = &problem
	}

	variant, err := resolveVariant(variantFlag, envelope.ProblemType, envelope.Problem)
	if err != nil {
		return service.Request{}, err
	}

	return service.Request{
		Name:    filepath.Base(path),
		Problem: envelope.Problem,
		Variant: variant,
	}, nil
}

func resolveVariant(flag, fromFile string, p *model.RoutingProblem) (model.Variant, error) {
	for _, s := range []string{flag, fromFile} {
		if s == "" {
			continue
		}
		v, ok := model.ParseVariant(s)
		if !ok {
			return "", fmt.Errorf("不支持的问题类型 '%s'", s)
		}
		return v, nil
	}
	if p.TimeWindows != nil {
		return model.VariantTimeWindowed, nil
	}
	return model.VariantCapacitated, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// legacySolution 旧接口的响应格式
type legacySolution struct {
	Visits   [][]int `json:"visits"`
	Distance float64 `json:"distance"`
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
