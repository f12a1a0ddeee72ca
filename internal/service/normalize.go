package service

import (
	"coursegen_backend/internal/model"
	"coursegen_backend/internal/util"
	"strings"
)

const (
	DefaultModuleCount = 5
	MaxModuleCount     = 20
)

// NormalizeRequest 将原始请求规范化为稳定形式：补默认值、收敛越界值。
// 纯函数，对已规范化的请求再次调用结果不变。
func NormalizeRequest(raw model.GenerationRequest) (model.GenerationRequest, error) {
	fields := map[string]string{}

	req := raw
	req.Topic = strings.TrimSpace(raw.Topic)
	if req.Topic == "" {
		fields["topic"] = "must not be empty"
	}

	switch {
	case raw.ModuleCount < 0:
		fields["moduleCount"] = "must not be negative"
	case raw.ModuleCount == 0:
		req.ModuleCount = DefaultModuleCount
	case raw.ModuleCount > MaxModuleCount:
		req.ModuleCount = MaxModuleCount
	}

	// 难度大小写不敏感地归一；无法识别的值原样保留，
	// 由风格准则选择阶段回退到 Intermediate 并记录日志。
	req.Difficulty = canonicalDifficulty(raw.Difficulty)

	if strings.TrimSpace(raw.RequesterID) == "" {
		fields["requesterId"] = "must not be empty"
	}

	if len(fields) > 0 {
		return model.GenerationRequest{}, util.NewValidationError(fields)
	}
	return req, nil
}

func canonicalDifficulty(d model.Difficulty) model.Difficulty {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return model.Intermediate
	}
	switch strings.ToLower(s) {
	case "beginner":
		return model.Beginner
	case "intermediate":
		return model.Intermediate
	case "advanced":
		return model.Advanced
	}
	return model.Difficulty(s)
}
