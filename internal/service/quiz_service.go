package service

import (
	"context"
	"coursegen_backend/internal/model"
	"coursegen_backend/internal/util"
	"coursegen_backend/pkg/logger"
	"coursegen_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// QuizSize 每个模块固定的选择题数量
const QuizSize = 5

type QuizService struct {
	ai ChatClient
}

func NewQuizService(ai ChatClient) *QuizService {
	return &QuizService{ai: ai}
}

type quizPayload struct {
	Questions []model.QuizQuestion `json:"questions"`
}

// GenerateQuiz 基于模块最终文本生成恰好 QuizSize 道选择题。
// 生成失败或产出不足时用确定性兜底题补齐，返回值总是 QuizSize 道合规题目。
func (s *QuizService) GenerateQuiz(ctx context.Context, moduleTitle, description string, difficulty model.Difficulty) []model.QuizQuestion {
	raw, err := s.requestQuestions(ctx, moduleTitle, description, difficulty)
	if err != nil {
		logger.Log.Warn("Quiz generation failed, using fallback questions",
			zap.String("module", moduleTitle), zap.Error(err))
	}

	valid := make([]model.QuizQuestion, 0, QuizSize)
	for _, q := range raw {
		if repaired, ok := SanitizeQuestion(q); ok {
			valid = append(valid, repaired)
			if len(valid) == QuizSize {
				break
			}
		}
	}

	for len(valid) < QuizSize {
		valid = append(valid, fallbackQuestion(len(valid), moduleTitle, difficulty))
		monitoring.QuizFallbackQuestions.Inc()
	}

	return valid
}

func (s *QuizService) requestQuestions(ctx context.Context, moduleTitle, description string, difficulty model.Difficulty) ([]model.QuizQuestion, error) {
	guideline := guidelineFor(difficulty)

	prompt := fmt.Sprintf(`Create exactly %d multiple-choice questions testing the module below.

Style guideline: %s

Output exactly this JSON shape and nothing else:
{"questions": [{"question": string, "options": [string, string, string, string], "answer": string, "explanation": string}]}

Rules:
- Each question has exactly 4 distinct options.
- "answer" must be copied verbatim from "options".
- Ground every question in the module text, not outside knowledge.

Module: %q

Module text:
%s`, QuizSize, guideline, moduleTitle, description)

	var parsed quizPayload
	err := util.Retry(ctx, util.RetryOptions{MaxRetries: maxGenRetries, Backoff: retryBackoff}, func() error {
		out, err := s.ai.Chat(ctx, ChatRequest{
			Messages: []AIChatMessage{
				{Role: "system", Content: "You write assessment questions as strict JSON. You output only valid JSON."},
				{Role: "user", Content: prompt},
			},
			Temperature: 0.3,
			MaxTokens:   2500,
		})
		if err != nil {
			return err
		}

		cleaned := ExtractJSON(out)
		if !strings.HasSuffix(strings.TrimSpace(cleaned), "}") {
			return util.ErrTruncatedJSON
		}

		var p quizPayload
		if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
			return err
		}
		if len(p.Questions) == 0 {
			return errors.New("quiz response has no questions")
		}
		parsed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parsed.Questions, nil
}

// SanitizeQuestion 校验并修复单道题。
// 选项去重且必须恰好 4 个；答案不在选项中时替换为 options[0]（保留原系统行为）；
// 解释缺失时补默认文案。无法修复的题返回 false。
func SanitizeQuestion(q model.QuizQuestion) (model.QuizQuestion, bool) {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return model.QuizQuestion{}, false
	}

	seen := make(map[string]bool, len(q.Options))
	options := make([]string, 0, 4)
	for _, opt := range q.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		options = append(options, opt)
		if len(options) == 4 {
			break
		}
	}
	if len(options) != 4 {
		return model.QuizQuestion{}, false
	}
	q.Options = options

	q.Answer = strings.TrimSpace(q.Answer)
	if !containsString(q.Options, q.Answer) {
		q.Answer = q.Options[0]
	}

	if strings.TrimSpace(q.Explanation) == "" {
		q.Explanation = fmt.Sprintf("The correct answer is %q.", q.Answer)
	}

	return q, true
}

var fallbackStems = map[model.Difficulty]string{
	model.Beginner:     "Which statement best describes what %q covers?",
	model.Intermediate: "When applying the ideas from %q, which approach is most appropriate?",
	model.Advanced:     "Which trade-off discussed in %q matters most in practice?",
}

// fallbackQuestion 按难度档位确定性合成兜底题，保证模块测验结构完整
func fallbackQuestion(index int, moduleTitle string, difficulty model.Difficulty) model.QuizQuestion {
	stem, ok := fallbackStems[difficulty]
	if !ok {
		stem = fallbackStems[model.Intermediate]
	}

	options := []string{
		fmt.Sprintf("The concepts and techniques presented in %q", moduleTitle),
		"A topic unrelated to this module",
		"A deprecated approach no longer in use",
		"None of the material in this course",
	}

	return model.QuizQuestion{
		Question:    fmt.Sprintf("Review %d: %s", index+1, fmt.Sprintf(stem, moduleTitle)),
		Options:     options,
		Answer:      options[0],
		Explanation: fmt.Sprintf("This review question checks that you engaged with the material in %q.", moduleTitle),
	}
}
