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
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// Phase A 输出低于该长度视为过短，触发重试
	minProseLength = 500
	// 首次调用之外的重试上限，LLM 与视频检索共用
	maxGenRetries = 2

	retryBackoff = 400 * time.Millisecond
)

var errProseTooShort = errors.New("prose output too short")

// titlePrefixes 轮换的教学式标题前缀。moduleCount 不超过前缀数时标题不重复。
var titlePrefixes = []string{
	"Introduction to",
	"Getting Started with",
	"Core Concepts of",
	"Understanding",
	"Working with",
	"Practical",
	"Exploring",
	"Applied",
	"Deep Dive into",
	"Patterns and Techniques in",
	"Problem Solving with",
	"Real-World",
	"Designing with",
	"Optimizing",
	"Testing and Debugging",
	"Scaling",
	"Integrating",
	"Best Practices for",
	"Common Pitfalls in",
	"Advanced Topics in",
}

// SectionLabels 模块正文的固定段落标签，顺序即呈现顺序
var SectionLabels = []string{
	"Description",
	"Introduction",
	"Core Concepts",
	"Examples",
	"Best Practices",
	"Common Mistakes",
	"Key Takeaways",
}

var difficultyGuidelines = map[model.Difficulty]string{
	model.Beginner:     "Use plain vocabulary and short sentences. Explain every term the first time it appears. Prefer everyday analogies over technical depth. Assume no prior knowledge.",
	model.Intermediate: "Assume working familiarity with the basics. Balance analogies with technical precision. Introduce standard terminology and realistic scenarios.",
	model.Advanced:     "Assume strong prior knowledge. Favor technical depth, edge cases and trade-off analysis over analogies. Use precise domain terminology throughout.",
}

// ModuleContent Phase B 要求的固定 JSON 形状
type ModuleContent struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Sections    []model.Section      `json:"sections"`
	Quiz        []model.QuizQuestion `json:"quiz"`
	Videos      []model.VideoRef     `json:"videos"`
}

type ContentService struct {
	ai ChatClient
}

func NewContentService(ai ChatClient) *ContentService {
	return &ContentService{ai: ai}
}

// ModuleTitle 由主题和序号确定性地导出模块标题
func ModuleTitle(topic string, index int) string {
	prefix := titlePrefixes[index%len(titlePrefixes)]
	return fmt.Sprintf("%s %s", prefix, topic)
}

// guidelineFor 选择难度风格准则；无法识别的档位回退到 Intermediate 并记录
func guidelineFor(difficulty model.Difficulty) string {
	if g, ok := difficultyGuidelines[difficulty]; ok {
		return g
	}
	logger.Log.Warn("Unrecognized difficulty, falling back to Intermediate",
		zap.String("difficulty", string(difficulty)))
	return difficultyGuidelines[model.Intermediate]
}

// GenerateModule 两阶段生成一个模块的结构化内容。
// Phase A 生成自由文本讲义，Phase B 将其转换为固定 JSON 形状；
// Phase B 彻底失败时由正则抽取兜底，保证返回内容非空。
// 仅当 Phase A 也无产出时返回错误。
func (s *ContentService) GenerateModule(ctx context.Context, topic string, index int, difficulty model.Difficulty) (ModuleContent, model.ContentOrigin, error) {
	title := ModuleTitle(topic, index)

	prose, err := s.generateProse(ctx, topic, title, difficulty)
	if err != nil {
		return ModuleContent{}, "", fmt.Errorf("module %d prose generation: %w", index, err)
	}

	content, err := s.structureProse(ctx, title, prose)
	if err != nil {
		logger.Log.Warn("Structuring failed, extracting sections from prose",
			zap.Int("module", index), zap.Error(err))
		monitoring.ModuleFallbacks.Inc()
		return fallbackContent(title, prose), model.OriginFallback, nil
	}

	if strings.TrimSpace(content.Title) == "" {
		content.Title = title
	}
	// 占位字段统一置空，由后续阶段填充
	content.Quiz = nil
	content.Videos = nil

	return content, model.OriginValid, nil
}

// PlaceholderContent 模块级彻底失败时的占位内容，保证课程结构完整
func PlaceholderContent(topic string, index int) ModuleContent {
	title := ModuleTitle(topic, index)
	sections := make([]model.Section, 0, len(SectionLabels))
	for _, label := range SectionLabels {
		sections = append(sections, model.Section{
			Section: label,
			Text:    placeholderSentence(label, title),
		})
	}
	return ModuleContent{Title: title, Sections: sections}
}

func (s *ContentService) generateProse(ctx context.Context, topic, title string, difficulty model.Difficulty) (string, error) {
	guideline := guidelineFor(difficulty)

	prompt := fmt.Sprintf(`Write the teaching material for one module of a course about %q.
Module title: %q

Style guideline: %s

Produce the following labeled sections as free text, each starting with the label on its own line:
%s

Be thorough and concrete. Do not output JSON or markdown tables.`,
		topic, title, guideline, strings.Join(SectionLabels, "\n"))

	var best string
	err := util.Retry(ctx, util.RetryOptions{MaxRetries: maxGenRetries, Backoff: retryBackoff}, func() error {
		out, err := s.ai.Chat(ctx, ChatRequest{
			Messages: []AIChatMessage{
				{Role: "system", Content: "You are an expert course author. You write clear, accurate educational content."},
				{Role: "user", Content: prompt},
			},
			Temperature: 0.7,
			MaxTokens:   3000,
		})
		if err != nil {
			return err
		}
		if len(out) > len(best) {
			best = out
		}
		if len(out) < minProseLength {
			return errProseTooShort
		}
		return nil
	})

	// 重试耗尽后接受部分内容，而不是让模块直接失败
	if best != "" {
		return best, nil
	}
	return "", err
}

func (s *ContentService) structureProse(ctx context.Context, title, prose string) (ModuleContent, error) {
	prompt := fmt.Sprintf(`Convert the module text below into exactly this JSON shape:
{"title": string, "description": string, "sections": [{"section": string, "text": string}], "quiz": [], "videos": []}

Rules:
- "sections" must contain one entry per labeled section, in the original order.
- Preserve all text verbatim. Do not summarize, shorten or truncate anything.
- Output only the JSON object, nothing else.

Module title: %q

Module text:
%s`, title, prose)

	var result ModuleContent
	err := util.Retry(ctx, util.RetryOptions{MaxRetries: maxGenRetries, Backoff: retryBackoff}, func() error {
		out, err := s.ai.Chat(ctx, ChatRequest{
			Messages: []AIChatMessage{
				{Role: "system", Content: "You convert prose into JSON without losing content. You output only valid JSON."},
				{Role: "user", Content: prompt},
			},
			Temperature: 0.0,
			MaxTokens:   4000,
		})
		if err != nil {
			return err
		}

		cleaned := ExtractJSON(out)
		// 不以右花括号结尾视为截断，不做解析尝试
		if !strings.HasSuffix(strings.TrimSpace(cleaned), "}") {
			return util.ErrTruncatedJSON
		}

		var mc ModuleContent
		if err := json.Unmarshal([]byte(cleaned), &mc); err != nil {
			return err
		}
		if len(mc.Sections) == 0 {
			return errors.New("structured response has no sections")
		}
		result = mc
		return nil
	})
	if err != nil {
		return ModuleContent{}, err
	}
	return result, nil
}

// ExtractJSON 剥离模型输出外层的 markdown 代码围栏与散文
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = rest[:end]
		} else {
			s = rest
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// fallbackContent 直接从 Phase A 文本逐段正则抽取，缺失段落用占位句补齐
func fallbackContent(title, prose string) ModuleContent {
	sections := make([]model.Section, 0, len(SectionLabels))
	for _, label := range SectionLabels {
		text := extractSection(prose, label)
		if text == "" {
			text = placeholderSentence(label, title)
		}
		sections = append(sections, model.Section{Section: label, Text: text})
	}
	return ModuleContent{Title: title, Sections: sections}
}

var sectionAlternation = func() string {
	quoted := make([]string, 0, len(SectionLabels))
	for _, l := range SectionLabels {
		quoted = append(quoted, regexp.QuoteMeta(l))
	}
	return strings.Join(quoted, "|")
}()

func extractSection(prose, label string) string {
	// 标签可能带 markdown 修饰（#、**）或冒号；匹配到下一个标签或文末
	pattern := fmt.Sprintf(`(?is)(?:^|\n)[#*\s]*%s[:\s*]*\n?(.*?)(?:\n[#*\s]*(?:%s)[:\s*]*(?:\n|$)|$)`,
		regexp.QuoteMeta(label), sectionAlternation)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(prose)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func placeholderSentence(label, title string) string {
	return fmt.Sprintf("%s for %s is not available yet and will be expanded in a future revision.", label, title)
}
