package service

import (
	"context"
	"coursegen_backend/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// fakeChat 按调用温度区分管线阶段：0.7 讲义、0.0 结构化、0.3 测验
type fakeChat struct {
	mu sync.Mutex

	proseFn     func(call int) (string, error)
	structureFn func(call int, prose string) (string, error)
	quizFn      func(call int) (string, error)

	proseCalls     int
	structureCalls int
	quizCalls      int
}

func (f *fakeChat) Chat(_ context.Context, req ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Temperature {
	case 0.7:
		f.proseCalls++
		if f.proseFn == nil {
			return sampleProse(), nil
		}
		return f.proseFn(f.proseCalls)
	case 0.0:
		f.structureCalls++
		if f.structureFn == nil {
			return sampleStructuredJSON(), nil
		}
		return f.structureFn(f.structureCalls, lastUserMessage(req))
	case 0.3:
		f.quizCalls++
		if f.quizFn == nil {
			return sampleQuizJSON(QuizSize), nil
		}
		return f.quizFn(f.quizCalls)
	}
	return "", fmt.Errorf("unexpected temperature %v", req.Temperature)
}

func lastUserMessage(req ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// sampleProse 带全部段落标签且超过 minProseLength 的讲义文本
func sampleProse() string {
	var b strings.Builder
	for _, label := range SectionLabels {
		b.WriteString(label + "\n")
		b.WriteString(strings.Repeat(fmt.Sprintf("Detailed material about %s. ", strings.ToLower(label)), 4))
		b.WriteString("\n\n")
	}
	return b.String()
}

func sampleStructuredJSON() string {
	content := ModuleContent{Title: "Structured Module"}
	for _, label := range SectionLabels {
		content.Sections = append(content.Sections, model.Section{
			Section: label,
			Text:    "Structured text for " + label + ".",
		})
	}
	data, _ := json.Marshal(content)
	return string(data)
}

func sampleQuizJSON(n int) string {
	payload := quizPayload{}
	for i := 0; i < n; i++ {
		opts := []string{
			fmt.Sprintf("Correct answer %d", i),
			fmt.Sprintf("Distractor %d-a", i),
			fmt.Sprintf("Distractor %d-b", i),
			fmt.Sprintf("Distractor %d-c", i),
		}
		payload.Questions = append(payload.Questions, model.QuizQuestion{
			Question:    fmt.Sprintf("Question %d?", i),
			Options:     opts,
			Answer:      opts[0],
			Explanation: "Because the module says so.",
		})
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

type fakeSearcher struct {
	mu sync.Mutex

	searchFn func(call int, query string, max int64) ([]model.VideoRef, error)
	verifyFn func(ids []string) (map[string]VideoDetail, error)

	searchCalls int
	verifyCalls int
}

func (f *fakeSearcher) Search(_ context.Context, query string, max int64) ([]model.VideoRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchFn == nil {
		return nil, errors.New("search not configured")
	}
	return f.searchFn(f.searchCalls, query, max)
}

func (f *fakeSearcher) Verify(_ context.Context, ids []string) (map[string]VideoDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyFn == nil {
		return nil, errors.New("verify not configured")
	}
	return f.verifyFn(ids)
}

func candidateRef(id string) model.VideoRef {
	return model.VideoRef{
		VideoID:  id,
		Title:    "Video " + id,
		URL:      "https://www.youtube.com/watch?v=" + id,
		EmbedURL: "https://www.youtube.com/embed/" + id,
		Channel:  "Channel " + id,
	}
}
