package service

import (
	"context"
	"coursegen_backend/internal/model"
	"errors"
	"strings"
	"testing"
)

func TestGenerateModule_TwoPhaseSuccess(t *testing.T) {
	chat := &fakeChat{}
	svc := NewContentService(chat)

	content, origin, err := svc.GenerateModule(context.Background(), "Color Theory", 0, model.Beginner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if origin != model.OriginValid {
		t.Fatalf("expected origin %q, got %q", model.OriginValid, origin)
	}
	if len(content.Sections) != len(SectionLabels) {
		t.Fatalf("expected %d sections, got %d", len(SectionLabels), len(content.Sections))
	}
	if content.Quiz != nil || content.Videos != nil {
		t.Fatalf("expected quiz and videos to be cleared for later stages")
	}
	if chat.proseCalls != 1 || chat.structureCalls != 1 {
		t.Fatalf("expected one call per phase, got prose=%d structure=%d", chat.proseCalls, chat.structureCalls)
	}
}

func TestGenerateModule_TruncatedStructuringFallsBackToExtraction(t *testing.T) {
	chat := &fakeChat{
		structureFn: func(int, string) (string, error) {
			// 右花括号被截掉，应视为截断而非解析
			full := sampleStructuredJSON()
			return full[:len(full)-1], nil
		},
	}
	svc := NewContentService(chat)

	content, origin, err := svc.GenerateModule(context.Background(), "Color Theory", 0, model.Beginner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if origin != model.OriginFallback {
		t.Fatalf("expected fallback origin, got %q", origin)
	}
	if chat.structureCalls != 1+maxGenRetries {
		t.Fatalf("expected %d structuring attempts, got %d", 1+maxGenRetries, chat.structureCalls)
	}
	if len(content.Sections) != len(SectionLabels) {
		t.Fatalf("expected %d extracted sections, got %d", len(SectionLabels), len(content.Sections))
	}
	// 兜底段落来自 Phase A 文本，而非占位句
	for _, sec := range content.Sections {
		if strings.Contains(sec.Text, "not available yet") {
			t.Fatalf("section %q fell through to placeholder: %q", sec.Section, sec.Text)
		}
	}
}

func TestGenerateModule_ShortProseRetriedThenAccepted(t *testing.T) {
	short := "Too short to be a module."
	chat := &fakeChat{
		proseFn: func(int) (string, error) { return short, nil },
		structureFn: func(int, string) (string, error) {
			return "", errors.New("unavailable")
		},
	}
	svc := NewContentService(chat)

	content, origin, err := svc.GenerateModule(context.Background(), "Color Theory", 0, model.Intermediate)
	if err != nil {
		t.Fatalf("expected partial prose to be accepted, got %v", err)
	}
	if chat.proseCalls != 1+maxGenRetries {
		t.Fatalf("expected %d prose attempts, got %d", 1+maxGenRetries, chat.proseCalls)
	}
	if origin != model.OriginFallback {
		t.Fatalf("expected fallback origin after structuring failure, got %q", origin)
	}
	if len(content.Sections) != len(SectionLabels) {
		t.Fatalf("expected placeholder-completed sections, got %d", len(content.Sections))
	}
}

func TestGenerateModule_FailsOnlyWhenProseEmpty(t *testing.T) {
	chat := &fakeChat{
		proseFn: func(int) (string, error) { return "", errors.New("provider down") },
	}
	svc := NewContentService(chat)

	_, _, err := svc.GenerateModule(context.Background(), "Color Theory", 2, model.Advanced)
	if err == nil {
		t.Fatalf("expected error when no prose could be generated")
	}
}

func TestExtractJSON_StripsFencesAndProse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here is the JSON you asked for:\n{\"a\":1}", `{"a":1}`},
		{"trailing prose", "{\"a\":1}\nHope that helps!", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestModuleTitle_NoRepeatsWithinPrefixBudget(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < len(titlePrefixes); i++ {
		title := ModuleTitle("Color Theory", i)
		if seen[title] {
			t.Fatalf("duplicate title at index %d: %q", i, title)
		}
		seen[title] = true
		if !strings.HasSuffix(title, "Color Theory") {
			t.Fatalf("title %q does not carry the topic", title)
		}
	}
}

func TestExtractSection_HandlesMarkdownDecoration(t *testing.T) {
	prose := "## Description:\nColors interact in predictable ways.\n\n**Introduction**\nStart with the color wheel.\n\nCore Concepts\nHue, saturation and value.\n"

	if got := extractSection(prose, "Description"); got != "Colors interact in predictable ways." {
		t.Fatalf("Description = %q", got)
	}
	if got := extractSection(prose, "Introduction"); got != "Start with the color wheel." {
		t.Fatalf("Introduction = %q", got)
	}
	if got := extractSection(prose, "Core Concepts"); got != "Hue, saturation and value." {
		t.Fatalf("Core Concepts = %q", got)
	}
	if got := extractSection(prose, "Key Takeaways"); got != "" {
		t.Fatalf("expected empty for missing label, got %q", got)
	}
}

func TestPlaceholderContent_CoversAllSections(t *testing.T) {
	content := PlaceholderContent("Color Theory", 1)
	if content.Title != ModuleTitle("Color Theory", 1) {
		t.Fatalf("unexpected title %q", content.Title)
	}
	if len(content.Sections) != len(SectionLabels) {
		t.Fatalf("expected %d sections, got %d", len(SectionLabels), len(content.Sections))
	}
	for i, sec := range content.Sections {
		if sec.Section != SectionLabels[i] {
			t.Fatalf("section %d label = %q, want %q", i, sec.Section, SectionLabels[i])
		}
		if strings.TrimSpace(sec.Text) == "" {
			t.Fatalf("section %q has empty text", sec.Section)
		}
	}
}
