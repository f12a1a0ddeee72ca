package service

import (
	"coursegen_backend/internal/model"
	"strings"
	"testing"
)

func draftCourse() *model.Course {
	return &model.Course{
		Title: "Color Theory: A Beginner Course",
		Topic: "Color Theory",
		Modules: []model.Module{
			{
				Title: "Introduction to Color Theory",
				Sections: []model.Section{
					{Section: "Description", Text: "What this module covers."},
					{Section: "Key Takeaways", Text: "Remember the color wheel."},
				},
			},
			{
				// 标题与段落缺失，需要修复
				Sections: nil,
			},
		},
	}
}

func TestRepair_FillsMissingFields(t *testing.T) {
	course := draftCourse()
	NewStructureService().Repair(course)

	if course.ChapterCount != 2 {
		t.Fatalf("chapterCount = %d, want 2", course.ChapterCount)
	}

	for i, m := range course.Modules {
		if m.ID == "" {
			t.Fatalf("module %d id not filled", i)
		}
		if m.OrderIndex != i {
			t.Fatalf("module %d orderIndex = %d", i, m.OrderIndex)
		}
		if m.Title == "" {
			t.Fatalf("module %d title not filled", i)
		}
		if m.Quiz == nil || m.Videos == nil {
			t.Fatalf("module %d quiz/videos not initialized", i)
		}
	}

	if course.Modules[1].Title != ModuleTitle("Color Theory", 1) {
		t.Fatalf("missing title should derive from topic, got %q", course.Modules[1].Title)
	}
}

func TestRepair_PreservesExistingIDs(t *testing.T) {
	course := draftCourse()
	course.Modules[0].ID = "keep-me"
	NewStructureService().Repair(course)

	if course.Modules[0].ID != "keep-me" {
		t.Fatalf("existing id overwritten: %q", course.Modules[0].ID)
	}
}

func TestAssembleDescription_IconsAndBanner(t *testing.T) {
	desc := AssembleDescription([]model.Section{
		{Section: "Description", Text: "Overview."},
		{Section: "Core Concepts", Text: "Hue and value."},
		{Section: "Unheard Of", Text: "Mystery."},
	})

	if !strings.Contains(desc, "📘 Description") {
		t.Fatalf("missing icon-prefixed Description header: %q", desc)
	}
	if !strings.Contains(desc, "🧩 Core Concepts") {
		t.Fatalf("missing icon-prefixed Core Concepts header: %q", desc)
	}
	if !strings.Contains(desc, "📎 Unheard Of") {
		t.Fatalf("unknown section should use generic icon: %q", desc)
	}
	if !strings.HasSuffix(desc, completionBanner) {
		t.Fatalf("description must end with completion banner: %q", desc)
	}
}

func TestValidate_ReportsWithoutMutating(t *testing.T) {
	course := draftCourse()
	svc := NewStructureService()

	problems := svc.Validate(course, false)
	if len(problems) == 0 {
		t.Fatalf("draft course should fail strict validation")
	}
	// 校验只报告，不修复
	if course.Modules[1].ID != "" {
		t.Fatalf("validate must not mutate the course")
	}

	svc.Repair(course)
	if problems := svc.Validate(course, false); len(problems) != 0 {
		t.Fatalf("repaired course should pass, got %v", problems)
	}
}

func TestValidate_QuizExpectations(t *testing.T) {
	course := draftCourse()
	svc := NewStructureService()
	svc.Repair(course)

	problems := svc.Validate(course, true)
	if len(problems) == 0 {
		t.Fatalf("expected quiz size problems when quizzes are expected but absent")
	}

	badQuiz := []model.QuizQuestion{{
		Question: "q?",
		Options:  []string{"a", "b", "c", "d"},
		Answer:   "not listed",
	}}
	course.Modules[0].Quiz = badQuiz
	problems = svc.Validate(course, true)
	found := false
	for _, p := range problems {
		if strings.Contains(p, "answer not among options") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected answer mismatch problem, got %v", problems)
	}
}
