package service

import (
	"coursegen_backend/internal/model"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// completionBanner 每个模块描述的固定收尾横幅
const completionBanner = "🎉 Module complete — great work!"

var sectionIcons = map[string]string{
	"Description":    "📘",
	"Introduction":   "👋",
	"Core Concepts":  "🧩",
	"Examples":       "💡",
	"Best Practices": "✅",
	"Common Mistakes": "⚠️",
	"Key Takeaways":  "🎯",
}

// StructureService 对生成的草稿课程做结构修复与严格校验
type StructureService struct{}

func NewStructureService() *StructureService {
	return &StructureService{}
}

// Repair 确定性补齐缺失的模块 id/标题，并从带标签段落装配可读描述。
// 修复后的对象总是可用的；严格校验失败不会使生成中止。
func (s *StructureService) Repair(course *model.Course) {
	for i := range course.Modules {
		m := &course.Modules[i]
		m.OrderIndex = i

		if strings.TrimSpace(m.ID) == "" {
			m.ID = uuid.NewString()
		}
		if strings.TrimSpace(m.Title) == "" {
			m.Title = ModuleTitle(course.Topic, i)
		}
		if strings.TrimSpace(m.Description) == "" || len(m.Sections) > 0 {
			m.Description = AssembleDescription(m.Sections)
		}
		if m.Quiz == nil {
			m.Quiz = []model.QuizQuestion{}
		}
		if m.Videos == nil {
			m.Videos = []model.VideoRef{}
		}
	}
	course.ChapterCount = len(course.Modules)
}

// AssembleDescription 按段落类型加图标前缀拼接描述，以固定横幅收尾
func AssembleDescription(sections []model.Section) string {
	var b strings.Builder
	for _, sec := range sections {
		icon, ok := sectionIcons[sec.Section]
		if !ok {
			icon = "📎"
		}
		b.WriteString(fmt.Sprintf("%s %s\n%s\n\n", icon, sec.Section, strings.TrimSpace(sec.Text)))
	}
	b.WriteString(completionBanner)
	return b.String()
}

// Validate 对整课做严格校验，返回发现的问题列表；空切片表示通过
func (s *StructureService) Validate(course *model.Course, expectQuiz bool) []string {
	var problems []string

	if strings.TrimSpace(course.Title) == "" {
		problems = append(problems, "course title is empty")
	}
	if len(course.Modules) == 0 {
		problems = append(problems, "course has no modules")
	}
	if course.ChapterCount != len(course.Modules) {
		problems = append(problems, "chapterCount does not match module count")
	}

	for i, m := range course.Modules {
		prefix := fmt.Sprintf("modules[%d]", i)
		if strings.TrimSpace(m.ID) == "" {
			problems = append(problems, prefix+".id is empty")
		}
		if strings.TrimSpace(m.Title) == "" {
			problems = append(problems, prefix+".title is empty")
		}
		if strings.TrimSpace(m.Description) == "" {
			problems = append(problems, prefix+".description is empty")
		}
		if m.OrderIndex != i {
			problems = append(problems, prefix+".orderIndex out of order")
		}
		if expectQuiz && len(m.Quiz) != QuizSize {
			problems = append(problems, fmt.Sprintf("%s.quiz has %d questions, want %d", prefix, len(m.Quiz), QuizSize))
		}
		for j, q := range m.Quiz {
			if len(q.Options) != 4 {
				problems = append(problems, fmt.Sprintf("%s.quiz[%d] has %d options", prefix, j, len(q.Options)))
			}
			if !containsString(q.Options, q.Answer) {
				problems = append(problems, fmt.Sprintf("%s.quiz[%d] answer not among options", prefix, j))
			}
		}
	}

	return problems
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
