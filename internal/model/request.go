package model

// Difficulty 课程难度档位
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// GenerationRequest 一次课程生成请求的规范化形式
type GenerationRequest struct {
	Topic         string     `json:"topic"`
	Difficulty    Difficulty `json:"difficulty"`
	ModuleCount   int        `json:"moduleCount"`
	IncludeQuiz   bool       `json:"includeQuiz"`
	IncludeVideos bool       `json:"includeVideos"`
	RequesterID   string     `json:"-"`
}
