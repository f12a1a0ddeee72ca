package model

// VideoStatus 模块视频解析结果状态
type VideoStatus string

const (
	VideoStatusOK           VideoStatus = "OK"
	VideoStatusNoSafeVideos VideoStatus = "NO_SAFE_VIDEOS"
	VideoStatusFetchError   VideoStatus = "FETCH_ERROR"
)

// ContentOrigin 标记模块结构化内容的可信级别
type ContentOrigin string

const (
	OriginValid    ContentOrigin = "valid"
	OriginRepaired ContentOrigin = "repaired"
	OriginFallback ContentOrigin = "fallback"
)

// Section 模块描述中带标签的段落
type Section struct {
	Section string `json:"section"`
	Text    string `json:"text"`
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// VideoRef 已通过可嵌入性校验的视频引用
type VideoRef struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	EmbedURL  string `json:"embedUrl"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
	Views     uint64 `json:"views,omitempty"`
	Likes     uint64 `json:"likes,omitempty"`
}

type Module struct {
	ID          string         `json:"id"`
	OrderIndex  int            `json:"orderIndex"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Sections    []Section      `json:"sections,omitempty"`
	Quiz        []QuizQuestion `json:"quiz"`
	Videos      []VideoRef     `json:"videos"`
	VideoStatus VideoStatus    `json:"videoStatus,omitempty"`
	Origin      ContentOrigin  `json:"origin,omitempty"`
}

type Course struct {
	Title         string   `json:"title"`
	Topic         string   `json:"topic"`
	Modules       []Module `json:"modules"`
	IncludeQuiz   bool     `json:"includeQuiz"`
	IncludeVideos bool     `json:"includeVideos"`
	ChapterCount  int      `json:"chapterCount"`
}
