package service

import (
	"context"
	"coursegen_backend/internal/config"
	"coursegen_backend/internal/model"
	"coursegen_backend/internal/util"
	"coursegen_backend/pkg/logger"
	"coursegen_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// VideoDetail 候选视频的校验结果
type VideoDetail struct {
	Embeddable bool
	Views      uint64
	Likes      uint64
}

// VideoSearcher 外部视频平台。Search 返回的候选在 Verify 通过前均视为不可信。
type VideoSearcher interface {
	Search(ctx context.Context, query string, max int64) ([]model.VideoRef, error)
	Verify(ctx context.Context, ids []string) (map[string]VideoDetail, error)
}

type YouTubeService struct {
	svc *youtube.Service
}

func NewYouTubeService(ctx context.Context, cfg config.YouTubeConfig) (*YouTubeService, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	return &YouTubeService{svc: svc}, nil
}

func (s *YouTubeService) Search(ctx context.Context, query string, max int64) ([]model.VideoRef, error) {
	resp, err := s.svc.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(max).
		Type("video").
		SafeSearch("strict").
		VideoEmbeddable("true").
		VideoSyndicated("true").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	refs := make([]model.VideoRef, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		id := item.Id.VideoId
		ref := model.VideoRef{
			VideoID:  id,
			Title:    item.Snippet.Title,
			URL:      "https://www.youtube.com/watch?v=" + id,
			EmbedURL: "https://www.youtube.com/embed/" + id,
			Channel:  item.Snippet.ChannelTitle,
		}
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Medium != nil {
			ref.Thumbnail = item.Snippet.Thumbnails.Medium.Url
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *YouTubeService) Verify(ctx context.Context, ids []string) (map[string]VideoDetail, error) {
	resp, err := s.svc.Videos.List([]string{"status", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	details := make(map[string]VideoDetail, len(resp.Items))
	for _, v := range resp.Items {
		if v.Status == nil {
			continue
		}
		d := VideoDetail{
			Embeddable: v.Status.Embeddable &&
				v.Status.PrivacyStatus == "public" &&
				v.Status.UploadStatus == "processed",
		}
		if v.Statistics != nil {
			d.Views = v.Statistics.ViewCount
			d.Likes = v.Statistics.LikeCount
		}
		details[v.Id] = d
	}
	return details, nil
}

// ModuleVideoResult 单个模块的视频解析结果：要么全部经过校验，要么带明确状态
type ModuleVideoResult struct {
	Videos []model.VideoRef  `json:"videos"`
	Status model.VideoStatus `json:"status"`
}

type VideoResolver struct {
	searcher     VideoSearcher
	rdb          *redis.Client
	maxPerModule int
	cacheTTL     time.Duration
}

// NewVideoResolver rdb 可为 nil，此时跳过模块级结果缓存
func NewVideoResolver(searcher VideoSearcher, rdb *redis.Client, cfg config.YouTubeConfig, cacheTTL time.Duration) *VideoResolver {
	return &VideoResolver{
		searcher:     searcher,
		rdb:          rdb,
		maxPerModule: cfg.MaxPerModule,
		cacheTTL:     cacheTTL,
	}
}

// ResolveModule 按 SEARCH → RANK → VALIDATE 解析一个模块的视频。
// 绝不返回未通过校验的候选；完全失败时返回明确状态与空列表。
// 结果按 (课程指纹, 模块序号) 缓存，courseKey 已携带请求者身份。
func (r *VideoResolver) ResolveModule(ctx context.Context, courseKey string, index int, moduleTitle, topic string, difficulty model.Difficulty) ModuleVideoResult {
	cacheKey := fmt.Sprintf("videos:%s:%d", courseKey, index)

	if cached, ok := r.cachedResult(ctx, cacheKey); ok {
		monitoring.VideoResolutions.WithLabelValues("cached").Inc()
		return cached
	}

	result := r.resolve(ctx, moduleTitle, topic, difficulty)
	monitoring.VideoResolutions.WithLabelValues(strings.ToLower(string(result.Status))).Inc()

	// 取消的请求不写缓存，避免记录半成品
	if ctx.Err() == nil {
		r.storeResult(ctx, cacheKey, result)
	}
	return result
}

func (r *VideoResolver) resolve(ctx context.Context, moduleTitle, topic string, difficulty model.Difficulty) ModuleVideoResult {
	queries := searchQueries(moduleTitle, topic, difficulty)

	var candidates []model.VideoRef
	var lastErr error
	for _, q := range queries {
		err := util.Retry(ctx, util.RetryOptions{MaxRetries: maxGenRetries, Backoff: retryBackoff}, func() error {
			found, err := r.searcher.Search(ctx, q, int64(r.maxPerModule)*2)
			if err != nil {
				return err
			}
			candidates = found
			return nil
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			break
		}
	}

	if lastErr != nil && len(candidates) == 0 {
		logger.Log.Warn("Video search failed", zap.String("module", moduleTitle), zap.Error(lastErr))
		return ModuleVideoResult{Videos: []model.VideoRef{}, Status: model.VideoStatusFetchError}
	}
	if len(candidates) == 0 {
		return ModuleVideoResult{Videos: []model.VideoRef{}, Status: model.VideoStatusNoSafeVideos}
	}

	// RANK: 沿用平台相关性排序，截取前几名
	if len(candidates) > r.maxPerModule {
		candidates = candidates[:r.maxPerModule]
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.VideoID)
	}

	details, err := r.searcher.Verify(ctx, ids)
	if err != nil {
		logger.Log.Warn("Video verification failed", zap.String("module", moduleTitle), zap.Error(err))
		return ModuleVideoResult{Videos: []model.VideoRef{}, Status: model.VideoStatusFetchError}
	}

	verified := make([]model.VideoRef, 0, len(candidates))
	for _, c := range candidates {
		d, ok := details[c.VideoID]
		if !ok || !d.Embeddable {
			// 未通过校验的候选直接丢弃，绝不透出
			continue
		}
		c.Views = d.Views
		c.Likes = d.Likes
		verified = append(verified, c)
	}

	if len(verified) == 0 {
		return ModuleVideoResult{Videos: []model.VideoRef{}, Status: model.VideoStatusNoSafeVideos}
	}
	return ModuleVideoResult{Videos: verified, Status: model.VideoStatusOK}
}

// searchQueries 依次尝试的检索变体：模块标题提示 → 主题+难度 → 自然语言兜底
func searchQueries(moduleTitle, topic string, difficulty model.Difficulty) []string {
	return []string{
		fmt.Sprintf("%s tutorial", moduleTitle),
		fmt.Sprintf("%s %s course", topic, strings.ToLower(string(difficulty))),
		fmt.Sprintf("learn %s explained", topic),
	}
}

func (r *VideoResolver) cachedResult(ctx context.Context, key string) (ModuleVideoResult, bool) {
	if r.rdb == nil {
		return ModuleVideoResult{}, false
	}
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return ModuleVideoResult{}, false
	}
	var result ModuleVideoResult
	if err := json.Unmarshal(data, &result); err != nil {
		return ModuleVideoResult{}, false
	}
	return result, true
}

func (r *VideoResolver) storeResult(ctx context.Context, key string, result ModuleVideoResult) {
	if r.rdb == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
		logger.Log.Warn("Failed to cache video result", zap.String("key", key), zap.Error(err))
	}
}
