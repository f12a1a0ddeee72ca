package service

import (
	"context"
	"coursegen_backend/internal/model"
	"coursegen_backend/internal/util"
	"coursegen_backend/pkg/logger"
	"coursegen_backend/pkg/monitoring"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CourseService 生成管线的编排器：
// 规范化 → 缓存查找 → 并发逐模块生成 → 结构修复校验 → 测验 → 视频 → 缓存写回
type CourseService struct {
	content     *ContentService
	structure   *StructureService
	quiz        *QuizService
	videos      *VideoResolver
	cache       CourseCache
	concurrency int
	cacheTTL    time.Duration
}

func NewCourseService(content *ContentService, structure *StructureService, quiz *QuizService, videos *VideoResolver, cache CourseCache, concurrency int, cacheTTL time.Duration) *CourseService {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &CourseService{
		content:     content,
		structure:   structure,
		quiz:        quiz,
		videos:      videos,
		cache:       cache,
		concurrency: concurrency,
		cacheTTL:    cacheTTL,
	}
}

// Generate 处理一次生成请求。返回 (课程, 是否缓存命中, 错误)。
// 单个模块的失败降级为兜底内容；仅所有模块都失败时返回 ErrTotalGenerationFailure。
func (s *CourseService) Generate(ctx context.Context, raw model.GenerationRequest) (*model.Course, bool, error) {
	start := time.Now()

	req, err := NormalizeRequest(raw)
	if err != nil {
		monitoring.CourseGenerations.WithLabelValues("invalid").Inc()
		return nil, false, err
	}

	key := CacheKey(req)

	// 缓存不可用按未命中处理，继续重新生成
	if cached, ok, cacheErr := s.cache.Get(ctx, key); cacheErr != nil {
		logger.Log.Warn("Course cache lookup failed, regenerating", zap.Error(cacheErr))
	} else if ok {
		monitoring.CourseGenerations.WithLabelValues("cached").Inc()
		return cached, true, nil
	}

	modules := make([]model.Module, req.ModuleCount)
	var generated int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := 0; i < req.ModuleCount; i++ {
		i := i
		g.Go(func() error {
			content, origin, genErr := s.content.GenerateModule(gctx, req.Topic, i, req.Difficulty)
			if genErr != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// GenerationDegraded：记录并降级，不向上传播
				logger.Log.Warn("Module generation degraded to placeholder content",
					zap.Int("module", i), zap.Error(genErr))
				monitoring.ModuleFallbacks.Inc()
				content = PlaceholderContent(req.Topic, i)
				origin = model.OriginFallback
			} else {
				atomic.AddInt64(&generated, 1)
			}

			modules[i] = model.Module{
				Title:       content.Title,
				Description: content.Description,
				Sections:    content.Sections,
				Origin:      origin,
			}
			return nil
		})
	}

	// 除上下文取消外，模块任务不返回错误
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	if atomic.LoadInt64(&generated) == 0 {
		monitoring.CourseGenerations.WithLabelValues("failed").Inc()
		return nil, false, util.ErrTotalGenerationFailure
	}

	course := &model.Course{
		Title:         courseTitle(req),
		Topic:         req.Topic,
		Modules:       modules,
		IncludeQuiz:   req.IncludeQuiz,
		IncludeVideos: req.IncludeVideos,
	}

	s.structure.Repair(course)
	if problems := s.structure.Validate(course, false); len(problems) > 0 {
		// 严格校验失败不中止生成，修复后的对象继续向下传递
		logger.Log.Warn("Course failed strict validation, passing repaired object forward",
			zap.Strings("problems", problems))
		for i := range course.Modules {
			if course.Modules[i].Origin == model.OriginValid {
				course.Modules[i].Origin = model.OriginRepaired
			}
		}
	}

	if req.IncludeQuiz {
		s.attachQuizzes(ctx, course, req.Difficulty)
	}
	if req.IncludeVideos {
		s.attachVideos(ctx, course, key, req)
	}

	// 请求被取消时不写缓存，半成品绝不入库
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	if err := s.cache.Set(ctx, key, course, s.cacheTTL); err != nil {
		logger.Log.Warn("Failed to cache generated course", zap.Error(err))
	}

	monitoring.CourseGenerations.WithLabelValues("generated").Inc()
	monitoring.GenerationDuration.Observe(time.Since(start).Seconds())

	return course, false, nil
}

func (s *CourseService) attachQuizzes(ctx context.Context, course *model.Course, difficulty model.Difficulty) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range course.Modules {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			m := &course.Modules[i]
			m.Quiz = s.quiz.GenerateQuiz(gctx, m.Title, m.Description, difficulty)
			return nil
		})
	}
	g.Wait()
}

func (s *CourseService) attachVideos(ctx context.Context, course *model.Course, courseKey string, req model.GenerationRequest) {
	if s.videos == nil {
		for i := range course.Modules {
			course.Modules[i].Videos = []model.VideoRef{}
			course.Modules[i].VideoStatus = model.VideoStatusFetchError
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range course.Modules {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			m := &course.Modules[i]
			result := s.videos.ResolveModule(gctx, courseKey, i, m.Title, req.Topic, req.Difficulty)
			m.Videos = result.Videos
			if len(result.Videos) == 0 {
				m.VideoStatus = result.Status
			} else {
				m.VideoStatus = model.VideoStatusOK
			}
			return nil
		})
	}
	g.Wait()
}

func courseTitle(req model.GenerationRequest) string {
	return fmt.Sprintf("%s: A %s Course", req.Topic, req.Difficulty)
}
