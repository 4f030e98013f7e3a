package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"breeze-gateway/internal/breeze"
	"breeze-gateway/internal/catalog"
	"breeze-gateway/internal/middleware"
	"breeze-gateway/internal/model"
	"breeze-gateway/internal/publish"
	"breeze-gateway/internal/repository"
)

// Service errors
var (
	ErrBuildFailed        = errors.New("metadata build failed")
	ErrPublishFailed      = errors.New("metadata publish failed")
	ErrSnapshotsDisabled  = errors.New("metadata snapshots are disabled")
	ErrPublishingDisabled = errors.New("no publish target configured")
)

// Document is a rendered metadata document of a service
type Document struct {
	Service     string
	Version     string // xxhash of Body, hex encoded
	Body        []byte
	TypeCount   int
	Metadata    *breeze.Metadata
	GeneratedAt time.Time
}

// ETag returns the strong entity tag of the document
func (d *Document) ETag() string {
	return `"` + d.Version + `"`
}

// MetadataBuilder describes a list of models
type MetadataBuilder interface {
	Build(models ...interface{}) (*breeze.Metadata, error)
}

type MetadataService interface {
	Metadata(ctx context.Context, service string) (*Document, error)
	Publish(ctx context.Context, service string) error
	Invalidate(service string) error
	Services() []ServiceInfo
	ListSnapshots(ctx context.Context, req *ListSnapshotsRequest) (*ListSnapshotsResponse, error)
	GetSnapshot(ctx context.Context, id string) (*model.MetadataSnapshot, error)
	Stats() *StatsResponse
}

type ServiceInfo struct {
	Name       string `json:"name"`
	ModelCount int    `json:"modelCount"`
	Cached     bool   `json:"cached"`
	Version    string `json:"version,omitempty"`
}

type ListSnapshotsRequest struct {
	Service string `form:"service" json:"service,omitempty"`
	Limit   int    `form:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset  int    `form:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
}

type ListSnapshotsResponse struct {
	Snapshots []*model.MetadataSnapshot `json:"snapshots"`
	Total     int64                     `json:"total"`
	Limit     int                       `json:"limit"`
	Offset    int                       `json:"offset"`
}

type StatsResponse struct {
	Cache  CacheStats             `json:"cache"`
	Builds map[string]interface{} `json:"builds"`
}

type metadataService struct {
	catalog  *catalog.Catalog
	builder  MetadataBuilder
	cache    *DocumentCache
	logger   *zap.Logger
	repo     repository.SnapshotRepository
	target   publish.Publisher
	onChange bool
	prefix   string
	stats    *MetricsCollector

	group        singleflight.Group
	versionMutex sync.Mutex
	lastVersion  map[string]string
}

// ServiceOption configures a MetadataService
type ServiceOption func(*metadataService)

// WithSnapshots stores a snapshot whenever a service's document changes
func WithSnapshots(repo repository.SnapshotRepository) ServiceOption {
	return func(s *metadataService) {
		s.repo = repo
	}
}

// WithPublisher sets the publish target. With onChange, every new document version is published.
func WithPublisher(p publish.Publisher, prefix string, onChange bool) ServiceOption {
	return func(s *metadataService) {
		s.target = p
		s.prefix = prefix
		s.onChange = onChange
	}
}

// WithStats records builds in the given collector
func WithStats(mc *MetricsCollector) ServiceOption {
	return func(s *metadataService) {
		s.stats = mc
	}
}

// NewMetadataService creates a new instance of MetadataService
func NewMetadataService(cat *catalog.Catalog, builder MetadataBuilder, cache *DocumentCache, logger *zap.Logger, opts ...ServiceOption) MetadataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &metadataService{
		catalog:     cat,
		builder:     builder,
		cache:       cache,
		logger:      logger.Named("metadata"),
		stats:       NewMetricsCollector(),
		lastVersion: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *metadataService) Metadata(ctx context.Context, name string) (*Document, error) {
	svc, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	res, err := s.load(ctx, svc)
	if err != nil {
		return nil, err
	}
	return res.doc, nil
}

// buildResult is shared by every caller waiting on the same build
type buildResult struct {
	doc *Document
	// published is set when the build already sent the document to the publish targets
	published bool
}

// load returns the cached document of svc or builds it once for all concurrent callers.
// The build outlives a cancelled caller so the snapshot and publish steps complete.
func (s *metadataService) load(ctx context.Context, svc *catalog.Service) (*buildResult, error) {
	if doc, ok := s.cache.Get(svc.Name); ok {
		middleware.RecordMetadataCacheHit(svc.Name)
		s.stats.RecordCacheHit(svc.Name)
		return &buildResult{doc: doc}, nil
	}

	v, err, _ := s.group.Do(svc.Name, func() (interface{}, error) {
		return s.build(context.WithoutCancel(ctx), svc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*buildResult), nil
}

func (s *metadataService) build(ctx context.Context, svc *catalog.Service) (*buildResult, error) {
	log := s.logger.With(
		zap.String("service", svc.Name),
		zap.String("correlation_id", middleware.CorrelationIDFromContext(ctx)))

	start := time.Now()
	doc, err := s.render(svc)
	elapsed := time.Since(start)

	bm := &BuildMetrics{
		Service:     svc.Name,
		Success:     err == nil,
		BuildTimeNs: elapsed.Nanoseconds(),
		Timestamp:   start,
	}
	if err != nil {
		bm.Error = err.Error()
		s.stats.RecordBuild(bm)
		middleware.RecordMetadataBuild(svc.Name, false, elapsed, 0)
		log.Error("metadata build failed", zap.Error(err))
		return nil, err
	}

	bm.Version = doc.Version
	bm.TypeCount = doc.TypeCount
	s.stats.RecordBuild(bm)
	middleware.RecordMetadataBuild(svc.Name, true, elapsed, doc.TypeCount)
	log.Debug("metadata built",
		zap.String("version", doc.Version),
		zap.Int("types", doc.TypeCount),
		zap.Duration("duration", elapsed))

	s.cache.Set(svc.Name, doc)

	res := &buildResult{doc: doc}
	changed, err := s.recordVersion(ctx, doc)
	if err != nil {
		log.Warn("failed to store metadata snapshot", zap.Error(err))
	}
	if changed && s.onChange && s.target != nil {
		if err := s.publish(ctx, doc); err != nil {
			log.Warn("failed to publish metadata", zap.Error(err))
		} else {
			res.published = true
		}
	}

	return res, nil
}

func (s *metadataService) render(svc *catalog.Service) (*Document, error) {
	md, err := s.builder.Build(svc.Models...)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrBuildFailed, svc.Name, err)
	}

	body, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: encode: %w", ErrBuildFailed, svc.Name, err)
	}

	return &Document{
		Service:     svc.Name,
		Version:     fmt.Sprintf("%016x", xxhash.Sum64(body)),
		Body:        body,
		TypeCount:   len(md.StructuralTypes),
		Metadata:    md,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// recordVersion reports whether doc differs from the last known version of its service,
// and stores a snapshot if it does.
func (s *metadataService) recordVersion(ctx context.Context, doc *Document) (bool, error) {
	if s.repo == nil {
		s.versionMutex.Lock()
		defer s.versionMutex.Unlock()

		if s.lastVersion[doc.Service] == doc.Version {
			return false, nil
		}
		s.lastVersion[doc.Service] = doc.Version
		return true, nil
	}

	latest, err := s.repo.Latest(ctx, doc.Service)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
	case err != nil:
		return false, err
	case latest.Version == doc.Version:
		return false, nil
	}

	snapshot := &model.MetadataSnapshot{
		Service:   doc.Service,
		Version:   doc.Version,
		Document:  model.Document(doc.Body),
		TypeCount: doc.TypeCount,
	}
	if err := s.repo.Create(ctx, snapshot); err != nil {
		return true, err
	}
	middleware.RecordMetadataSnapshot(doc.Service)
	s.logger.Info("stored metadata snapshot",
		zap.String("service", doc.Service),
		zap.String("version", doc.Version),
		zap.String("snapshot_id", snapshot.ID))
	return true, nil
}

func (s *metadataService) Publish(ctx context.Context, name string) error {
	if s.target == nil {
		return ErrPublishingDisabled
	}

	svc, err := s.catalog.Lookup(name)
	if err != nil {
		return err
	}

	res, err := s.load(ctx, svc)
	if err != nil {
		return err
	}
	if res.published {
		return nil
	}
	return s.publish(ctx, res.doc)
}

// publish writes the current and the versioned copy of a document
func (s *metadataService) publish(ctx context.Context, doc *Document) error {
	keys := []string{
		publish.Key(s.prefix, doc.Service, "metadata.json"),
		publish.Key(s.prefix, doc.Service, "metadata-"+doc.Version+".json"),
	}

	var errs []error
	for _, key := range keys {
		if err := s.target.Publish(ctx, key, doc.Body); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w for %s: %w", ErrPublishFailed, doc.Service, err)
	}

	s.logger.Info("published metadata",
		zap.String("service", doc.Service),
		zap.String("version", doc.Version),
		zap.String("target", s.target.Name()))
	return nil
}

func (s *metadataService) Invalidate(name string) error {
	svc, err := s.catalog.Lookup(name)
	if err != nil {
		return err
	}
	s.cache.Invalidate(svc.Name)
	return nil
}

func (s *metadataService) Services() []ServiceInfo {
	names := s.catalog.Names()
	infos := make([]ServiceInfo, 0, len(names))
	for _, name := range names {
		svc, err := s.catalog.Lookup(name)
		if err != nil {
			continue
		}
		info := ServiceInfo{Name: svc.Name, ModelCount: len(svc.Models)}
		if doc, ok := s.cache.Get(svc.Name); ok {
			info.Cached = true
			info.Version = doc.Version
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *metadataService) ListSnapshots(ctx context.Context, req *ListSnapshotsRequest) (*ListSnapshotsResponse, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}

	// Set default values
	if req.Limit == 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	service := req.Service
	if service != "" {
		if svc, err := s.catalog.Lookup(service); err == nil {
			service = svc.Name
		}
	}

	snapshots, total, err := s.repo.List(ctx, service, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return &ListSnapshotsResponse{
		Snapshots: snapshots,
		Total:     total,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}, nil
}

func (s *metadataService) GetSnapshot(ctx context.Context, id string) (*model.MetadataSnapshot, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}

	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *metadataService) Stats() *StatsResponse {
	return &StatsResponse{
		Cache:  s.cache.GetStats(),
		Builds: s.stats.ExportMetrics(),
	}
}
