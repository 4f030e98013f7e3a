package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breeze-gateway/internal/breeze"
	"breeze-gateway/internal/catalog"
	"breeze-gateway/internal/model"
	"breeze-gateway/internal/repository"
)

type Widget struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"size:40;not null"`
	Gadgets []Gadget
}

type Gadget struct {
	ID       uint `gorm:"primaryKey"`
	WidgetID uint
	Widget   *Widget
}

type memorySnapshotRepository struct {
	mu        sync.Mutex
	snapshots []*model.MetadataSnapshot
	createErr error
}

func (r *memorySnapshotRepository) Create(ctx context.Context, s *model.MetadataSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *memorySnapshotRepository) GetByID(ctx context.Context, id string) (*model.MetadataSnapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrInvalidUUID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrSnapshotNotFound
}

func (r *memorySnapshotRepository) Latest(ctx context.Context, service string) (*model.MetadataSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		if r.snapshots[i].Service == service {
			return r.snapshots[i], nil
		}
	}
	return nil, repository.ErrSnapshotNotFound
}

func (r *memorySnapshotRepository) List(ctx context.Context, service string, limit, offset int) ([]*model.MetadataSnapshot, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.MetadataSnapshot
	for _, s := range r.snapshots {
		if service == "" || s.Service == service {
			out = append(out, s)
		}
	}
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

type memoryPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *memoryPublisher) Name() string { return "memory" }

func (p *memoryPublisher) Publish(ctx context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

type countingBuilder struct {
	mu    sync.Mutex
	calls int
	inner MetadataBuilder
	err   error
}

func (b *countingBuilder) Build(models ...interface{}) (*breeze.Metadata, error) {
	b.mu.Lock()
	b.calls++
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.inner.Build(models...)
}

func (b *countingBuilder) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.Register("Shop", &Widget{}, &Gadget{}))
	require.NoError(t, cat.Register("Tools", &Gadget{}, &Widget{}))
	return cat
}

func newTestBuilder() *countingBuilder {
	return &countingBuilder{inner: breeze.NewBuilder(breeze.WithNamespace("Test.Shop"))}
}

func TestMetadataBuildsAndCaches(t *testing.T) {
	builder := newTestBuilder()
	svc := NewMetadataService(newTestCatalog(t), builder, NewDocumentCache(time.Minute), nil)

	doc, err := svc.Metadata(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "Shop", doc.Service)
	assert.Len(t, doc.Version, 16)
	assert.Equal(t, `"`+doc.Version+`"`, doc.ETag())
	assert.Equal(t, 2, doc.TypeCount)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(doc.Body, &decoded))
	assert.Contains(t, decoded, "structuralTypes")
	assert.Contains(t, decoded, "resourceEntityTypeMap")

	again, err := svc.Metadata(context.Background(), "SHOP")
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, 1, builder.Calls())

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Cache.TotalEntries)
	summary := stats.Builds["summary"].(map[string]interface{})
	assert.Equal(t, int64(1), summary["total_builds"])
	assert.Equal(t, int64(1), summary["cache_hits"])
}

func TestMetadataUnknownService(t *testing.T) {
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil)

	_, err := svc.Metadata(context.Background(), "missing")
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)

	assert.ErrorIs(t, svc.Invalidate("missing"), catalog.ErrServiceNotFound)
}

func TestMetadataBuildFailure(t *testing.T) {
	builder := newTestBuilder()
	builder.err = breeze.ErrUnmatchedForeignKey
	svc := NewMetadataService(newTestCatalog(t), builder, NewDocumentCache(time.Minute), nil)

	_, err := svc.Metadata(context.Background(), "Shop")
	assert.ErrorIs(t, err, breeze.ErrUnmatchedForeignKey)

	// failures are not cached
	_, err = svc.Metadata(context.Background(), "Shop")
	assert.Error(t, err)
	assert.Equal(t, 2, builder.Calls())
	assert.Empty(t, svc.Services()[0].Version)
}

func TestInvalidateRebuilds(t *testing.T) {
	builder := newTestBuilder()
	svc := NewMetadataService(newTestCatalog(t), builder, NewDocumentCache(time.Minute), nil)

	first, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate("shop"))

	second, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Equal(t, 2, builder.Calls())
	assert.Equal(t, first.Version, second.Version)
	assert.NotSame(t, first, second)
}

func TestDistinctServicesHaveDistinctVersions(t *testing.T) {
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil)

	shop, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	tools, err := svc.Metadata(context.Background(), "Tools")
	require.NoError(t, err)
	assert.NotEqual(t, shop.Version, tools.Version)
}

func TestConcurrentRequestsBuildOnce(t *testing.T) {
	builder := newTestBuilder()
	svc := NewMetadataService(newTestCatalog(t), builder, NewDocumentCache(time.Minute), nil)

	var wg sync.WaitGroup
	versions := make([]string, 16)
	for i := range versions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := svc.Metadata(context.Background(), "Shop")
			if err == nil {
				versions[i] = doc.Version
			}
		}(i)
	}
	wg.Wait()

	for _, v := range versions {
		assert.Equal(t, versions[0], v)
	}
	assert.LessOrEqual(t, builder.Calls(), 16)
	assert.GreaterOrEqual(t, builder.Calls(), 1)
}

func TestSnapshotsStoredOnChange(t *testing.T) {
	repo := &memorySnapshotRepository{}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil, WithSnapshots(repo))

	doc, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	require.Len(t, repo.snapshots, 1)
	assert.Equal(t, doc.Version, repo.snapshots[0].Version)
	assert.Equal(t, "Shop", repo.snapshots[0].Service)
	assert.JSONEq(t, string(doc.Body), string(repo.snapshots[0].Document))

	// same document after invalidation: no new snapshot
	require.NoError(t, svc.Invalidate("Shop"))
	_, err = svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Len(t, repo.snapshots, 1)

	_, err = svc.Metadata(context.Background(), "Tools")
	require.NoError(t, err)
	assert.Len(t, repo.snapshots, 2)

	got, err := svc.GetSnapshot(context.Background(), repo.snapshots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Version, got.Version)

	_, err = svc.GetSnapshot(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrInvalidUUID)

	_, err = svc.GetSnapshot(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, repository.ErrSnapshotNotFound)
}

func TestSnapshotFailureDoesNotFailRequest(t *testing.T) {
	repo := &memorySnapshotRepository{createErr: errors.New("db down")}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil, WithSnapshots(repo))

	doc, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Body)
}

func TestListSnapshots(t *testing.T) {
	repo := &memorySnapshotRepository{}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil, WithSnapshots(repo))

	_, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	_, err = svc.Metadata(context.Background(), "Tools")
	require.NoError(t, err)

	resp, err := svc.ListSnapshots(context.Background(), &ListSnapshotsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 20, resp.Limit)

	resp, err = svc.ListSnapshots(context.Background(), &ListSnapshotsRequest{Service: "shop", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, "Shop", resp.Snapshots[0].Service)
}

func TestSnapshotsDisabled(t *testing.T) {
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil)

	_, err := svc.ListSnapshots(context.Background(), &ListSnapshotsRequest{})
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)

	_, err = svc.GetSnapshot(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
}

func TestPublishOnChange(t *testing.T) {
	pub := &memoryPublisher{}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil,
		WithPublisher(pub, "breeze", true))

	doc, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"breeze/Shop/metadata.json",
		"breeze/Shop/metadata-" + doc.Version + ".json",
	}, pub.keys)

	// unchanged rebuild is not published again
	require.NoError(t, svc.Invalidate("Shop"))
	_, err = svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Len(t, pub.keys, 2)
}

func TestPublishOnDemand(t *testing.T) {
	pub := &memoryPublisher{}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil,
		WithPublisher(pub, "", false))

	_, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Empty(t, pub.keys)

	require.NoError(t, svc.Publish(context.Background(), "Shop"))
	assert.Len(t, pub.keys, 2)
	assert.Equal(t, "Shop/metadata.json", pub.keys[0])

	pub.err = errors.New("unreachable")
	assert.Error(t, svc.Publish(context.Background(), "Shop"))

	assert.ErrorIs(t, svc.Publish(context.Background(), "missing"), catalog.ErrServiceNotFound)
}

func TestPublishAfterOnChangeBuildUploadsOnce(t *testing.T) {
	pub := &memoryPublisher{}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil,
		WithPublisher(pub, "breeze", true))

	// the build publishes the new version itself
	require.NoError(t, svc.Publish(context.Background(), "Shop"))
	assert.Len(t, pub.keys, 2)

	// a cached document is published on request
	require.NoError(t, svc.Publish(context.Background(), "Shop"))
	assert.Len(t, pub.keys, 4)
}

// contextRepository fails like a database driver once the caller's context is done
type contextRepository struct {
	memorySnapshotRepository
}

func (r *contextRepository) Create(ctx context.Context, s *model.MetadataSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memorySnapshotRepository.Create(ctx, s)
}

func (r *contextRepository) Latest(ctx context.Context, service string) (*model.MetadataSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.memorySnapshotRepository.Latest(ctx, service)
}

func TestBuildOutlivesCancelledCaller(t *testing.T) {
	repo := &contextRepository{}
	pub := &memoryPublisher{}
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil,
		WithSnapshots(repo), WithPublisher(pub, "", true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := svc.Metadata(ctx, "Shop")
	require.NoError(t, err)

	latest, err := repo.Latest(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Equal(t, doc.Version, latest.Version)
	assert.Len(t, pub.keys, 2)
}

func TestPublishDisabled(t *testing.T) {
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil)
	assert.ErrorIs(t, svc.Publish(context.Background(), "Shop"), ErrPublishingDisabled)
}

func TestServices(t *testing.T) {
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil)

	doc, err := svc.Metadata(context.Background(), "Tools")
	require.NoError(t, err)

	infos := svc.Services()
	require.Len(t, infos, 2)
	names := []string{infos[0].Name, infos[1].Name}
	assert.True(t, sort.StringsAreSorted(names))
	assert.Equal(t, ServiceInfo{Name: "Shop", ModelCount: 2}, infos[0])
	assert.Equal(t, ServiceInfo{Name: "Tools", ModelCount: 2, Cached: true, Version: doc.Version}, infos[1])
}

func TestWithStatsSharesCollector(t *testing.T) {
	mc := NewMetricsCollector()
	svc := NewMetadataService(newTestCatalog(t), newTestBuilder(), NewDocumentCache(time.Minute), nil, WithStats(mc))

	_, err := svc.Metadata(context.Background(), "Shop")
	require.NoError(t, err)

	sm, err := mc.GetServiceMetrics("Shop")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sm.TotalBuilds)
}
