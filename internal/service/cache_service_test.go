package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
)

type memoryCacheRepo struct {
	values      map[string][]byte
	getErr      error
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(v, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	for key := range m.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.values, key)
		}
	}
	return nil
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), 0, nil, true)
	ctx := context.Background()

	var out string
	hit, err := svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	hit, err = svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out)
}

func TestCacheServiceBackendError(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.values)
	require.NoError(t, svc.Invalidate(context.Background(), "summary:*"))
	assert.Empty(t, repo.invalidated)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestSummaryKeys(t *testing.T) {
	assert.Equal(t, "summary:s1:c1", SummaryKey("s1", "c1"))
	assert.Equal(t, "summary:s1:*", StudentSummaryPattern("s1"))
}
