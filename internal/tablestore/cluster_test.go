package tablestore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/containerd/errdefs"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) Cluster
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T) Cluster {
				m, err := NewMemory()
				require.NoError(t, err)
				return m
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Cluster {
				c, err := OpenSQLite(filepath.Join(t.TempDir(), "cluster.db"))
				require.NoError(t, err)
				t.Cleanup(func() { c.Close() })
				return c
			},
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, c Cluster)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func TestCluster_CreateAndGetFamilies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()

		require.NoError(t, c.CreateTable(ctx, "/dataset/production", mapset.NewSet("cf1", "cf2")))

		exists, err := c.TableExists(ctx, "/dataset/production")
		require.NoError(t, err)
		assert.True(t, exists)

		families, err := c.GetFamilies(ctx, "/dataset/production")
		require.NoError(t, err)
		assert.True(t, families.Equal(mapset.NewSet("cf1", "cf2")))
	})
}

func TestCluster_TableExists_Missing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		exists, err := c.TableExists(context.Background(), "/dataset/missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCluster_CreateDuplicate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()
		require.NoError(t, c.CreateTable(ctx, "/dataset/t", mapset.NewSet("cf1")))

		err := c.CreateTable(ctx, "/dataset/t", mapset.NewSet("other"))
		require.Error(t, err)
		assert.True(t, errdefs.IsAlreadyExists(err))

		// Existing table keeps its families
		families, err := c.GetFamilies(ctx, "/dataset/t")
		require.NoError(t, err)
		assert.True(t, families.Equal(mapset.NewSet("cf1")))
	})
}

func TestCluster_CreateRejectsBadFamilies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()

		err := c.CreateTable(ctx, "/dataset/t", mapset.NewSet[string]())
		assert.True(t, errdefs.IsInvalidArgument(err))

		err = c.CreateTable(ctx, "/dataset/t", mapset.NewSet("cf1", ""))
		assert.True(t, errdefs.IsInvalidArgument(err))

		exists, err := c.TableExists(ctx, "/dataset/t")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCluster_Drop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()
		require.NoError(t, c.CreateTable(ctx, "/dataset/t", mapset.NewSet("cf1")))

		require.NoError(t, c.DropTable(ctx, "/dataset/t"))

		exists, err := c.TableExists(ctx, "/dataset/t")
		require.NoError(t, err)
		assert.False(t, exists)

		err = c.DropTable(ctx, "/dataset/t")
		assert.True(t, errdefs.IsNotFound(err))

		_, err = c.GetFamilies(ctx, "/dataset/t")
		assert.True(t, errdefs.IsNotFound(err))
	})
}

func TestCluster_DropThenRecreate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()
		require.NoError(t, c.CreateTable(ctx, "/dataset/t", mapset.NewSet("cf1", "cf2")))
		require.NoError(t, c.DropTable(ctx, "/dataset/t"))
		require.NoError(t, c.CreateTable(ctx, "/dataset/t", mapset.NewSet("cf3")))

		families, err := c.GetFamilies(ctx, "/dataset/t")
		require.NoError(t, err)
		assert.True(t, families.Equal(mapset.NewSet("cf3")))
	})
}

func TestCluster_Tables(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()
		require.NoError(t, c.CreateTable(ctx, "/dataset/b", mapset.NewSet("cf1")))
		require.NoError(t, c.CreateTable(ctx, "/dataset/a", mapset.NewSet("cf1")))

		lister, ok := c.(Lister)
		require.True(t, ok)

		paths, err := lister.Tables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"/dataset/a", "/dataset/b"}, paths)
	})
}

func TestCluster_CancelledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.TableExists(ctx, "/dataset/t")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCluster_ConcurrentCreateSamePath(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c Cluster) {
		ctx := context.Background()
		const goroutines = 10

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			created  int
			conflict int
		)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := c.CreateTable(ctx, "/dataset/t", mapset.NewSet("cf1"))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					created++
				} else if errdefs.IsAlreadyExists(err) {
					conflict++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		assert.Equal(t, goroutines-1, conflict)
	})
}
