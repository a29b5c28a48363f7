package cache

import (
	"context"
	"fmt"
	"time"

	"haitimeteo/internal/types"
)

// ArchiveReader is the uncached archive read surface.
type ArchiveReader interface {
	GetRange(ctx context.Context, cityID int64, start, end time.Time) ([]types.ArchiveRecord, error)
	DateBounds(ctx context.Context, cityID int64) (*types.DateBounds, error)
}

// CachedArchiveReader memoizes archive reads for a TTL window. Keys cover
// the full argument tuple, so different ranges for the same city never
// collide. It satisfies ArchiveReader itself and can replace the raw
// repository wherever reads dominate.
type CachedArchiveReader struct {
	reader ArchiveReader
	ranges *Memo[string, []types.ArchiveRecord]
	bounds *Memo[int64, *types.DateBounds]
}

// NewCachedArchiveReader wraps reader with TTL memoization. If clock is
// nil, types.RealClock is used.
func NewCachedArchiveReader(reader ArchiveReader, ttl time.Duration, clock types.Clock) *CachedArchiveReader {
	return &CachedArchiveReader{
		reader: reader,
		ranges: NewMemo[string, []types.ArchiveRecord](ttl, clock),
		bounds: NewMemo[int64, *types.DateBounds](ttl, clock),
	}
}

// GetRange returns the archive rows for the city and window, serving
// repeats of the same tuple from memory until the TTL lapses.
func (c *CachedArchiveReader) GetRange(ctx context.Context, cityID int64, start, end time.Time) ([]types.ArchiveRecord, error) {
	key := fmt.Sprintf("%d|%s|%s", cityID, start.Format(time.DateOnly), end.Format(time.DateOnly))
	return c.ranges.Get(key, func() ([]types.ArchiveRecord, error) {
		return c.reader.GetRange(ctx, cityID, start, end)
	})
}

// DateBounds returns the min and max archive dates for the city, cached
// per city.
func (c *CachedArchiveReader) DateBounds(ctx context.Context, cityID int64) (*types.DateBounds, error) {
	return c.bounds.Get(cityID, func() (*types.DateBounds, error) {
		return c.reader.DateBounds(ctx, cityID)
	})
}

// Invalidate drops all cached reads, range and bounds alike.
func (c *CachedArchiveReader) Invalidate() {
	c.ranges.Invalidate()
	c.bounds.Invalidate()
}
