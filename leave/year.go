package leave

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// YearResolver maps a date to its 1 Apr - 31 Mar window, creating the row on
// first use. Concurrent callers converge on the same row because InsertYear
// is a no-op on an existing start date; the winner is re-read afterwards.
type YearResolver struct {
	repo  YearRepository
	cache Cache
	ttl   time.Duration
	log   *logrus.Entry
}

func NewYearResolver(repo YearRepository, cache Cache, ttl time.Duration, log *logrus.Entry) *YearResolver {
	return &YearResolver{repo: repo, cache: cache, ttl: ttl, log: log}
}

type cachedYear struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func yearCacheKey(start generic.TimePoint) string { return "leave:year:" + start.String() }

// Resolve returns the window containing date. Only committed rows are ever
// cached, and windows are immutable, so cached entries never go stale.
func (r *YearResolver) Resolve(ctx context.Context, date generic.TimePoint) (Year, error) {
	p := generic.LeaveYearConfig.PeriodFor(date)

	if y, ok := r.fromCache(ctx, p.Start); ok {
		return y, nil
	}

	y, err := r.repo.YearByStart(ctx, p.Start)
	if err != nil {
		return Year{}, fmt.Errorf("lookup leave year %s: %w", p.Start, err)
	}
	if y == nil {
		candidate := Year{ID: uuid.NewString(), Start: p.Start, End: p.End}
		if err := r.repo.InsertYear(ctx, candidate); err != nil {
			return Year{}, fmt.Errorf("create leave year %s: %w", p.Start, err)
		}
		if y, err = r.repo.YearByStart(ctx, p.Start); err != nil {
			return Year{}, fmt.Errorf("reload leave year %s: %w", p.Start, err)
		}
		if y == nil {
			return Year{}, notFound("leave year", p.Start.String())
		}
	}

	r.toCache(ctx, *y)
	return *y, nil
}

func (r *YearResolver) fromCache(ctx context.Context, start generic.TimePoint) (Year, bool) {
	if r.cache == nil {
		return Year{}, false
	}
	b, ok, err := r.cache.Get(ctx, yearCacheKey(start))
	if err != nil {
		r.log.WithError(err).Debug("leave year cache read failed")
		return Year{}, false
	}
	if !ok {
		return Year{}, false
	}
	var c cachedYear
	if err := json.Unmarshal(b, &c); err != nil {
		return Year{}, false
	}
	s, err1 := generic.ParseDate(c.Start)
	e, err2 := generic.ParseDate(c.End)
	if err1 != nil || err2 != nil {
		return Year{}, false
	}
	return Year{ID: c.ID, Start: s, End: e}, true
}

func (r *YearResolver) toCache(ctx context.Context, y Year) {
	if r.cache == nil {
		return
	}
	b, _ := json.Marshal(cachedYear{ID: y.ID, Start: y.Start.String(), End: y.End.String()})
	if err := r.cache.Set(ctx, yearCacheKey(y.Start), b, r.ttl); err != nil {
		r.log.WithError(err).Debug("leave year cache write failed")
	}
}
