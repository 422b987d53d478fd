package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/visaeval/visaeval-backend/pkg/cache"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/logger"
	"github.com/visaeval/visaeval-backend/pkg/metrics"
)

const defaultCacheTTL = 24 * time.Hour

// Fetcher retrieves rules from an upstream source.
type Fetcher interface {
	Check(ctx context.Context, passport, destination string) (*Requirement, error)
}

// Service answers passport/destination lookups through a TTL cache. At most
// one upstream call per pair is in flight; concurrent callers share it.
type Service struct {
	fetcher Fetcher
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
	log     *logger.Logger
	now     func() time.Time
}

// NewService wires the lookup. A nil fetcher selects offline answers.
func NewService(fetcher Fetcher, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		fetcher: fetcher,
		cache:   c,
		ttl:     ttl,
		log:     log.WithComponent("travel"),
		now:     time.Now,
	}
}

// Requirements returns the rules for holders of passport entering
// destination. Both accept names, alpha-3 or alpha-2 codes.
func (s *Service) Requirements(ctx context.Context, passport, destination string) (*Requirement, error) {
	details := map[string]string{}
	p, ok := CountryCode(passport)
	if !ok {
		details["passport"] = fmt.Sprintf("unknown country %q", passport)
	}
	d, ok := CountryCode(destination)
	if !ok {
		details["destination"] = fmt.Sprintf("unknown country %q", destination)
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	if s.fetcher == nil {
		return offline(p, d, s.now().UTC()), nil
	}

	key := cacheKey(p, d)
	if r, ok := s.cached(ctx, key); ok {
		metrics.TravelCacheLookups.WithLabelValues("hit").Inc()
		return r, nil
	}
	metrics.TravelCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the cache while this one waited.
		if r, ok := s.cached(ctx, key); ok {
			return r, nil
		}
		r, err := s.fetcher.Check(ctx, p, d)
		if err != nil {
			return nil, err
		}
		r.FetchedAt = s.now().UTC()
		s.store(ctx, key, r)
		return r, nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("passport", p).Str("destination", d).Msg("travel api failed, answering offline")
		return offline(p, d, s.now().UTC()), nil
	}

	r := *v.(*Requirement)
	return &r, nil
}

func (s *Service) cached(ctx context.Context, key string) (*Requirement, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("travel cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var r Requirement
	if err := json.Unmarshal(raw, &r); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable travel cache entry")
		return nil, false
	}
	return &r, true
}

func (s *Service) store(ctx context.Context, key string, r *Requirement) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("travel cache write failed")
	}
}

func cacheKey(passport, destination string) string {
	return "travel:" + passport + ":" + destination
}
