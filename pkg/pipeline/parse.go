package pipeline

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/matzehuels/dep2j/pkg/cache"
	"github.com/matzehuels/dep2j/pkg/depfile"
	"github.com/matzehuels/dep2j/pkg/observability"
	"github.com/matzehuels/dep2j/pkg/source"
)

// keyTypeRules labels parse cache events.
const keyTypeRules = "rules"

// Parse lexes and parses one source.
func Parse(src source.Source) ([]depfile.RawRule, error) {
	return depfile.Parse(src.Name, src.Data)
}

// parseSource parses src, consulting the cache first unless refresh is set.
func (r *Runner) parseSource(ctx context.Context, src source.Source, refresh bool) ([]depfile.RawRule, bool, error) {
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, src.Name, len(src.Data))
	start := time.Now()

	key := r.Keyer.RulesKey(cache.Hash(src.Data))

	if !refresh {
		if rules, ok := r.cachedRules(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, keyTypeRules)
			hooks.OnParseComplete(ctx, src.Name, len(rules), true, time.Since(start), nil)
			return rules, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeRules)
	}

	rules, err := Parse(src)
	hooks.OnParseComplete(ctx, src.Name, len(rules), false, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	r.storeRules(ctx, key, rules)
	return rules, false, nil
}

func (r *Runner) cachedRules(ctx context.Context, key string) ([]depfile.RawRule, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	rules, err := decodeRules(data)
	if err != nil {
		r.Logger.Debug("discarding cache entry", "err", err)
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	return rules, true
}

func (r *Runner) storeRules(ctx context.Context, key string, rules []depfile.RawRule) {
	data, ok := encodeRules(rules)
	if !ok {
		return
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeRules, len(data))
}

// encodeRules serializes rules for the cache. Rules with names that are not
// valid UTF-8 are not cached since JSON cannot carry them unchanged.
func encodeRules(rules []depfile.RawRule) ([]byte, bool) {
	for _, r := range rules {
		if !utf8.ValidString(r.Target) {
			return nil, false
		}
		for _, p := range r.Prerequisites {
			if !utf8.ValidString(p) {
				return nil, false
			}
		}
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, false
	}
	return data, true
}

func decodeRules(data []byte) ([]depfile.RawRule, error) {
	var rules []depfile.RawRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	for i := range rules {
		if rules[i].Prerequisites == nil {
			rules[i].Prerequisites = []string{}
		}
	}
	return rules, nil
}
