package internal

import (
	"strconv"
	"time"
)

// CacheKind is the base Cache-Control directive of a CachePolicy.
type CacheKind string

const (
	CacheNoStore   CacheKind = "no-store"
	CacheNoCache   CacheKind = "no-cache"
	CachePrivate   CacheKind = "private"
	CachePublic    CacheKind = "public"
	CacheImmutable CacheKind = "immutable"
)

// immutableMaxAge is used for immutable responses declared without a max age.
const immutableMaxAge = 365 * 24 * time.Hour

// CachePolicy describes the Cache-Control header emitted for a route.
type CachePolicy struct {
	Kind   CacheKind
	MaxAge time.Duration
}

// String renders the policy as a Cache-Control header value.
//
//	CachePolicy{Kind: CachePublic, MaxAge: time.Minute}.String() // "public, max-age=60"
func (p CachePolicy) String() string {
	switch p.Kind {
	case CacheNoStore, CacheNoCache:
		return string(p.Kind)
	case CachePrivate, CachePublic:
		if p.MaxAge <= 0 {
			return string(p.Kind)
		}
		return string(p.Kind) + ", max-age=" + seconds(p.MaxAge)
	case CacheImmutable:
		maxAge := p.MaxAge
		if maxAge <= 0 {
			maxAge = immutableMaxAge
		}
		return "public, max-age=" + seconds(maxAge) + ", immutable"
	default:
		return string(CacheNoStore)
	}
}

func (p CachePolicy) valid() bool {
	switch p.Kind {
	case CacheNoStore, CacheNoCache, CachePrivate, CachePublic, CacheImmutable:
		return p.MaxAge >= 0
	}
	return false
}

// DefaultCachePolicy returns the policy applied to a matched route that declares none.
// Mutating methods are never cached; everything else must be revalidated.
func DefaultCachePolicy(method string) CachePolicy {
	switch method {
	case "POST", "HEAD", "DELETE":
		return CachePolicy{Kind: CacheNoStore}
	default:
		return CachePolicy{Kind: CacheNoCache}
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}
