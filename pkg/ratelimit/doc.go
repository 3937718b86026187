// Package ratelimit paces requests to the remote service with a sliding window.
//
// A nil Limiter means no pacing; PerMinute returns nil for non-positive rates.
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
