package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateUserCache invalidates all user-related caches
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User,
		fmt.Sprintf("id:%s", userID),
		fmt.Sprintf("reports:%s", userID))
	SafeInvalidatePattern(ctx, cm.User, "list:*")
	SafeInvalidatePattern(ctx, cm.User, "email:*")
	SafeInvalidatePattern(ctx, cm.Exists, fmt.Sprintf("user:%s*", userID))
}

// InvalidateOrgCache invalidates team and business unit caches
func InvalidateOrgCache(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Org, "team:*")
	SafeInvalidatePattern(ctx, cm.Org, "bu:*")
	SafeInvalidatePattern(ctx, cm.Stats, "team:*")
}

// InvalidateCycleCache invalidates review cycle caches
func InvalidateCycleCache(ctx context.Context, cm *CacheManager, cycleID uint) {
	SafeDelete(ctx, cm.Cycle,
		fmt.Sprintf("id:%d", cycleID),
		"open")
	SafeInvalidatePattern(ctx, cm.Cycle, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("cycle:%d:*", cycleID))
}

// InvalidateCycleStats invalidates the aggregated stats for a cycle after
// feedback or assessment activity
func InvalidateCycleStats(ctx context.Context, cm *CacheManager, cycleID uint) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("cycle:%d:*", cycleID))
	SafeInvalidatePattern(ctx, cm.Stats, "dashboard:*")
}
