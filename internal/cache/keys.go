package cache

import (
	"fmt"
	"strings"

	"FeedRanker/internal/domain"
)

// Keys follow namespace:object:id:param.

func FeedFirstPageKey(userID string) string {
	return fmt.Sprintf("feed:user:%s:page:0", userID)
}

// FeedPattern matches every cached feed page of a user. Glob metacharacters in
// the id are escaped so it only ever matches that user's keys.
func FeedPattern(userID string) string {
	return fmt.Sprintf("feed:user:%s:*", globEscaper.Replace(userID))
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func ArticleKey(articleID string) string {
	return fmt.Sprintf("article:item:%s", articleID)
}

func TrendingPeriodKey(days int) string {
	return fmt.Sprintf("trending:period:%d", days)
}

func TrendingRoleKey(role domain.Role, days, limit int) string {
	return fmt.Sprintf("trending:role:%s:%d:%d", role, days, limit)
}

func RoleLockKey(userID string) string {
	return fmt.Sprintf("lock:roles:user:%s", userID)
}

func namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
