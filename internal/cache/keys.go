package cache

import "strconv"

// Key builders for the read cache. The writers invalidate exactly these
// keys, so every reader and writer must build them through this file.

// ResortKey caches the full record for one resort by id.
func ResortKey(id int64) string {
	return "resort:" + strconv.FormatInt(id, 10)
}

// ResortSlugKey caches the full record for one resort by slug.
func ResortSlugKey(slug string) string {
	return "resort:" + slug
}

// AllResortsKey caches the heavy all-resorts response.
func AllResortsKey() string {
	return "resorts:all"
}

// SummaryKey caches the lightweight summary list.
func SummaryKey() string {
	return "resorts:summary"
}

// TrailsKey caches the trail list for one resort by id.
func TrailsKey(id int64) string {
	return "trails:" + strconv.FormatInt(id, 10)
}

// TrailsSlugKey caches the trail list for one resort by slug.
func TrailsSlugKey(slug string) string {
	return "trails:" + slug
}

// ConditionKeys are the keys invalidated after a condition write.
func ConditionKeys(id int64, slug string) []string {
	return []string{ResortKey(id), ResortSlugKey(slug), AllResortsKey(), SummaryKey()}
}

// TrailKeys are the keys invalidated after a trail write.
func TrailKeys(id int64, slug string) []string {
	return []string{TrailsKey(id), TrailsSlugKey(slug)}
}

// AllKeys are every key touching one resort, invalidated on soft-delete.
func AllKeys(id int64, slug string) []string {
	return append(ConditionKeys(id, slug), TrailsKey(id), TrailsSlugKey(slug))
}
