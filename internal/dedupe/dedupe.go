// Package dedupe provides shared singleflight groups used to deduplicate
// concurrent collaborator requests. Only one call runs for a given key while
// other callers wait for its result.
package dedupe

import "golang.org/x/sync/singleflight"

// SkillGroup deduplicates skill text generation keyed by keys.SkillKey.
var SkillGroup singleflight.Group

// LeaderboardGroup deduplicates leaderboard downloads keyed by source URL.
var LeaderboardGroup singleflight.Group
