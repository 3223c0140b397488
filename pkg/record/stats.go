package record

import "sort"

// topLanguageCount bounds the language distribution in the statistics.
const topLanguageCount = 10

// Statistics summarizes a batch of flattened records. It rides along as
// artifact metadata for downstream sanity checks.
type Statistics struct {
	TotalRepositories int            `json:"total_repositories"`
	TotalStars        int64          `json:"total_stars"`
	TotalForks        int64          `json:"total_forks"`
	AverageStars      float64        `json:"average_stars"`
	AverageForks      float64        `json:"average_forks"`
	UniqueLanguages   int            `json:"unique_languages"`
	TopLanguages      map[string]int `json:"top_languages"`
}

// ComputeStatistics aggregates star, fork, and language counts over a batch.
func ComputeStatistics(records []Flattened) Statistics {
	stats := Statistics{
		TotalRepositories: len(records),
		TopLanguages:      map[string]int{},
	}
	if len(records) == 0 {
		return stats
	}

	languages := map[string]int{}
	for _, rec := range records {
		lang := "Unknown"
		if l, ok := rec["language"].(string); ok && l != "" {
			lang = l
		}
		languages[lang]++

		stats.TotalStars += asInt64(rec["stargazers_count"])
		stats.TotalForks += asInt64(rec["forks_count"])
	}

	stats.AverageStars = float64(stats.TotalStars) / float64(len(records))
	stats.AverageForks = float64(stats.TotalForks) / float64(len(records))
	stats.UniqueLanguages = len(languages)

	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if languages[names[i]] != languages[names[j]] {
			return languages[names[i]] > languages[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > topLanguageCount {
		names = names[:topLanguageCount]
	}
	for _, name := range names {
		stats.TopLanguages[name] = languages[name]
	}

	return stats
}

// asInt64 reads a numeric field decoded from JSON (float64) or set natively.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
