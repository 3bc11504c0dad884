package history

import (
	"math"
	"sort"

	"github.com/mikey/phishshield/internal/core"
)

const (
	topSendersLimit  = 5
	recentScansLimit = 10
)

// buildStats aggregates records (newest first) into the dashboard view.
func buildStats(records []core.ScanRecord) *core.DashboardStats {
	stats := &core.DashboardStats{
		AverageScores: map[string]float64{},
		TopSenders:    []core.SenderCount{},
		ScanTrends:    []core.DailyCount{},
		RecentScans:   []core.ScanRecord{},
	}
	if len(records) == 0 {
		return stats
	}

	stats.TotalScans = len(records)

	sums := map[string]float64{}
	senderCounts := map[string]int{}
	dailyCounts := map[string]int{}
	for _, record := range records {
		switch record.Verdict {
		case core.VerdictPhishing:
			stats.PhishingDetected++
		case core.VerdictSuspicious:
			stats.SuspiciousDetected++
		case core.VerdictSafe:
			stats.SafeDetected++
		}

		sums["header_score"] += record.HeaderScore
		sums["domain_score"] += record.DomainScore
		sums["body_score"] += record.BodyScore
		sums["bert_score"] += record.IntentScore
		sums["feedback_score"] += record.AdaptiveScore
		sums["link_score"] += record.LinkScore
		sums["final_score"] += record.FinalScore

		senderCounts[record.Sender]++
		dailyCounts[record.ScannedAt.Format("2006-01-02")]++
	}

	total := float64(len(records))
	stats.DetectionRate = round3(float64(stats.PhishingDetected+stats.SuspiciousDetected) / total)
	for name, sum := range sums {
		stats.AverageScores[name] = round3(sum / total)
	}

	stats.TopSenders = topSenders(senderCounts)
	stats.ScanTrends = scanTrends(dailyCounts)

	limit := recentScansLimit
	if limit > len(records) {
		limit = len(records)
	}
	stats.RecentScans = records[:limit]

	return stats
}

func topSenders(counts map[string]int) []core.SenderCount {
	senders := make([]core.SenderCount, 0, len(counts))
	for sender, count := range counts {
		senders = append(senders, core.SenderCount{Sender: sender, Count: count})
	}
	sort.Slice(senders, func(i, j int) bool {
		if senders[i].Count != senders[j].Count {
			return senders[i].Count > senders[j].Count
		}
		return senders[i].Sender < senders[j].Sender
	})
	if len(senders) > topSendersLimit {
		senders = senders[:topSendersLimit]
	}
	return senders
}

func scanTrends(counts map[string]int) []core.DailyCount {
	trends := make([]core.DailyCount, 0, len(counts))
	for date, count := range counts {
		trends = append(trends, core.DailyCount{Date: date, Count: count})
	}
	sort.Slice(trends, func(i, j int) bool {
		return trends[i].Date < trends[j].Date
	})
	return trends
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
