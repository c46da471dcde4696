package stats

import (
	"sort"
	"time"

	"rutext/internal/audit"
)

// Stats is the /api/stats payload, aggregated from the audit log.
type Stats struct {
	Status        string                   `json:"status"`
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Port          int                      `json:"port"`
	Requests      RequestStats             `json:"requests"`
	Endpoints     map[string]EndpointStats `json:"endpoints"`
	Latency       LatencyStats             `json:"latency"`
	Recent        []RecentRequest          `json:"recent,omitempty"`
}

type RequestStats struct {
	Total       int     `json:"total"`
	Errors      int     `json:"errors"`
	PerMinute   float64 `json:"per_minute"`
	Last5Minute []int   `json:"last_5_minute"`
}

type EndpointStats struct {
	Requests int `json:"requests"`
	Errors   int `json:"errors"`
	Tokens   int `json:"tokens"`
	Entities int `json:"entities"`
}

type LatencyStats struct {
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
}

type RecentRequest struct {
	Timestamp string  `json:"timestamp"`
	Endpoint  string  `json:"endpoint"`
	Status    int     `json:"status"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type Options struct {
	Now     time.Time
	Status  string
	Uptime  time.Duration
	Port    int
	RecentN int
}

// CollectFromEntries folds audit entries into the stats payload. Endpoints
// are keyed by request path so new handlers show up without collector
// changes.
func CollectFromEntries(entries []audit.Entry, opts Options) Stats {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	recentN := opts.RecentN
	if recentN <= 0 {
		recentN = 20
	}

	out := Stats{
		Status:        opts.Status,
		UptimeSeconds: int64(opts.Uptime.Seconds()),
		Port:          opts.Port,
		Endpoints:     map[string]EndpointStats{},
		Requests:      RequestStats{Last5Minute: make([]int, 5)},
	}
	if out.Status == "" {
		out.Status = "stopped"
	}

	var latencySum float64
	var latencyCount int
	recent := make([]RecentRequest, 0, len(entries))

	for _, e := range entries {
		out.Requests.Total++
		isError := e.Status >= 400

		ep := out.Endpoints[e.Endpoint]
		ep.Requests++
		ep.Tokens += e.Tokens
		ep.Entities += e.Entities
		if isError {
			ep.Errors++
			out.Requests.Errors++
		}
		out.Endpoints[e.Endpoint] = ep

		if !opts.Now.IsZero() && e.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
				delta := now.Sub(ts)
				if delta >= 0 && delta < 5*time.Minute {
					idx := int(delta / time.Minute)
					out.Requests.Last5Minute[4-idx]++
				}
			}
		}

		if e.LatencyMs > 0 {
			latencySum += e.LatencyMs
			latencyCount++
			if e.LatencyMs > out.Latency.MaxMs {
				out.Latency.MaxMs = e.LatencyMs
			}
		}

		recent = append(recent, RecentRequest{
			Timestamp: e.Timestamp,
			Endpoint:  e.Endpoint,
			Status:    e.Status,
			LatencyMs: e.LatencyMs,
			Error:     e.Error,
		})
	}

	sum5 := 0
	for _, n := range out.Requests.Last5Minute {
		sum5 += n
	}
	out.Requests.PerMinute = float64(sum5) / 5

	if latencyCount > 0 {
		out.Latency.AvgMs = latencySum / float64(latencyCount)
	}

	for i := len(recent) - 1; i >= 0 && len(out.Recent) < recentN; i-- {
		out.Recent = append(out.Recent, recent[i])
	}
	sort.SliceStable(out.Recent, func(i, j int) bool {
		return out.Recent[i].Timestamp > out.Recent[j].Timestamp
	})
	return out
}
