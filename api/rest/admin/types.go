package admin

import "codeberg.org/healthconsultant/server/healthconsultant/usage"

type UsageStatsResponse struct {
	Stats   *usage.GlobalStats `json:"stats"`
	Records []usage.Record     `json:"records"`
}
