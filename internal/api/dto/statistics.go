package dto

type ApplicationStatistics struct {
	Total int64            `json:"total"`
	Today int64            `json:"today"`
	Week  int64            `json:"week"`
	Roles map[string]int64 `json:"roles"`
}

type ExtendedApplicationStatistics struct {
	ApplicationStatistics

	Hour        int64            `json:"hour"`
	Daily       int64            `json:"daily"`
	Statuses    map[string]int64 `json:"statuses"`
	AvgPlaytime float64          `json:"avg_playtime"`
	PopularRole string           `json:"popular_role"`
}

type VisitStatistics struct {
	TotalVisits    int64            `json:"total_visits"`
	UniqueVisitors int64            `json:"unique_visitors"`
	TodayVisits    int64            `json:"today_visits"`
	PopularPages   map[string]int64 `json:"popular_pages"`
}
