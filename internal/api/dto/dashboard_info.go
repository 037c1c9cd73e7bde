package dto

type DashboardInfo struct {
	Applications ExtendedApplicationStatistics `json:"applications"`
	Visits       VisitStatistics               `json:"visits"`

	Services struct {
		Server     string `json:"server"`
		ServerPort int    `json:"server_port"`
		Database   string `json:"database"`
		Version    string `json:"version"`
	} `json:"services"`

	System struct {
		ActiveSessions int    `json:"active_sessions"`
		ActiveBlocks   int    `json:"active_blocks"`
		Maintenance    bool   `json:"maintenance_mode"`
		Timestamp      string `json:"timestamp"`
	} `json:"system"`
}
