package domain

// BayStatus describes one physical service bay.
type BayStatus struct {
	BayNumber        int
	Occupied         bool
	ServiceRequestID *string
}

// DashboardCounts summarizes service requests by status.
type DashboardCounts struct {
	Total      int
	Pending    int
	Assigned   int
	InProgress int
	Completed  int
	Closed     int
	Cancelled  int
}
