package service

import (
	"context"
)

// Workload is the active-job picture recomputed from ACTIVE requests.
type Workload struct {
	Jobs         map[string]int
	OccupiedBays int
}

// ActiveWorkload counts ACTIVE requests per technician. It is the source of
// truth used to reconcile remote workload counters.
func (s *ServiceRequestService) ActiveWorkload(ctx context.Context) (Workload, error) {
	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return Workload{}, err
	}
	result := Workload{Jobs: make(map[string]int)}
	for _, req := range active {
		if req.TechnicianID != nil {
			result.Jobs[*req.TechnicianID]++
		}
		if req.BayNumber != nil {
			result.OccupiedBays++
		}
	}
	return result, nil
}
