package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/service-shop/internal/domain"
	apperrors "github.com/spec-kit/service-shop/pkg/util/errorutil"
)

// Bay occupancy is derived on every call from the requests in an active
// status; nothing is cached.

// BayStatuses reports every bay 1..totalBays with its occupant, if any.
func (s *ServiceRequestService) BayStatuses(ctx context.Context) ([]domain.BayStatus, error) {
	occupied, err := s.occupancy(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make([]domain.BayStatus, 0, s.totalBays)
	for bay := 1; bay <= s.totalBays; bay++ {
		status := domain.BayStatus{BayNumber: bay}
		if id, ok := occupied[bay]; ok {
			occupant := id
			status.Occupied = true
			status.ServiceRequestID = &occupant
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// AvailableBays returns the free bay numbers in ascending order.
func (s *ServiceRequestService) AvailableBays(ctx context.Context) ([]int, error) {
	occupied, err := s.occupancy(ctx)
	if err != nil {
		return nil, err
	}
	return freeBays(s.totalBays, occupied), nil
}

func (s *ServiceRequestService) occupancy(ctx context.Context) (map[int]string, error) {
	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	occupied := make(map[int]string, len(active))
	for _, req := range active {
		if req.BayNumber != nil {
			occupied[*req.BayNumber] = req.ID
		}
	}
	return occupied, nil
}

func (s *ServiceRequestService) occupantOf(ctx context.Context, bay int) (string, error) {
	occupied, err := s.occupancy(ctx)
	if err != nil {
		return "", err
	}
	return occupied[bay], nil
}

func (s *ServiceRequestService) checkBayRange(bay int) error {
	if bay < 1 || bay > s.totalBays {
		return apperrors.NewBadRequest(
			fmt.Sprintf("bay number must be between 1 and %d", s.totalBays),
			map[string]any{"bay_number": bay},
		)
	}
	return nil
}

func freeBays(total int, occupied map[int]string) []int {
	free := make([]int, 0, total)
	for bay := 1; bay <= total; bay++ {
		if _, taken := occupied[bay]; !taken {
			free = append(free, bay)
		}
	}
	return free
}

func bayOccupied(bay int) error {
	return apperrors.NewBadRequest(fmt.Sprintf("bay %d already occupied", bay), map[string]any{"bay_number": bay})
}

func bayOf(req *domain.ServiceRequest) int {
	if req.BayNumber == nil {
		return 0
	}
	return *req.BayNumber
}
