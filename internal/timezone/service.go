package timezone

import (
	"fmt"

	"github.com/ringsaturn/tzf"
)

// Service resolves the IANA timezone of a coordinate.
type Service struct {
	finder tzf.F
}

// NewService loads the bundled timezone polygons. Loading is expensive, so
// build one Service at startup and share it.
func NewService() (*Service, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize timezone finder: %w", err)
	}
	return &Service{finder: finder}, nil
}

// GetTimezone returns names like "America/Denver" or "Europe/London".
func (s *Service) GetTimezone(latitude, longitude float64) (string, error) {
	tz := s.finder.GetTimezoneName(longitude, latitude)
	if tz == "" {
		return "", fmt.Errorf("could not determine timezone for coordinates lat=%f, lon=%f", latitude, longitude)
	}
	return tz, nil
}
