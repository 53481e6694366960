package db

import (
	"errors"

	"gorm.io/gorm"
)

// ErrSightingNotFound is returned when a sighting ID does not exist.
var ErrSightingNotFound = errors.New("sighting not found")

// SightingStore provides the persistence operations the enrichment
// pipeline and handlers need for sightings.
type SightingStore struct {
	DB *gorm.DB
}

// LoadByID returns the sighting with the given ID, or ErrSightingNotFound.
func (s *SightingStore) LoadByID(id uint) (*Sighting, error) {
	var sighting Sighting
	if err := s.DB.First(&sighting, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSightingNotFound
		}
		return nil, err
	}
	return &sighting, nil
}

// Save upserts the sighting; gorm maintains UpdatedAt.
func (s *SightingStore) Save(sighting *Sighting) error {
	return s.DB.Save(sighting).Error
}
