package db

import (
	"gorm.io/gorm"

	"flightlogbook/internal/cache"
)

// CacheStore is the persisted tier of the response cache, backed by the
// cache_entries table.
type CacheStore struct {
	DB *gorm.DB
}

func (s *CacheStore) FindByKey(key string) (*cache.Entry, error) {
	var row CacheEntry
	err := s.DB.Where("query_hash = ?", key).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &cache.Entry{
		Key:       row.QueryHash,
		Payload:   row.Response,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (s *CacheStore) Save(entry *cache.Entry) error {
	var existing CacheEntry
	err := s.DB.Where("query_hash = ?", entry.Key).Limit(1).Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		return s.DB.Model(&existing).Updates(map[string]interface{}{
			"response":   entry.Payload,
			"expires_at": entry.ExpiresAt,
		}).Error
	}
	return s.DB.Create(&CacheEntry{
		QueryHash: entry.Key,
		Response:  entry.Payload,
		ExpiresAt: entry.ExpiresAt,
	}).Error
}
