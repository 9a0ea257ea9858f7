package main

import (
	"log"

	"github.com/awsl-project/ranstat/internal/config"
	"github.com/awsl-project/ranstat/internal/repository"
	"github.com/awsl-project/ranstat/internal/repository/cached"
	"github.com/awsl-project/ranstat/internal/repository/gormdb"
)

// store 所有 KPI 仓库，cache_entries > 0 时查询走缓存
type store struct {
	db      *gormdb.DB
	nr      repository.NRHourlyKPIRepository
	lte     repository.LTEHourlyKPIRepository
	weekly  repository.SiteWeeklyKPIRepository
	batches repository.ImportBatchRepository
}

// openStore initializes the database (DSN > default SQLite path)
func openStore(cfg *config.Config) (*store, error) {
	var (
		db  *gormdb.DB
		err error
	)
	if cfg.Database.DSN != "" {
		log.Printf("[DB] Using configured database DSN")
		db, err = gormdb.NewDBWithDSN(cfg.Database.DSN)
	} else {
		db, err = gormdb.NewDB(cfg.DBPath())
	}
	if err != nil {
		return nil, err
	}

	s := &store{
		db:      db,
		nr:      gormdb.NewNRHourlyKPIRepository(db),
		lte:     gormdb.NewLTEHourlyKPIRepository(db),
		weekly:  gormdb.NewSiteWeeklyKPIRepository(db),
		batches: gormdb.NewImportBatchRepository(db),
	}
	if n := cfg.Database.CacheEntries; n > 0 {
		s.nr = cached.NewNRHourlyKPIRepository(s.nr, n)
		s.lte = cached.NewLTEHourlyKPIRepository(s.lte, n)
		s.weekly = cached.NewSiteWeeklyKPIRepository(s.weekly, n)
		log.Printf("[DB] Query cache enabled (%d entries per feed)", n)
	}
	return s, nil
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		log.Printf("[DB] Close failed: %v", err)
	}
}
