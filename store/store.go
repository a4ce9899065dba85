package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/vmihailenco/msgpack/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gorustyt/tilemesh/detour"
	"github.com/gorustyt/tilemesh/tilemesh"
)

var ErrNotFound = errors.New("store: nav mesh set not found")

// NavMeshSetGorm is one archived nav mesh set. Settings are msgpack encoded.
type NavMeshSetGorm struct {
	ID        uint32    `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	NumTiles  int32     `gorm:"column:num_tiles"`
	Settings  []byte    `gorm:"column:settings"`
	Data      []byte    `gorm:"column:data"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (NavMeshSetGorm) TableName() string {
	return "navmesh_set"
}

// Entry is an archived set with its decoded settings.
type Entry struct {
	Name      string
	NumTiles  int32
	Settings  tilemesh.Settings
	Data      []byte
	UpdatedAt time.Time
}

type Store struct {
	db *gorm.DB
}

// Open opens the sqlite archive at dsn, with or without a sqlite:// prefix.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&NavMeshSetGorm{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

// Put archives a saved set under name, replacing any previous one.
func (s *Store) Put(name string, settings tilemesh.Settings, data []byte) error {
	hdr, err := tilemesh.ReadSetHeader(data)
	if err != nil {
		return err
	}
	blob, err := msgpack.Marshal(&settings)
	if err != nil {
		return err
	}
	row := &NavMeshSetGorm{
		Name:     name,
		NumTiles: hdr.NumTiles,
		Settings: blob,
		Data:     data,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"num_tiles", "settings", "data", "updated_at"}),
	}).Create(row).Error
}

func (s *Store) Get(name string) (*Entry, error) {
	row := new(NavMeshSetGorm)
	err := s.db.Where("name = ?", name).First(row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	e := &Entry{Name: row.Name, NumTiles: row.NumTiles, Data: row.Data, UpdatedAt: row.UpdatedAt}
	if err := msgpack.Unmarshal(row.Settings, &e.Settings); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadNavMesh decodes the archived set name.
func (s *Store) LoadNavMesh(name string) (*detour.NavMesh, error) {
	e, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	return tilemesh.LoadMem(e.Data)
}

// List returns archived sets without their data, by name.
func (s *Store) List() ([]Entry, error) {
	var rows []NavMeshSetGorm
	err := s.db.Select("name", "num_tiles", "updated_at").Order("name").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]Entry, 0, len(rows))
	for _, row := range rows {
		res = append(res, Entry{Name: row.Name, NumTiles: row.NumTiles, UpdatedAt: row.UpdatedAt})
	}
	return res, nil
}

func (s *Store) Delete(name string) error {
	res := s.db.Where("name = ?", name).Delete(&NavMeshSetGorm{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
