package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vibration-monitor/utils"
)

// Example signal categories served to the dashboard and the real-mode stream.
const (
	CategoryNormal    = "normal"
	CategoryBall      = "fault/ball"
	CategoryInnerRace = "fault/inner_race"
	CategoryOuterRace = "fault/outer_race"
)

// Categories lists the example categories in the order they are offered.
var Categories = []string{CategoryNormal, CategoryBall, CategoryInnerRace, CategoryOuterRace}

// ErrNotFound is returned when no example exists for a category.
var ErrNotFound = errors.New("example not found")

// Example is one recorded vibration segment for a category.
type Example struct {
	Category     string    `json:"type" bson:"category"`
	Signal       []float64 `json:"signal" bson:"signal"`
	SamplingRate int       `json:"sampling_rate" bson:"sampling_rate"`
	Source       string    `json:"source,omitempty" bson:"source,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// ExampleStore persists example segments, one per category.
type ExampleStore interface {
	Close() error
	StoreExample(ctx context.Context, example Example) error
	GetExample(ctx context.Context, category string) (Example, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// IsKnownCategory reports whether category is one of Categories.
func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// NewExampleStore opens the store selected by DB_TYPE (sqlite or mongo).
func NewExampleStore(ctx context.Context) (ExampleStore, error) {
	dbType := utils.GetEnv("DB_TYPE", "sqlite")
	switch dbType {
	case "mongo":
		uri := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017")
		dbName := utils.GetEnv("MONGO_DB", "vibration")
		return NewMongoClient(ctx, uri, dbName)
	case "sqlite":
		return NewSQLiteClient(utils.GetEnv("SQLITE_PATH", "db/examples.sqlite3"))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
