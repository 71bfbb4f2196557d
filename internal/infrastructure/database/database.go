package database

import (
	"fmt"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/infrastructure/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 依設定開啟資料庫連線並跑 schema migration
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// SQL log 交給應用層的 logger，gorm 只在出錯時出聲
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if err := db.AutoMigrate(
		&catalog.Nutrient{},
		&catalog.NutrientAlias{},
		&catalog.DietaryReferenceValue{},
		&catalog.PersonProfile{},
		&catalog.CustomTarget{},
		&catalog.MealPlan{},
		&catalog.Ingredient{},
		&catalog.IngredientNutrientLink{},
		&catalog.FoodPortion{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}
