package database

var autoMigrateModels []interface{}

// RegisterAutoMigrateModels queues models for automigration. Models
// call this from their package init so the schema follows the code.
func RegisterAutoMigrateModels(models ...interface{}) {
	autoMigrateModels = append(autoMigrateModels, models...)
}

// AutoMigrate runs gorm automigration over every registered model.
func AutoMigrate() error {
	if len(autoMigrateModels) == 0 {
		return nil
	}
	return Database().AutoMigrate(autoMigrateModels...)
}
