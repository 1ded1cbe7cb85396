package trainer

import "time"

type Config struct {
	RebuildDBTime  time.Duration `envconfig:"KNC_TRAINER_REBUILD_DB_TIME" default:"5m"`
	MaxItemsStored int           `envconfig:"KNC_TRAINER_MAX_ITEMS_STORED"`
	MaxStorageTime time.Duration `envconfig:"KNC_TRAINER_MAX_STORAGE_TIME"`
	DbFlushTime    time.Duration `envconfig:"KNC_TRAINER_DB_FLUSH_TIME" default:"5s"`
	DbFlushSize    int           `envconfig:"KNC_TRAINER_DB_FLUSH_SIZE" default:"64"`
}
