package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/internal/pkg/cache"
	"github.com/ManuelReschke/TextFox/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pipelineCountersKey = "pipeline:counters"

// Add increments a named pipeline counter in Redis. Failures are returned
// but callers treat them as best-effort; counters never block processing.
func Add(name string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, pipelineCountersKey, name, 1).Err()
}

// FlushAll drains the pending counters into the usage_stats table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight
// increments.
func FlushAll() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", pipelineCountersKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", pipelineCountersKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return nil
		}
		return err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	db := database.GetDB()
	for name, raw := range data {
		inc, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || inc == 0 {
			continue
		}
		stat := models.UsageStat{Name: name, Count: inc}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + ?", inc)}),
		}).Create(&stat).Error
		if err != nil {
			return err
		}
	}
	return nil
}
