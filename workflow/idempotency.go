package workflow

import (
	"errors"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/huastex/huastex_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// stale STARTED keys may be retried after this long.
const idempotencyStaleAfter = 5 * time.Minute

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func idempotencyQuery(tx *gorm.DB, scope, handlerName, messageId string) *gorm.DB {
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope = ? AND handler_name = ? AND message_id = ?", scope, handlerName, messageId)
}

// BeginIdempotency inserts STARTED. If SUCCEEDED exists, returns (true, nil) meaning "skip safely".
// The existing row is looked up first so a duplicate insert never aborts the caller's transaction.
func BeginIdempotency(tx *gorm.DB, scope, handlerName, messageId string) (skip bool, err error) {
	var existing models.IdempotencyKey
	err = idempotencyQuery(tx, scope, handlerName, messageId).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		key := models.IdempotencyKey{
			Scope:       scope,
			HandlerName: handlerName,
			MessageId:   messageId,
			Status:      models.IdempotencyStatusStarted,
		}
		if err := tx.Create(&key).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return false, ErrIdempotencyInProgress
			}
			return false, err
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < idempotencyStaleAfter {
			return false, ErrIdempotencyInProgress
		}
	}
	return false, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkIdempotencySucceeded(tx *gorm.DB, scope, handlerName, messageId string, resultId int) error {
	return idempotencyQuery(tx, scope, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "result_id": resultId, "last_error": nil}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, scope, handlerName, messageId string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return idempotencyQuery(tx, scope, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

// GetIdempotencyResult returns the result id of a SUCCEEDED key.
func GetIdempotencyResult(tx *gorm.DB, scope, handlerName, messageId string) (int, error) {
	var existing models.IdempotencyKey
	if err := idempotencyQuery(tx, scope, handlerName, messageId).First(&existing).Error; err != nil {
		return 0, err
	}
	return existing.ResultId, nil
}
