package api

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// lookupStatus classifies a single-row First lookup: 500 when the storage
// layer itself failed, 404 when the row is simply missing, 200 otherwise.
func lookupStatus(res *gorm.DB) int {
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return http.StatusInternalServerError
	}
	if res.RowsAffected != 1 {
		return http.StatusNotFound
	}
	return http.StatusOK
}
