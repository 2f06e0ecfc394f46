package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolationCode is SQLSTATE 23505 (unique_violation).
const uniqueViolationCode = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
