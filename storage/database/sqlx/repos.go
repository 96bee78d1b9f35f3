package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
)

const pqUniqueViolation = "23505"

// getExec returns the service-provided transaction executor when there is
// one, the repository's own handle otherwise. The atomizer always hands out
// *sqlx.Tx, which satisfies both core.DBExecutor and sqlx.ExtContext.
func getExec(db *sqlx.DB, svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return db
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
