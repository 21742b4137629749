package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// PostingLock is a held MySQL advisory lock. GET_LOCK is connection-scoped,
// so the lock pins a dedicated connection from the pool; that lets it stay
// held across the posting transaction's commit and be released on the same
// connection that acquired it.
type PostingLock struct {
	conn *sql.Conn
	name string
}

func acquirePostingLock(ctx context.Context, db *gorm.DB, name string) (*PostingLock, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var ok int
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 30)", name).Scan(&ok); err != nil {
		conn.Close()
		return nil, err
	}
	if ok != 1 {
		conn.Close()
		return nil, fmt.Errorf("could not acquire posting lock %s", name)
	}
	return &PostingLock{conn: conn, name: name}, nil
}

// Release frees the lock and returns its connection to the pool. Call it
// after the posting transaction has committed or rolled back; calling twice
// is a no-op.
func (l *PostingLock) Release() {
	if l == nil || l.conn == nil {
		return
	}
	var ok int
	_ = l.conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", l.name).Scan(&ok)
	l.conn.Close()
	l.conn = nil
}

// AcquireSessionPostingLock serializes cash-session lifecycle writes per
// operator across instances.
func AcquireSessionPostingLock(ctx context.Context, db *gorm.DB, pharmacyId string, operatorId int) (*PostingLock, error) {
	return acquirePostingLock(ctx, db, fmt.Sprintf("cash_session:%s:%d", pharmacyId, operatorId))
}

// AcquireIntakePostingLock serializes intake processing per document so the
// payable is generated at most once even across instances.
func AcquireIntakePostingLock(ctx context.Context, db *gorm.DB, pharmacyId string, intakeId int) (*PostingLock, error) {
	return acquirePostingLock(ctx, db, fmt.Sprintf("stock_intake:%s:%d", pharmacyId, intakeId))
}
