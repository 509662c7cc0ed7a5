package shared

import (
	"errors"
	"strings"
	"testing"

	"github.com/relloyd/obspipe/logger"
)

func TestMockConnectionTransactions(t *testing.T) {
	log := logger.NewLogger("obspipe", "info", true)
	db := NewMockConnectionWithMockTx(log, "mock")
	tx, _ := db.Begin()
	_, _ = tx.Exec("delete from t")
	_ = tx.Rollback()
	if len(db.CommittedStatements()) != 0 {
		t.Fatal("expected rolled back statements to stay uncommitted")
	}
	tx, _ = db.Begin()
	_, _ = tx.Exec("insert into t values (:1)", 1)
	_ = tx.Commit()
	if got := db.CommittedStatements(); len(got) != 1 || got[0].Sql != "insert into t values (:1)" {
		t.Fatalf("unexpected committed statements: %v", got)
	}
	if db.Commits != 1 || db.Rollbacks != 1 {
		t.Fatalf("unexpected commit/rollback counts: %v/%v", db.Commits, db.Rollbacks)
	}
	db.ExecErr = func(sql string) error {
		if strings.HasPrefix(sql, "insert") {
			return errors.New("boom")
		}
		return nil
	}
	if _, err := db.Exec("insert into t values (:1)", 2); err == nil {
		t.Fatal("expected injected error")
	}
	if len(db.ExecutedStatements()) != 3 {
		t.Fatalf("expected 3 executed statements; got %v", len(db.ExecutedStatements()))
	}
}
