package shared

import (
	"regexp"
	"testing"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/obspipe/logger"
)

func newTestInsertBatcher(bind BindStyle, schema string) SqlStmtTxtBatcher {
	log := logger.NewLogger("obspipe", "debug", true)
	cols := ordered_map.NewOrderedMap()
	cols.Set("col1", "a")
	cols.Set("col2", "b")
	cols.Set("col3", "c")
	dml := &DmlGeneratorTxtBatch{Bind: bind}
	return dml.NewInsertGenerator(&SqlStatementGeneratorConfig{
		Log:          log,
		OutputSchema: schema,
		OutputTable:  "t2",
		TargetCols:   cols}).(SqlStmtTxtBatcher)
}

func TestSqlInsert(t *testing.T) {
	o := newTestInsertBatcher(BindColonN, "")
	var batchIsFull bool
	var err error

	// Create new batch of values size 2.
	o.InitBatch(2)
	batchIsFull, err = o.AddValuesToBatch([]interface{}{"x", "y", 123})
	if err != nil {
		t.Fatal(err)
	}
	if batchIsFull {
		t.Fatal("The batch should have room for one more row.")
	}
	batchIsFull, err = o.AddValuesToBatch([]interface{}{"p", "q", 2})
	if err != nil {
		t.Fatal(err)
	}
	if !batchIsFull {
		t.Fatal("The batch *should* be full but it is not.")
	}
	if _, err = o.AddValuesToBatch([]interface{}{"p", "q", 2}); err == nil {
		t.Fatal("expected error adding to a full batch")
	}

	// Wrong number of values.
	o.InitBatch(1)
	if _, err = o.AddValuesToBatch([]interface{}{"a", "b", 456, 789}); err == nil {
		t.Fatal("There should have been an error. Incorrect number of values deliberately supplied in batch.")
	}

	// Single row.
	o.InitBatch(1)
	if _, err = o.AddValuesToBatch([]interface{}{"a", "b", 456}); err != nil {
		t.Fatal(err)
	}
	if len(o.GetValues()) != 3 {
		t.Fatal("Error, incorrect number of args.")
	}
	re := regexp.MustCompile("[\t\r\n\f]")
	expected := `insert into t2 (a,b,c) values ( :1,:2,:3 )`
	got := re.ReplaceAllString(o.GetStatement(), " ")
	if got != expected {
		t.Fatalf("Bad SQL INSERT generated: expected = '%v'; got = '%v'", expected, got)
	}

	// Two rows.
	o.InitBatch(2)
	_, _ = o.AddValuesToBatch([]interface{}{"a", "b", 456})
	_, _ = o.AddValuesToBatch([]interface{}{"c", "d", 789})
	expected = `insert into t2 (a,b,c) values ( :1,:2,:3 ),( :4,:5,:6 )`
	got = re.ReplaceAllString(o.GetStatement(), " ")
	if expected != got {
		t.Fatalf("Bad SQL INSERT generated: expected = '%v'; got = '%v'", expected, got)
	}
}

func TestSqlInsertPartialBatch(t *testing.T) {
	o := newTestInsertBatcher(BindDollarN, "jcr")
	o.InitBatch(10)
	_, _ = o.AddValuesToBatch([]interface{}{1, 2, 3})
	expected := `insert into jcr.t2 (a,b,c) values ( $1,$2,$3 )`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("expected = '%v'; got = '%v'", expected, got)
	}
}

func TestBindStyles(t *testing.T) {
	cases := map[BindStyle]string{
		BindColonN:   ":7",
		BindQuestion: "?",
		BindDollarN:  "$7",
		BindAtPN:     "@p7",
	}
	for b, expected := range cases {
		if got := b.Placeholder(7); got != expected {
			t.Fatalf("expected %v; got %v", expected, got)
		}
	}
}

func TestGetMaxRowsPerBatch(t *testing.T) {
	d := &DmlGeneratorTxtBatch{MaxBindValues: 2000}
	if got := d.GetMaxRowsPerBatch(20, 500); got != 100 {
		t.Fatalf("expected 100; got %v", got)
	}
	if got := d.GetMaxRowsPerBatch(2, 500); got != 500 {
		t.Fatalf("expected 500; got %v", got)
	}
	unlimited := &DmlGeneratorTxtBatch{}
	if got := unlimited.GetMaxRowsPerBatch(20, 0); got != 1 {
		t.Fatalf("expected 1; got %v", got)
	}
}
