package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"parchi/internal/core"
)

func TestExporterKeepsLastExport(t *testing.T) {
	e := New()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	res, err := e.ExportLedger(context.Background(), []core.Entry{{ID: "1", Category: core.ChaquePayables}}, asOf)
	if err != nil {
		t.Fatalf("ExportLedger() error = %v", err)
	}
	if res.Rows != 2 || res.Range != "mem!A1:P2" {
		t.Errorf("unexpected result: %+v", res)
	}
	if e.Exports() != 1 || !e.LastExport().Equal(asOf) || e.Rows()[1][0] != "1" {
		t.Errorf("export not recorded: %d %v %v", e.Exports(), e.LastExport(), e.Rows())
	}

	e.FailWith(errors.New("quota"))
	if _, err := e.ExportLedger(context.Background(), nil, asOf); err == nil {
		t.Error("expected failure")
	}
	if e.Exports() != 1 {
		t.Errorf("failed export counted")
	}
}
