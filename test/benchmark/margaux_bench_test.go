// Package benchmark provides performance benchmarks for Margaux.
package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/margauxdb/margaux/pkg/margaux"
	"github.com/margauxdb/margaux/pkg/types"
)

const benchSchema = `
CREATE TABLE "Plant" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"label" TEXT UNIQUE NOT NULL,
	"capacity" REAL NOT NULL DEFAULT 0
) STRICT;

CREATE TABLE "Plant_vector_costs" (
	"id" INTEGER NOT NULL,
	"vector_index" INTEGER NOT NULL,
	"costs" REAL NOT NULL,
	PRIMARY KEY ("id", "vector_index"),
	FOREIGN KEY ("id") REFERENCES "Plant" ("id") ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;

CREATE TABLE "Plant_time_series_generation" (
	"id" INTEGER NOT NULL,
	"date_time" TEXT NOT NULL,
	"generation" REAL,
	FOREIGN KEY ("id") REFERENCES "Plant" ("id") ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;
`

func openBenchDatabase(b *testing.B) *margaux.Database {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.db")
	db, err := margaux.FromSchema(context.Background(), path, benchSchema, margaux.Options{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { db.Close() })
	return db
}

func benchElement(i int) *types.Element {
	return types.NewElement().
		SetText("label", fmt.Sprintf("Plant %d", i)).
		SetReal("capacity", float64(i)).
		SetRealVector("costs", []float64{1.0, 2.0, 3.0, 4.0})
}

// BenchmarkCreateElement measures single-element insert throughput,
// including the vector group rows.
func BenchmarkCreateElement(b *testing.B) {
	db := openBenchDatabase(b)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := db.CreateElement(ctx, "Plant", benchElement(i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "elements/sec")
}

// BenchmarkCreateElements measures batched insert throughput, where all
// elements share one transaction.
func BenchmarkCreateElements(b *testing.B) {
	db := openBenchDatabase(b)
	ctx := context.Background()

	const batchSize = 100

	b.ResetTimer()
	b.ReportAllocs()

	total := 0
	for i := 0; i < b.N; i++ {
		batch := make([]*types.Element, batchSize)
		for j := range batch {
			batch[j] = benchElement(i*batchSize + j)
		}
		if _, err := db.CreateElements(ctx, "Plant", batch); err != nil {
			b.Fatal(err)
		}
		total += batchSize
	}

	b.ReportMetric(float64(total)/b.Elapsed().Seconds(), "elements/sec")
}

// BenchmarkReadScalarByLabel measures point reads resolved through the
// unique label column.
func BenchmarkReadScalarByLabel(b *testing.B) {
	db := openBenchDatabase(b)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if _, err := db.CreateElement(ctx, "Plant", benchElement(i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		label := fmt.Sprintf("Plant %d", i%1000)
		if _, err := db.ReadScalarByLabel(ctx, "Plant", "capacity", label); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReadElementVectorGroup measures vector group reads for a
// single element.
func BenchmarkReadElementVectorGroup(b *testing.B) {
	db := openBenchDatabase(b)
	ctx := context.Background()

	id, err := db.CreateElement(ctx, "Plant", benchElement(0))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := db.ReadElementVectorGroup(ctx, "Plant", types.ByID(id), "costs"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTimeSeriesAppend measures time-series group writes via
// element creation.
func BenchmarkTimeSeriesAppend(b *testing.B) {
	db := openBenchDatabase(b)
	ctx := context.Background()

	rowsPerSeries := 365
	dates := make([]types.Value, rowsPerSeries)
	values := make([]types.Value, rowsPerSeries)
	for i := range dates {
		dates[i] = types.Text(fmt.Sprintf("2026-%02d-%02d", i/31+1, i%31+1))
		values[i] = types.Real(float64(i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	totalRows := 0
	for i := 0; i < b.N; i++ {
		ts := types.NewTimeSeries().
			AddColumn("date_time", dates).
			AddColumn("generation", values)
		_, err := db.CreateElement(ctx, "Plant", types.NewElement().
			SetText("label", fmt.Sprintf("TS Plant %d", i)).
			AddTimeSeries("generation", ts))
		if err != nil {
			b.Fatal(err)
		}
		totalRows += rowsPerSeries
	}

	b.ReportMetric(float64(totalRows)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkCompareDatabases measures a full comparison of two identical
// databases with 500 elements each.
func BenchmarkCompareDatabases(b *testing.B) {
	ctx := context.Background()
	first := openBenchDatabase(b)
	second := openBenchDatabase(b)

	for _, db := range []*margaux.Database{first, second} {
		batch := make([]*types.Element, 500)
		for i := range batch {
			batch[i] = benchElement(i)
		}
		if _, err := db.CreateElements(ctx, "Plant", batch); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		diffs, err := first.CompareDatabases(ctx, second)
		if err != nil {
			b.Fatal(err)
		}
		if len(diffs) != 0 {
			b.Fatalf("expected identical databases, got %d differences", len(diffs))
		}
	}
}

// BenchmarkExecute measures raw SQL round-trips through the typed
// result path.
func BenchmarkExecute(b *testing.B) {
	db := openBenchDatabase(b)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if _, err := db.CreateElement(ctx, "Plant", benchElement(i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		res, err := db.Execute(ctx, `SELECT "id", "label", "capacity" FROM "Plant" WHERE "capacity" >= ?`, types.Real(50.0))
		if err != nil {
			b.Fatal(err)
		}
		if res.RowCount() != 50 {
			b.Fatalf("expected 50 rows, got %d", res.RowCount())
		}
	}
}
