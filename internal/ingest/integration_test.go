package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/chargeload/internal/config"
	"github.com/gyeh/chargeload/internal/db"
	"github.com/gyeh/chargeload/internal/ingest"
	"github.com/gyeh/chargeload/internal/logging"
	"github.com/gyeh/chargeload/internal/mapping"
)

const (
	testPort     = 15433
	testDB       = "chargetest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

func TestMain(m *testing.M) {
	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30*time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}

	os.Exit(code)
}

// setupDB creates a connection pool and applies migrations on a clean schema.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	for _, table := range []string{"prices", "items", "code_definitions"} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			t.Fatalf("drop table %s: %v", table, err)
		}
	}

	log := logging.Setup("text")
	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// tallDescriptor configures the common CMS tall layout: one payer per row,
// payer identity in a column.
func tallDescriptor(t *testing.T) *mapping.Descriptor {
	t.Helper()
	d := &mapping.Descriptor{
		FormatType: mapping.FormatTall,
		CodeExtraction: mapping.CodeExtraction{
			Columns:     []string{"code|1"},
			TypeColumns: []string{"code|1|type"},
		},
		PriceExtraction: mapping.PriceExtraction{
			PayerStyle:  mapping.PayerStyleColumn,
			PayerColumn: "payer_name",
			PlanColumn:  "plan_name",
			PriceColumn: "standard_charge|negotiated_dollar",
		},
	}
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	return d
}

const tallCSV = `code|1,code|1|type,description,setting,payer_name,plan_name,standard_charge|negotiated_dollar,standard_charge|gross,standard_charge|discounted_cash
99213,CPT,Office Visit,outpatient,Aetna,PPO,150.00,300.00,200.00
99213,CPT,Office Visit,outpatient,Cigna,HMO,145.50,300.00,200.00
470,MS-DRG,Joint Replacement,inpatient,Aetna,PPO,15000,30000,
`

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	return n
}

func TestRun_TallCSV(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	file := writeFixture(t, "tall.csv", tallCSV)
	d := tallDescriptor(t)

	summary, err := ingest.Run(ctx, pool, log, d, "hosp-001", file)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	t.Run("summary_metrics", func(t *testing.T) {
		if summary.RowsRead != 3 {
			t.Errorf("RowsRead: got %d, want 3", summary.RowsRead)
		}
		if summary.RowsSkipped != 0 {
			t.Errorf("RowsSkipped: got %d, want 0", summary.RowsSkipped)
		}
		if summary.ItemsCreated != 2 {
			t.Errorf("ItemsCreated: got %d, want 2", summary.ItemsCreated)
		}
		// 99213: Aetna + Cigna + 1 gross + 1 cash (reference prices dedupe
		// across the two rows). 470: Aetna + gross, blank cash. Total 6.
		if summary.OffersCreated != 6 {
			t.Errorf("OffersCreated: got %d, want 6", summary.OffersCreated)
		}
	})

	t.Run("item_normalization", func(t *testing.T) {
		var codeType, setting string
		err := pool.QueryRow(ctx,
			"SELECT code_type, setting FROM items WHERE code = $1 AND hospital_id = $2",
			"99213", "hosp-001").Scan(&codeType, &setting)
		if err != nil {
			t.Fatalf("query item: %v", err)
		}
		if codeType != "CPT" {
			t.Errorf("code_type: got %q, want CPT", codeType)
		}
		if setting != "outpatient" {
			t.Errorf("setting: got %q, want outpatient", setting)
		}
	})

	t.Run("negotiated_offer", func(t *testing.T) {
		var amount float64
		err := pool.QueryRow(ctx, `
			SELECT p.amount FROM prices p
			JOIN items i ON i.id = p.item_id
			WHERE i.code = '99213' AND p.payer = 'Aetna'`).Scan(&amount)
		if err != nil {
			t.Fatalf("query offer: %v", err)
		}
		if amount != 150.00 {
			t.Errorf("amount: got %v, want 150.00", amount)
		}
	})

	t.Run("reference_offers", func(t *testing.T) {
		gross := countRows(t, pool, `
			SELECT count(*) FROM prices p
			JOIN items i ON i.id = p.item_id
			WHERE i.code = '99213' AND p.payer = 'GROSS'`)
		if gross != 1 {
			t.Errorf("gross offers for 99213: got %d, want 1", gross)
		}
		cash := countRows(t, pool, `
			SELECT count(*) FROM prices p
			JOIN items i ON i.id = p.item_id
			WHERE i.code = '470' AND p.payer = 'DISCOUNTED_CASH'`)
		if cash != 0 {
			t.Errorf("cash offers for 470 with blank cell: got %d, want 0", cash)
		}
	})
}

func TestRun_Idempotent(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	file := writeFixture(t, "tall.csv", tallCSV)
	d := tallDescriptor(t)

	first, err := ingest.Run(ctx, pool, log, d, "hosp-001", file)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := ingest.Run(ctx, pool, log, d, "hosp-001", file)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if second.ItemsDeleted != first.ItemsCreated {
		t.Errorf("ItemsDeleted: got %d, want %d", second.ItemsDeleted, first.ItemsCreated)
	}
	if second.ItemsCreated != first.ItemsCreated || second.OffersCreated != first.OffersCreated {
		t.Errorf("second run differs: items %d/%d, offers %d/%d",
			second.ItemsCreated, first.ItemsCreated, second.OffersCreated, first.OffersCreated)
	}

	items := countRows(t, pool, "SELECT count(*) FROM items WHERE hospital_id = 'hosp-001'")
	if items != first.ItemsCreated {
		t.Errorf("items after re-run: got %d, want %d", items, first.ItemsCreated)
	}
}

func TestRun_IsolatesHospitals(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	file := writeFixture(t, "tall.csv", tallCSV)
	d := tallDescriptor(t)

	if _, err := ingest.Run(ctx, pool, log, d, "hosp-001", file); err != nil {
		t.Fatalf("Run hosp-001: %v", err)
	}
	if _, err := ingest.Run(ctx, pool, log, d, "hosp-002", file); err != nil {
		t.Fatalf("Run hosp-002: %v", err)
	}
	// Re-ingesting one hospital must not disturb the other.
	if _, err := ingest.Run(ctx, pool, log, d, "hosp-001", file); err != nil {
		t.Fatalf("re-Run hosp-001: %v", err)
	}

	other := countRows(t, pool, "SELECT count(*) FROM items WHERE hospital_id = 'hosp-002'")
	if other != 2 {
		t.Errorf("hosp-002 items after hosp-001 re-run: got %d, want 2", other)
	}
}

func TestRun_WideHeaderStyle(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	csv := `code|1,code|1|type,description,standard_charge|Cigna|Open Access|negotiated_dollar,standard_charge|Aetna|PPO|negotiated_dollar,standard_charge|gross,standard_charge|min
99213,CPT,Office Visit,200,185.25,300,100
`
	file := writeFixture(t, "wide.csv", csv)

	d := &mapping.Descriptor{
		FormatType: mapping.FormatWide,
		CodeExtraction: mapping.CodeExtraction{
			Columns:     []string{"code|1"},
			TypeColumns: []string{"code|1|type"},
		},
		PriceExtraction: mapping.PriceExtraction{
			PayerStyle: mapping.PayerStyleHeader,
		},
	}
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("descriptor: %v", err)
	}

	summary, err := ingest.Run(ctx, pool, log, d, "hosp-wide", file)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ItemsCreated != 1 {
		t.Errorf("ItemsCreated: got %d, want 1", summary.ItemsCreated)
	}
	// Cigna + Aetna + gross; the |min suffix is reserved, not a plan.
	if summary.OffersCreated != 3 {
		t.Errorf("OffersCreated: got %d, want 3", summary.OffersCreated)
	}

	var plan string
	var amount float64
	err = pool.QueryRow(ctx, `
		SELECT p.plan, p.amount FROM prices p WHERE p.payer = 'Cigna'`).Scan(&plan, &amount)
	if err != nil {
		t.Fatalf("query Cigna offer: %v", err)
	}
	if plan != "Open Access" || amount != 200 {
		t.Errorf("Cigna offer: got (%q, %v), want (Open Access, 200)", plan, amount)
	}
}

func TestRun_JSONFormat(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	jsonDoc := `{"hospital_name": "General", "standard_charge_information": [
		{
			"description": "MRI Brain",
			"code_information": [{"code": "70551", "type": "CPT"}],
			"standard_charges": [
				{
					"setting": "outpatient",
					"gross_charge": 2000,
					"discounted_cash": 1500,
					"payers_information": [
						{"payer_name": "Aetna", "plan_name": "PPO", "standard_charge_dollar": 1200},
						{"payer_name": "UHC", "standard_charge_percentage": 75,
						 "methodology": "percent of gross",
						 "additional_payer_notes": "excludes implants"}
					]
				}
			]
		},
		{
			"description": "No Code Item",
			"code_information": [],
			"standard_charges": []
		}
	]}`
	file := writeFixture(t, "mrf.json", jsonDoc)

	d := &mapping.Descriptor{
		FormatType: mapping.FormatJSON,
		CodeExtraction: mapping.CodeExtraction{
			Columns: []string{"code_information"},
		},
		SettingExtraction: mapping.SettingExtraction{
			Primary: "setting",
		},
	}
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("descriptor: %v", err)
	}

	summary, err := ingest.Run(ctx, pool, log, d, "hosp-json", file)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RowsRead != 2 {
		t.Errorf("RowsRead: got %d, want 2", summary.RowsRead)
	}
	if summary.RowsSkipped != 1 {
		t.Errorf("RowsSkipped: got %d, want 1", summary.RowsSkipped)
	}
	if summary.ItemsCreated != 1 {
		t.Errorf("ItemsCreated: got %d, want 1", summary.ItemsCreated)
	}
	// Aetna + UHC + gross + cash.
	if summary.OffersCreated != 4 {
		t.Errorf("OffersCreated: got %d, want 4", summary.OffersCreated)
	}

	t.Run("percentage_offer", func(t *testing.T) {
		var pct float64
		var notes string
		err := pool.QueryRow(ctx, `
			SELECT p.percentage, p.notes FROM prices p
			WHERE p.payer = 'UHC'`).Scan(&pct, &notes)
		if err != nil {
			t.Fatalf("query UHC offer: %v", err)
		}
		if pct != 75 {
			t.Errorf("percentage: got %v, want 75", pct)
		}
		want := "PERCENTAGE: 75% (percent of gross); excludes implants"
		if notes != want {
			t.Errorf("notes: got %q, want %q", notes, want)
		}
	})

	t.Run("setting_from_detail", func(t *testing.T) {
		var setting string
		err := pool.QueryRow(ctx,
			"SELECT setting FROM items WHERE code = '70551'").Scan(&setting)
		if err != nil {
			t.Fatalf("query item: %v", err)
		}
		if setting != "outpatient" {
			t.Errorf("setting: got %q, want outpatient", setting)
		}
	})
}

func TestRunBatch_FailureIsolation(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	goodFile := writeFixture(t, "good.csv", tallCSV)
	descJSON := `{
		"format_type": "tall",
		"code_extraction": {"columns": ["code|1"], "type_columns": ["code|1|type"]},
		"price_extraction": {
			"payer_style": "column",
			"payer_column": "payer_name",
			"plan_column": "plan_name",
			"price_column": "standard_charge|negotiated_dollar"
		}
	}`
	descFile := writeFixture(t, "desc.json", descJSON)

	manifest := &config.Manifest{
		Hospitals: []config.BatchEntry{
			{HospitalID: "hosp-ok", File: goodFile, Mapping: descFile},
			{HospitalID: "hosp-bad", File: filepath.Join(t.TempDir(), "missing.csv"), Mapping: descFile},
			{HospitalID: "hosp-ok-2", File: goodFile, Mapping: descFile},
		},
	}

	batch := ingest.RunBatch(ctx, pool, log, manifest)

	if batch.Succeeded != 2 {
		t.Errorf("Succeeded: got %d, want 2", batch.Succeeded)
	}
	if batch.Failed != 1 {
		t.Errorf("Failed: got %d, want 1", batch.Failed)
	}
	if batch.Results[1].Err == nil {
		t.Error("expected error for hosp-bad")
	}

	// The hospital ingested before the failure keeps its data.
	items := countRows(t, pool, "SELECT count(*) FROM items WHERE hospital_id = 'hosp-ok'")
	if items != 2 {
		t.Errorf("hosp-ok items: got %d, want 2", items)
	}
}

func TestLoadDefinitions(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	log := logging.Setup("text")

	file := writeFixture(t, "defs.csv", `code,short_description,long_description
99213,Office visit est,Office/outpatient visit established patient
70551,MRI brain,MRI brain without contrast
`)
	n, err := ingest.LoadDefinitions(ctx, pool, log, file)
	if err != nil {
		t.Fatalf("LoadDefinitions: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded: got %d, want 2", n)
	}

	// Re-loading with changed text updates in place.
	file2 := writeFixture(t, "defs2.csv", `code,short_description,long_description
99213,Office visit,Updated long text
`)
	if _, err := ingest.LoadDefinitions(ctx, pool, log, file2); err != nil {
		t.Fatalf("reload: %v", err)
	}

	var short string
	err = pool.QueryRow(ctx,
		"SELECT short_description FROM code_definitions WHERE code = '99213'").Scan(&short)
	if err != nil {
		t.Fatalf("query definition: %v", err)
	}
	if short != "Office visit" {
		t.Errorf("short_description: got %q, want %q", short, "Office visit")
	}
	total := countRows(t, pool, "SELECT count(*) FROM code_definitions")
	if total != 2 {
		t.Errorf("definitions: got %d, want 2", total)
	}
}

func TestPlan_NoWrites(t *testing.T) {
	pool := setupDB(t)
	log := logging.Setup("text")

	file := writeFixture(t, "tall.csv", tallCSV)
	d := tallDescriptor(t)

	report, err := ingest.Plan(log, d, file)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if report.Items != 2 || report.Offers != 6 {
		t.Errorf("plan counts: got items=%d offers=%d, want 2/6", report.Items, report.Offers)
	}
	if report.Schemes["CPT"] != 1 || report.Schemes["MS-DRG"] != 1 {
		t.Errorf("scheme distribution: got %v", report.Schemes)
	}

	items := countRows(t, pool, "SELECT count(*) FROM items")
	if items != 0 {
		t.Errorf("plan wrote %d items, want 0", items)
	}
}
