package extract

import (
	"testing"

	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
	"github.com/gyeh/chargeload/internal/rowsource"
)

// mapRow is a minimal tabular Row for resolver tests.
type mapRow map[string]string

func (r mapRow) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}

func (r mapRow) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	return cols
}

func codeDescriptor(mutate func(*mapping.Descriptor)) *mapping.Descriptor {
	d := &mapping.Descriptor{
		FormatType: mapping.FormatTall,
		CodeExtraction: mapping.CodeExtraction{
			Columns:     []string{"code|1", "code|2"},
			TypeColumns: []string{"code|1|type", "code|2|type"},
		},
	}
	d.ApplyDefaults()
	if mutate != nil {
		mutate(d)
	}
	return d
}

func TestResolveCode_PriorityStable(t *testing.T) {
	d := codeDescriptor(func(d *mapping.Descriptor) {
		d.CodeExtraction.Priority = []string{"HCPCS", "Local"}
		f := false
		d.CodeExtraction.AutoNormalize = &f
	})

	// HCPCS must win regardless of column order.
	row1 := mapRow{"code|1": "12345", "code|1|type": "Local", "code|2": "A1234", "code|2|type": "HCPCS"}
	row2 := mapRow{"code|1": "A1234", "code|1|type": "HCPCS", "code|2": "12345", "code|2|type": "Local"}

	for _, row := range []mapRow{row1, row2} {
		code, scheme := ResolveCode(row, d)
		if code != "A1234" || scheme != "HCPCS" {
			t.Errorf("got (%q, %q), want (A1234, HCPCS)", code, scheme)
		}
	}
}

func TestResolveCode_TieKeepsFirstSeen(t *testing.T) {
	d := codeDescriptor(func(d *mapping.Descriptor) {
		f := false
		d.CodeExtraction.AutoNormalize = &f
	})
	row := mapRow{"code|1": "0470", "code|1|type": "MS-DRG", "code|2": "0471", "code|2|type": "MS-DRG"}
	code, _ := ResolveCode(row, d)
	if code != "0470" {
		t.Errorf("tie should keep first-seen column, got %q", code)
	}
}

func TestResolveCode_FixedWidthDowngrade(t *testing.T) {
	d := codeDescriptor(func(d *mapping.Descriptor) {
		f := false
		d.CodeExtraction.AutoNormalize = &f
	})
	// A 6-character "CPT" is a mislabeled internal code.
	row := mapRow{"code|1": "123456", "code|1|type": "CPT"}
	code, scheme := ResolveCode(row, d)
	if code != "123456" || scheme != model.SchemeLocal {
		t.Errorf("got (%q, %q), want downgrade to Local", code, scheme)
	}
}

func TestResolveCode_AutoNormalize(t *testing.T) {
	d := codeDescriptor(nil)

	tests := []struct {
		row        mapRow
		wantCode   string
		wantScheme string
	}{
		// 5 digits, no declared scheme → CPT.
		{mapRow{"code|1": "99213"}, "99213", model.SchemeCPT},
		// 5 chars starting with a letter → HCPCS.
		{mapRow{"code|1": "A1234"}, "A1234", model.SchemeHCPCS},
		// 4 digits → neither; stays unknown.
		{mapRow{"code|1": "1234"}, "1234", model.SchemeUnknown},
		// Wrong declared scheme corrected by format.
		{mapRow{"code|1": "99213", "code|1|type": "HCPCS"}, "99213", model.SchemeCPT},
	}
	for _, tt := range tests {
		code, scheme := ResolveCode(tt.row, d)
		if code != tt.wantCode || scheme != tt.wantScheme {
			t.Errorf("ResolveCode(%v): got (%q, %q), want (%q, %q)",
				tt.row, code, scheme, tt.wantCode, tt.wantScheme)
		}
	}
}

func TestResolveCode_NoCandidate(t *testing.T) {
	d := codeDescriptor(nil)
	code, scheme := ResolveCode(mapRow{"code|1": "", "description": "x"}, d)
	if code != model.CodeUnknown || scheme != model.SchemeUnknown {
		t.Errorf("got (%q, %q), want (UNKNOWN, UNKNOWN)", code, scheme)
	}
}

func TestResolveCode_UnknownSchemeSortsLast(t *testing.T) {
	d := codeDescriptor(func(d *mapping.Descriptor) {
		f := false
		d.CodeExtraction.AutoNormalize = &f
	})
	row := mapRow{"code|1": "XYZ99", "code|1|type": "Mystery", "code|2": "470", "code|2|type": "MS-DRG"}
	code, scheme := ResolveCode(row, d)
	if code != "470" || scheme != "MS-DRG" {
		t.Errorf("got (%q, %q), want known scheme to beat unknown", code, scheme)
	}
}

func TestResolveCode_NestedJSONCodeObject(t *testing.T) {
	d := codeDescriptor(func(d *mapping.Descriptor) {
		d.CodeExtraction.Columns = []string{"code_information"}
		d.CodeExtraction.TypeColumns = nil
		f := false
		d.CodeExtraction.AutoNormalize = &f
	})
	row := rowsource.NewJSONRow(map[string]any{
		"code_information": []any{
			map[string]any{"code": "470", "type": "MS-DRG"},
		},
	})
	code, scheme := ResolveCode(row, d)
	if code != "470" || scheme != "MS-DRG" {
		t.Errorf("got (%q, %q), want (470, MS-DRG)", code, scheme)
	}
}
