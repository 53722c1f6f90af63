package materialize

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/logdex/internal/domain"
)

func TestMaterialize_Fixed_MissingPathSoftMiss(t *testing.T) {
	svc := New(nil)
	rows := []domain.Row{{"a": 1}}

	res := svc.Materialize(rows, domain.FixedSchema([]string{"a", "b"}))
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	want := [][]string{{"1"}, {""}}
	if !reflect.DeepEqual(res.Records[0].Values, want) {
		t.Errorf("expected values %v, got %v", want, res.Records[0].Values)
	}
	if !res.Warning {
		t.Error("expected batch warning for missing path")
	}
	if len(res.Misses) != 1 || res.Misses[0].Path != "b" || res.Misses[0].Row != 0 {
		t.Errorf("unexpected miss detail: %+v", res.Misses)
	}
}

func TestMaterialize_Fixed_OneRecordPerRow_MissNeverAborts(t *testing.T) {
	svc := New(nil)
	rows := []domain.Row{
		{"a": "x", "b": "y"},
		{"a": "only-a"},
		{"b": "only-b"},
	}

	res := svc.Materialize(rows, domain.FixedSchema([]string{"a", "b"}))
	if len(res.Records) != len(rows) {
		t.Fatalf("expected %d records, got %d", len(rows), len(res.Records))
	}
	for i, rec := range res.Records {
		if len(rec.Values) != 2 {
			t.Errorf("record %d: expected 2 value lists, got %d", i, len(rec.Values))
		}
	}
	if got := res.Records[2].Values[0][0]; got != "" {
		t.Errorf("expected empty placeholder, got %q", got)
	}
	if got := res.Records[2].Values[1][0]; got != "only-b" {
		t.Errorf("expected %q, got %q", "only-b", got)
	}
	if !res.Warning {
		t.Error("expected warning")
	}
	if len(res.Misses) != 2 {
		t.Errorf("expected 2 misses, got %d", len(res.Misses))
	}
}

func TestMaterialize_Fixed_NoMiss_NoWarning(t *testing.T) {
	svc := New(nil)
	rows := []domain.Row{{"a": "1"}, {"a": "2"}}

	res := svc.Materialize(rows, domain.FixedSchema([]string{"a"}))
	if res.Warning {
		t.Error("unexpected warning")
	}
	if len(res.Misses) != 0 {
		t.Errorf("unexpected misses: %+v", res.Misses)
	}
	if res.Records[0].Values[0][0] != "1" || res.Records[1].Values[0][0] != "2" {
		t.Errorf("row order not preserved: %v", res.Records)
	}
}

func TestMaterialize_BlankPaths_BehaveAsInferred(t *testing.T) {
	svc := New(nil)
	rows := []domain.Row{{"b": 2, "a": 1}}

	inferred := svc.Materialize(rows, domain.InferredSchema())
	blank := svc.Materialize(rows, domain.FixedSchema([]string{""}))
	empty := svc.Materialize(rows, domain.FixedSchema(nil))

	for name, res := range map[string]Result{"blank": blank, "empty": empty} {
		if !reflect.DeepEqual(res.Fields, inferred.Fields) {
			t.Errorf("%s: fields %v, inferred %v", name, res.Fields, inferred.Fields)
		}
		if !reflect.DeepEqual(res.Records[0].Values, inferred.Records[0].Values) {
			t.Errorf("%s: values diverge from inferred mode", name)
		}
	}
}

func TestMaterialize_Inferred_SortedUnionOfKeys(t *testing.T) {
	svc := New(nil)
	rows := []domain.Row{
		{"zebra": "z", "alpha": "a"},
		{"mid": "m"},
	}

	res := svc.Materialize(rows, domain.InferredSchema())
	want := []string{"alpha", "mid", "zebra"}
	if !reflect.DeepEqual(res.Fields, want) {
		t.Fatalf("expected fields %v, got %v", want, res.Fields)
	}
	if res.Warning {
		t.Error("inference must tolerate ragged rows without warning")
	}
	// Second row has only "mid".
	wantValues := [][]string{{""}, {"m"}, {""}}
	if !reflect.DeepEqual(res.Records[1].Values, wantValues) {
		t.Errorf("expected %v, got %v", wantValues, res.Records[1].Values)
	}
}

func TestMaterialize_Idempotent_FreshIDs(t *testing.T) {
	svc := New(nil)
	rows := []domain.Row{{"a": 1, "b": "x"}, {"a": 2}}
	schema := domain.FixedSchema([]string{"a", "b"})

	first := svc.Materialize(rows, schema)
	second := svc.Materialize(rows, schema)

	if len(first.Records) != len(second.Records) {
		t.Fatalf("record counts diverge: %d vs %d", len(first.Records), len(second.Records))
	}
	for i := range first.Records {
		if !reflect.DeepEqual(first.Records[i].Values, second.Records[i].Values) {
			t.Errorf("record %d values diverge across calls", i)
		}
		if first.Records[i].ID == second.Records[i].ID {
			t.Errorf("record %d: ids must be freshly minted per call", i)
		}
		if first.Records[i].ID == "" {
			t.Errorf("record %d: empty id", i)
		}
	}
	if first.Warning != second.Warning {
		t.Error("warning flag diverges across calls")
	}
}

func TestMaterialize_EmptyRows(t *testing.T) {
	svc := New(nil)

	fixed := svc.Materialize(nil, domain.FixedSchema([]string{"a"}))
	if len(fixed.Records) != 0 || fixed.Warning {
		t.Errorf("expected empty, warning-free batch, got %+v", fixed)
	}

	inferred := svc.Materialize(nil, domain.InferredSchema())
	if len(inferred.Records) != 0 || len(inferred.Fields) != 0 {
		t.Errorf("expected empty batch, got %+v", inferred)
	}
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{true, "true"},
		{float64(42), "42"},
		{float64(1.5), "1.5"},
		{1, "1"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
		{[]any{"a", float64(1)}, `["a",1]`},
	}
	for _, c := range cases {
		if got := coerce(c.in); got != c.want {
			t.Errorf("coerce(%v): expected %q, got %q", c.in, c.want, got)
		}
	}
}
