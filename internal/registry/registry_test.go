package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store/memory"
)

type failingSource struct{}

func (failingSource) LoadDefinitions(ctx context.Context) ([]model.PropertyDefinition, error) {
	return nil, errors.New("disk on fire")
}

func (failingSource) LoadMappings(ctx context.Context) ([]model.PropertyMapping, error) {
	return nil, nil
}

type sliceSource struct {
	defs     []model.PropertyDefinition
	mappings []model.PropertyMapping
}

func (s sliceSource) LoadDefinitions(ctx context.Context) ([]model.PropertyDefinition, error) {
	return s.defs, nil
}

func (s sliceSource) LoadMappings(ctx context.Context) ([]model.PropertyMapping, error) {
	return s.mappings, nil
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	if err := s.UpsertDefinition(ctx, model.PropertyDefinition{Key: model.Key("color", model.LangDE)}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDefinition(ctx, model.PropertyDefinition{Key: model.Key("weight", model.LangDE), DataType: model.TypeNumber, Unit: "kg"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertMapping(ctx, model.PropertyMapping{Original: "Gewicht netto", Language: model.LangDE, Standard: "net_weight", Confidence: 1}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRegistry_Load(t *testing.T) {
	r := New()
	if err := r.Load(context.Background(), seededStore(t)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(r.Definitions()) != 2 {
		t.Errorf("Expected 2 definitions, got %d", len(r.Definitions()))
	}
	m, ok := r.Mapping("Gewicht netto", model.LangDE)
	if !ok || m.Standard != "net_weight" {
		t.Errorf("Expected mapping to net_weight, got %+v (found=%v)", m, ok)
	}
	if _, ok := r.Mapping("Gewicht netto", model.LangEN); ok {
		t.Error("Mapping must be language scoped")
	}
}

func TestRegistry_KnownNamesIncludeMappingTargets(t *testing.T) {
	r := New()
	if err := r.Load(context.Background(), seededStore(t)); err != nil {
		t.Fatal(err)
	}

	known := r.KnownNames()
	for _, k := range []model.PropertyKey{
		model.Key("color", model.LangDE),
		model.Key("weight", model.LangDE),
		model.Key("net_weight", model.LangDE),
	} {
		if _, ok := known[k]; !ok {
			t.Errorf("Expected %s to be known", k)
		}
	}

	names := r.CandidateNames(model.LangDE)
	expected := []string{"color", "net_weight", "weight"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, names)
		}
	}
	if len(r.CandidateNames(model.LangEN)) != 0 {
		t.Error("Expected no English candidates")
	}
}

func TestRegistry_LoadFailureKeepsSnapshot(t *testing.T) {
	r := New()
	ctx := context.Background()
	if err := r.Load(ctx, seededStore(t)); err != nil {
		t.Fatal(err)
	}
	version := r.Version()

	if err := r.Reload(ctx, failingSource{}); err == nil {
		t.Fatal("Expected reload error")
	}
	if len(r.Definitions()) != 2 {
		t.Error("Failed reload must keep the previous snapshot")
	}
	if r.Version() != version {
		t.Error("Failed reload must not change the version")
	}
}

func TestRegistry_DuplicateRowsLastWins(t *testing.T) {
	r := New()
	src := sliceSource{
		mappings: []model.PropertyMapping{
			{Original: "Farbe", Language: model.LangDE, Standard: "colour", Confidence: 1},
			{Original: "Farbe", Language: model.LangDE, Standard: "color", Confidence: 1},
		},
	}
	if err := r.Load(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	m, _ := r.Mapping("Farbe", model.LangDE)
	if m.Standard != "color" {
		t.Errorf("Expected last duplicate to win, got %q", m.Standard)
	}
	if len(r.Mappings()) != 1 {
		t.Errorf("Expected one mapping, got %d", len(r.Mappings()))
	}
}

func TestRegistry_Confirm(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	r := New()
	if err := r.Load(ctx, s); err != nil {
		t.Fatal(err)
	}
	before := r.Version()

	m, err := r.Confirm(ctx, s, "Farbe (DE)", model.LangDE, "color")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if m.Confidence != model.ConfirmedConfidence {
		t.Errorf("Expected confirmed confidence, got %v", m.Confidence)
	}
	if r.Version() == before {
		t.Error("Expected version bump after confirm")
	}

	if got, ok := r.Mapping("Farbe (DE)", model.LangDE); !ok || got.Standard != "color" {
		t.Errorf("Snapshot not updated: %+v", got)
	}

	stored, _ := s.LoadMappings(ctx)
	found := false
	for _, sm := range stored {
		if sm.Original == "Farbe (DE)" && sm.Standard == "color" && sm.Authoritative() {
			found = true
		}
	}
	if !found {
		t.Errorf("Confirmed mapping not persisted: %+v", stored)
	}
}

func TestRegistry_ConfirmRejectsBadInput(t *testing.T) {
	r := New()
	s := memory.New()

	if _, err := r.Confirm(context.Background(), s, "", model.LangDE, "color"); err == nil {
		t.Error("Expected error for empty original")
	}
	if _, err := r.Confirm(context.Background(), s, "Farbe", "fr", "color"); err == nil {
		t.Error("Expected error for unsupported language")
	}
}

func TestRegistry_Remember(t *testing.T) {
	r := New()
	key := model.Key("schutzart", model.LangDE)

	r.Remember(model.PropertyDefinition{Key: key, DataType: model.TypeString})

	if _, ok := r.KnownNames()[key]; !ok {
		t.Error("Expected remembered definition to be known")
	}
	if _, ok := r.Definition(key); !ok {
		t.Error("Expected definition lookup to succeed")
	}
}
