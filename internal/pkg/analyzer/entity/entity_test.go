package entity

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	store, err := lexicon.Load()
	if err != nil {
		t.Fatalf("Loading lexicon: %v", err)
	}
	return NewExtractor(store, nil)
}

func typesOf(e *Extractor, text string) map[string][]string {
	bundle := e.Extract(context.Background(), text)
	byType := make(map[string][]string)
	for _, ent := range bundle.Entities {
		byType[ent.Type] = append(byType[ent.Type], ent.Text)
	}
	return byType
}

func TestExtractIdentifiers(t *testing.T) {
	e := newTestExtractor(t)
	byType := typesOf(e, "call me on 9876543210 or mail raj@example.com, see https://example.com/x and follow @rajx")

	if len(byType["PHONE"]) == 0 {
		t.Error("Expected phone number extraction")
	}
	if len(byType["EMAIL"]) == 0 {
		t.Error("Expected email extraction")
	}
	if len(byType["URL"]) == 0 {
		t.Error("Expected URL extraction")
	}
	if len(byType["HANDLE"]) == 0 {
		t.Error("Expected social handle extraction")
	}
}

func TestExtractFinancialIdentifiers(t *testing.T) {
	e := newTestExtractor(t)
	byType := typesOf(e, "PAN ABCDE1234F, transfer via SBIN0001234 to wallet 0x52908400098527886E0F7030069857D2E4169EE7")

	if len(byType["ID_PAN"]) == 0 {
		t.Error("Expected PAN extraction")
	}
	if len(byType["IFSC"]) == 0 {
		t.Error("Expected IFSC extraction")
	}
	if len(byType["CRYPTO_WALLET"]) == 0 {
		t.Error("Expected ethereum wallet extraction")
	}
}

func TestHeuristicNERClassifiesPlacesAndPersons(t *testing.T) {
	e := newTestExtractor(t)
	bundle := e.Extract(context.Background(), "Rajesh Kumar lives in Mumbai and works for Acme Group")

	var foundPerson, foundPlace, foundOrg bool
	for _, ent := range bundle.Entities {
		switch {
		case ent.Text == "Rajesh Kumar" && ent.Type == "PERSON":
			foundPerson = true
		case ent.Text == "Mumbai" && ent.Type == "GPE":
			foundPlace = true
		case ent.Text == "Acme Group" && ent.Type == "ORG":
			foundOrg = true
		}
	}
	if !foundPerson {
		t.Error("Expected Rajesh Kumar as PERSON")
	}
	if !foundPlace {
		t.Error("Expected Mumbai as GPE")
	}
	if !foundOrg {
		t.Error("Expected Acme Group as ORG")
	}
}

func TestMultiwordEntityConfidenceHigherThanSingle(t *testing.T) {
	e := newTestExtractor(t)
	bundle := e.Extract(context.Background(), "Rajesh Kumar met Vikram yesterday")

	var multi, single float64
	for _, ent := range bundle.Entities {
		switch ent.Text {
		case "Rajesh Kumar":
			multi = ent.Confidence
		case "Vikram":
			single = ent.Confidence
		}
	}
	if multi <= single {
		t.Errorf("Expected multi-word confidence (%v) above single-word (%v)", multi, single)
	}
}

func TestExtractRelationships(t *testing.T) {
	e := newTestExtractor(t)
	bundle := e.Extract(context.Background(), "Rajesh works for Acme and Vikram lives in Delhi")

	var employed, located bool
	for _, rel := range bundle.Relationships {
		if rel.Predicate == "EMPLOYED_BY" {
			employed = true
			if rel.Confidence != 0.6 {
				t.Errorf("Expected relationship confidence 0.6, got %v", rel.Confidence)
			}
		}
		if rel.Predicate == "LOCATED_IN" {
			located = true
		}
	}
	if !employed {
		t.Error("Expected EMPLOYED_BY relationship")
	}
	if !located {
		t.Error("Expected LOCATED_IN relationship")
	}
}

func TestExtractDomainTerms(t *testing.T) {
	e := newTestExtractor(t)
	byType := typesOf(e, "he bought a grenade and some heroin last week")

	if len(byType["WEAPON"]) == 0 {
		t.Error("Expected weapon term extraction")
	}
	if len(byType["DRUG"]) == 0 {
		t.Error("Expected drug term extraction")
	}
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(t)
	bundle := e.Extract(context.Background(), "   ")
	if len(bundle.Entities) != 0 {
		t.Errorf("Expected no entities, got %d", len(bundle.Entities))
	}
}

func TestDedupeRepeatedEntities(t *testing.T) {
	e := newTestExtractor(t)
	bundle := e.Extract(context.Background(), "Mumbai again Mumbai and once more Mumbai")

	count := 0
	for _, ent := range bundle.Entities {
		if ent.Text == "Mumbai" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected one deduplicated Mumbai entity, got %d", count)
	}
}
