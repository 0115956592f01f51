package skos_test

import (
	"context"
	"testing"

	"github.com/zoobzio/noetic/skos"
	"github.com/zoobzio/noetic/skos/skostest"
)

func TestCreateScheme_RejectsDuplicateNotation(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()

	if _, err := graph.CreateScheme(ctx, "topics", "Topics", ""); err != nil {
		t.Fatalf("create scheme failed: %v", err)
	}
	if _, err := graph.CreateScheme(ctx, "topics", "Topics Again", ""); err == nil {
		t.Fatal("expected Conflict for duplicate notation, got nil")
	}
}

func TestCreateScheme_RejectsInvalidNotation(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()

	if _, err := graph.CreateScheme(ctx, "Not Valid!", "Bad", ""); err == nil {
		t.Fatal("expected InvalidInput for non-URL-safe notation, got nil")
	}
}

func TestCreateConcept_RequiresPrefLabel(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID}); err == nil {
		t.Fatal("expected InvalidInput for missing pref_label, got nil")
	}
}

func TestCreateConcept_StoresAllLabelKinds(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	concept, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{
		SchemeID:     scheme.ID,
		PrefLabel:    "Machine Learning",
		AltLabels:    []string{"ML"},
		HiddenLabels: []string{"machine-learning-typo"},
	})
	if err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	_, labels, err := graph.GetConcept(ctx, concept.ID)
	if err != nil {
		t.Fatalf("get concept failed: %v", err)
	}
	if len(labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(labels))
	}

	var sawPref, sawAlt, sawHidden bool
	for _, l := range labels {
		switch l.LabelType {
		case skos.LabelPreferred:
			sawPref = l.Label == "Machine Learning"
		case skos.LabelAlternate:
			sawAlt = l.Label == "ML"
		case skos.LabelHidden:
			sawHidden = l.Label == "machine-learning-typo"
		}
	}
	if !sawPref || !sawAlt || !sawHidden {
		t.Errorf("missing expected label kind: pref=%v alt=%v hidden=%v", sawPref, sawAlt, sawHidden)
	}
}

func TestAddRelation_RejectsSelfRelation(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	concept, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A"})

	if err := graph.AddRelation(ctx, concept.ID, concept.ID, skos.RelationRelated); err == nil {
		t.Fatal("expected InvalidInput for self-relation, got nil")
	}
}

func TestAddRelation_BroaderAlsoCreatesNarrowerInverse(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	parent, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Animal"})
	child, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Dog"})

	if err := graph.AddRelation(ctx, child.ID, parent.ID, skos.RelationBroader); err != nil {
		t.Fatalf("add relation failed: %v", err)
	}

	narrower, err := graph.Expand(ctx, parent.ID, skos.RelationNarrower, 0)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(narrower) != 1 || narrower[0] != child.ID {
		t.Errorf("expected parent's narrower set to contain child, got %v", narrower)
	}
}

func TestAddRelation_RejectsCycle(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	a, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A"})
	b, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "B"})
	c, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "C"})

	if err := graph.AddRelation(ctx, b.ID, a.ID, skos.RelationBroader); err != nil {
		t.Fatalf("a->b broader failed: %v", err)
	}
	if err := graph.AddRelation(ctx, c.ID, b.ID, skos.RelationBroader); err != nil {
		t.Fatalf("b->c broader failed: %v", err)
	}

	if err := graph.AddRelation(ctx, a.ID, c.ID, skos.RelationBroader); err == nil {
		t.Fatal("expected cycle rejection making c broader than a, got nil")
	}
}

func TestAddRelation_RelatedIsSymmetric(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	a, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A"})
	b, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "B"})

	if err := graph.AddRelation(ctx, a.ID, b.ID, skos.RelationRelated); err != nil {
		t.Fatalf("add relation failed: %v", err)
	}

	fromA, err := graph.Expand(ctx, a.ID, skos.RelationRelated, 0)
	if err != nil {
		t.Fatalf("expand from a failed: %v", err)
	}
	fromB, err := graph.Expand(ctx, b.ID, skos.RelationRelated, 0)
	if err != nil {
		t.Fatalf("expand from b failed: %v", err)
	}
	if len(fromA) != 1 || fromA[0] != b.ID {
		t.Errorf("expected a related to b, got %v", fromA)
	}
	if len(fromB) != 1 || fromB[0] != a.ID {
		t.Errorf("expected b related to a, got %v", fromB)
	}
}

func TestRemoveRelation_RemovesBothDirections(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	a, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A"})
	b, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "B"})

	if err := graph.AddRelation(ctx, a.ID, b.ID, skos.RelationRelated); err != nil {
		t.Fatalf("add relation failed: %v", err)
	}
	if err := graph.RemoveRelation(ctx, a.ID, b.ID, skos.RelationRelated); err != nil {
		t.Fatalf("remove relation failed: %v", err)
	}

	fromA, _ := graph.Expand(ctx, a.ID, skos.RelationRelated, 0)
	fromB, _ := graph.Expand(ctx, b.ID, skos.RelationRelated, 0)
	if len(fromA) != 0 || len(fromB) != 0 {
		t.Errorf("expected both directions removed, got a->%v b->%v", fromA, fromB)
	}
}

func TestExpand_DedupesAndExcludesSelf(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	root, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Root"})
	mid, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Mid"})
	leaf, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Leaf"})

	if err := graph.AddRelation(ctx, mid.ID, root.ID, skos.RelationBroader); err != nil {
		t.Fatalf("mid->root failed: %v", err)
	}
	if err := graph.AddRelation(ctx, leaf.ID, mid.ID, skos.RelationBroader); err != nil {
		t.Fatalf("leaf->mid failed: %v", err)
	}

	descendants, err := graph.Expand(ctx, root.ID, skos.RelationNarrower, 0)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(descendants) != 2 {
		t.Fatalf("expected 2 descendants, got %d: %v", len(descendants), descendants)
	}
	for _, id := range descendants {
		if id == root.ID {
			t.Error("expand should not include the origin concept")
		}
	}
}

func TestExpand_RespectsMaxDepth(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	root, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Root"})
	mid, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Mid"})
	leaf, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Leaf"})

	if err := graph.AddRelation(ctx, mid.ID, root.ID, skos.RelationBroader); err != nil {
		t.Fatalf("mid->root failed: %v", err)
	}
	if err := graph.AddRelation(ctx, leaf.ID, mid.ID, skos.RelationBroader); err != nil {
		t.Fatalf("leaf->mid failed: %v", err)
	}

	descendants, err := graph.Expand(ctx, root.ID, skos.RelationNarrower, 1)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(descendants) != 1 || descendants[0] != mid.ID {
		t.Errorf("expected depth-1 expand to stop at mid, got %v", descendants)
	}
}

func TestSearchConcepts_OrdersPreferredBeforeAlternateBeforeHidden(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{
		SchemeID: scheme.ID, PrefLabel: "cats", AltLabels: []string{"catz"}, HiddenLabels: []string{"cat-typo"},
	}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	matches, err := graph.SearchConcepts(ctx, "cat", skos.SearchFilter{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) < 2 {
		t.Fatalf("expected at least 2 fuzzy matches, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		prevRank := labelRank(matches[i-1].LabelType)
		curRank := labelRank(matches[i].LabelType)
		if curRank < prevRank {
			t.Errorf("expected non-decreasing label rank ordering, got %v then %v", matches[i-1].LabelType, matches[i].LabelType)
		}
	}
}

func labelRank(t skos.LabelType) int {
	switch t {
	case skos.LabelPreferred:
		return 0
	case skos.LabelAlternate:
		return 1
	case skos.LabelHidden:
		return 2
	default:
		return 3
	}
}

func TestSearchConcepts_FiltersByScheme(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	schemeA, _ := graph.CreateScheme(ctx, "animals", "Animals", "")
	schemeB, _ := graph.CreateScheme(ctx, "plants", "Plants", "")

	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: schemeA.ID, PrefLabel: "rose"}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}
	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: schemeB.ID, PrefLabel: "rose"}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	matches, err := graph.SearchConcepts(ctx, "rose", skos.SearchFilter{SchemeID: schemeA.ID})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, m := range matches {
		if m.SchemeID != schemeA.ID {
			t.Errorf("expected only matches from schemeA, got one from %s", m.SchemeID)
		}
	}
}

func TestCreateConcept_DefaultsStatusToCandidate(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	concept, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Golang"})
	if err != nil {
		t.Fatalf("create concept failed: %v", err)
	}
	if concept.Status != skos.StatusCandidate {
		t.Errorf("expected default status %q, got %q", skos.StatusCandidate, concept.Status)
	}
}

func TestCreateConcept_RoundTripsNotationStatusFacet(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	concept, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{
		SchemeID:  scheme.ID,
		PrefLabel: "Golang",
		Notation:  "lang-go",
		Status:    skos.StatusApproved,
		FacetType: skos.FacetMatter,
	})
	if err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	got, _, err := graph.GetConcept(ctx, concept.ID)
	if err != nil {
		t.Fatalf("get concept failed: %v", err)
	}
	if got.Notation != "lang-go" {
		t.Errorf("expected notation %q, got %q", "lang-go", got.Notation)
	}
	if got.Status != skos.StatusApproved {
		t.Errorf("expected status %q, got %q", skos.StatusApproved, got.Status)
	}
	if got.FacetType != skos.FacetMatter {
		t.Errorf("expected facet_type %q, got %q", skos.FacetMatter, got.FacetType)
	}
}

func TestCreateConcept_RejectsInvalidStatusAndFacet(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "x", Status: "archived"}); err == nil {
		t.Fatal("expected InvalidInput for unrecognized status, got nil")
	}
	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "y", FacetType: "color"}); err == nil {
		t.Fatal("expected InvalidInput for unrecognized facet_type, got nil")
	}
}

func TestSearchConcepts_FiltersByStatus(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "rose", Status: skos.StatusApproved}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}
	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "rosebud", Status: skos.StatusDeprecated}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	matches, err := graph.SearchConcepts(ctx, "rose", skos.SearchFilter{Status: skos.StatusApproved})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly 1 approved match, got %d", len(matches))
	}
	if matches[0].Label != "rose" {
		t.Errorf("expected match on %q, got %q", "rose", matches[0].Label)
	}
}

func TestTagNote_ExactMatchAssignsConcept(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	concept, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Golang"})

	result, err := graph.TagNote(ctx, "golang")
	if err != nil {
		t.Fatalf("tag note failed: %v", err)
	}
	if result.Outcome != skos.TagAssigned || result.ConceptID != concept.ID {
		t.Errorf("expected exact case-insensitive match to assign %s, got %+v", concept.ID, result)
	}
}

func TestTagNote_FuzzyMatchSuggestsWithoutAssigning(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Golang"}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	result, err := graph.TagNote(ctx, "golan")
	if err != nil {
		t.Fatalf("tag note failed: %v", err)
	}
	if result.Outcome != skos.TagSuggested || len(result.Suggested) == 0 {
		t.Errorf("expected a fuzzy suggestion, got %+v", result)
	}
}

func TestTagNote_NoMatchIsUnknown(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "Golang"}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	result, err := graph.TagNote(ctx, "zzzzzxxxqqq")
	if err != nil {
		t.Fatalf("tag note failed: %v", err)
	}
	if result.Outcome != skos.TagUnknown {
		t.Errorf("expected TagUnknown for unrelated text, got %v", result.Outcome)
	}
}

func TestGetSchemeByNotation_ResolvesToID(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	found, err := graph.GetSchemeByNotation(ctx, "topics")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.ID != scheme.ID {
		t.Errorf("expected id %s, got %s", scheme.ID, found.ID)
	}
}

func TestGetSchemeByNotation_NotFoundForUnknownNotation(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()

	if _, err := graph.GetSchemeByNotation(ctx, "does-not-exist"); err == nil {
		t.Fatal("expected NotFound, got nil")
	}
}

func TestDeleteScheme_RefusesWhenConceptsRemain(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	if _, err := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A"}); err != nil {
		t.Fatalf("create concept failed: %v", err)
	}

	if err := graph.DeleteScheme(ctx, scheme.ID); err == nil {
		t.Fatal("expected Conflict deleting a scheme with concepts assigned, got nil")
	}
}

func TestDeleteScheme_SucceedsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")

	if err := graph.DeleteScheme(ctx, scheme.ID); err != nil {
		t.Fatalf("expected empty scheme deletion to succeed, got %v", err)
	}
	if _, err := graph.GetScheme(ctx, scheme.ID); err == nil {
		t.Fatal("expected NotFound after deletion, got nil")
	}
}

func TestAddLabel_RejectsSecondPreferredLabelSameLanguage(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	concept, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A"})

	err := graph.AddLabel(ctx, concept.ID, skos.ConceptLabel{Label: "B", LabelType: skos.LabelPreferred, Language: "en"})
	if err == nil {
		t.Fatal("expected Conflict adding a second preferred label for the same language, got nil")
	}
}

func TestAddLabel_AllowsPreferredLabelInDifferentLanguage(t *testing.T) {
	ctx := context.Background()
	graph := skostest.New()
	scheme, _ := graph.CreateScheme(ctx, "topics", "Topics", "")
	concept, _ := graph.CreateConcept(ctx, skos.CreateConceptRequest{SchemeID: scheme.ID, PrefLabel: "A", Language: "en"})

	err := graph.AddLabel(ctx, concept.ID, skos.ConceptLabel{Label: "B", LabelType: skos.LabelPreferred, Language: "fr"})
	if err != nil {
		t.Fatalf("expected preferred label in a new language to succeed, got %v", err)
	}
}
