package projects

import (
	"testing"

	"sonarbind/internal/serverapi"
)

func TestSearchRanksFullMatchesFirst(t *testing.T) {
	index := NewSearchIndex()
	index.Index(serverapi.ServerProject{Key: "org.sonarsource.sonarlint:sonarlint-core-parent", Name: "SonarLint Core"})
	index.Index(serverapi.ServerProject{Key: "org.example:other", Name: "Other Project"})
	index.Index(serverapi.ServerProject{Key: "org.sonarsource:sonar-scanner", Name: "Sonar Scanner"})

	results := index.Search("sonarlint-core")
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Project.Name != "SonarLint Core" {
		t.Errorf("top result = %+v", results[0])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by descending score: %+v", results)
		}
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	index := NewSearchIndex()
	index.Index(serverapi.ServerProject{Key: "b:core", Name: "Core B"})
	index.Index(serverapi.ServerProject{Key: "a:core", Name: "Core A"})
	index.Index(serverapi.ServerProject{Key: "c:core", Name: "Core C"})

	first := index.Search("core")
	for run := 0; run < 10; run++ {
		again := index.Search("core")
		if len(again) != len(first) {
			t.Fatalf("result count changed between runs")
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: result[%d] = %+v, want %+v", run, i, again[i], first[i])
			}
		}
	}

	// Equal scores are ordered by key.
	if first[0].Project.Key != "a:core" || first[1].Project.Key != "b:core" || first[2].Project.Key != "c:core" {
		t.Errorf("tie order = %+v", first)
	}
}

func TestSearchEmptyQueryAndEmptyIndex(t *testing.T) {
	index := NewSearchIndex()
	if got := index.Search("anything"); got != nil {
		t.Errorf("empty index search = %v", got)
	}

	index.Index(serverapi.ServerProject{Key: "k", Name: "Name"})
	if got := index.Search("   "); got != nil {
		t.Errorf("blank query search = %v", got)
	}
}

func TestSearchNoMatchYieldsNothing(t *testing.T) {
	index := NewSearchIndex()
	index.Index(serverapi.ServerProject{Key: "org.example:billing", Name: "Billing Service"})

	if got := index.Search("zzz-unrelated"); len(got) != 0 {
		t.Errorf("search = %v, want no results", got)
	}
}
