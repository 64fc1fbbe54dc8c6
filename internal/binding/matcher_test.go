package binding

import (
	"reflect"
	"testing"

	"sonarbind/internal/events"
	"sonarbind/internal/repository"
)

func newMatcherFixture(t *testing.T) (*ConnectionMatcher, *repository.ConnectionRepository) {
	t.Helper()
	conns := repository.NewConnectionRepository(events.NewBus())
	for _, c := range []repository.ConnectionConfiguration{
		{ID: "sq1", Kind: repository.KindSonarQube, URL: "https://sonar.example.com"},
		{ID: "sq2", Kind: repository.KindSonarQube, URL: "https://other.example.com"},
		{ID: "sc1", Kind: repository.KindSonarCloud, Organization: "my-org"},
		{ID: "sc2", Kind: repository.KindSonarCloud, Organization: "other-org"},
	} {
		if err := conns.Add(c); err != nil {
			t.Fatalf("add %s: %v", c.ID, err)
		}
	}
	return NewConnectionMatcher(conns), conns
}

func allIDs() []string { return []string{"sq1", "sq2", "sc1", "sc2"} }

func TestMatchingConnections(t *testing.T) {
	matcher, _ := newMatcherFixture(t)

	tests := []struct {
		name string
		clue Clue
		want []string
	}{
		{
			name: "server url narrows to one self-hosted connection",
			clue: SonarQubeClue{Key: "k", ServerURL: "https://sonar.example.com/"},
			want: []string{"sq1"},
		},
		{
			name: "unknown server url matches nothing",
			clue: SonarQubeClue{Key: "k", ServerURL: "https://unknown.example.com"},
			want: nil,
		},
		{
			name: "organization narrows to one cloud connection",
			clue: SonarCloudClue{Key: "k", Organization: "my-org"},
			want: []string{"sc1"},
		},
		{
			name: "cloud clue without organization keeps every cloud connection",
			clue: SonarCloudClue{Key: "k"},
			want: []string{"sc1", "sc2"},
		},
		{
			name: "clue without server signal keeps everything",
			clue: UnknownClue{Key: "k"},
			want: []string{"sc1", "sc2", "sq1", "sq2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.MatchingConnections(tt.clue, allIDs())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchingConnections() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchingConnectionsSkipsRemovedConnection(t *testing.T) {
	matcher, conns := newMatcherFixture(t)
	conns.Remove("sq1")

	got := matcher.MatchingConnections(SonarQubeClue{ServerURL: "https://sonar.example.com"}, allIDs())
	if len(got) != 0 {
		t.Errorf("MatchingConnections() = %v, want none after removal", got)
	}
}

func TestMatchesPanicsOnUnhandledClueType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unhandled clue type")
		}
	}()
	type oddClue struct{ UnknownClue }
	matches(oddClue{}, &repository.ConnectionConfiguration{Kind: repository.KindSonarQube})
}
