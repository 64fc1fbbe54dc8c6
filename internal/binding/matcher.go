package binding

import (
	"fmt"
	"sort"

	"sonarbind/internal/repository"
)

// ConnectionMatcher narrows a set of candidate connections to those
// compatible with a clue.
type ConnectionMatcher struct {
	connections *repository.ConnectionRepository
}

// NewConnectionMatcher creates a matcher over the connection repository.
func NewConnectionMatcher(connections *repository.ConnectionRepository) *ConnectionMatcher {
	return &ConnectionMatcher{connections: connections}
}

// MatchingConnections returns the subset of eligible connection ids
// compatible with the clue, sorted for deterministic processing. A clue
// with no discriminating signal keeps every eligible connection.
func (m *ConnectionMatcher) MatchingConnections(clue Clue, eligibleConnectionIDs []string) []string {
	var matched []string
	for _, id := range eligibleConnectionIDs {
		conn := m.connections.Get(id)
		if conn == nil {
			// Removed between event and processing; not a candidate.
			continue
		}
		if matches(clue, conn) {
			matched = append(matched, id)
		}
	}
	sort.Strings(matched)
	return matched
}

func matches(clue Clue, conn *repository.ConnectionConfiguration) bool {
	switch c := clue.(type) {
	case SonarQubeClue:
		return conn.Kind == repository.KindSonarQube && conn.IsSameServerURL(c.ServerURL)
	case SonarCloudClue:
		return conn.Kind == repository.KindSonarCloud &&
			(c.Organization == "" || c.Organization == conn.Organization)
	case UnknownClue:
		return true
	default:
		panic(fmt.Sprintf("unhandled clue type %T", clue))
	}
}
