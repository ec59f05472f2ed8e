package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// chainGraph builds a small line graph a-b-c-d with a spur b-e.
func chainGraph() map[string][]string {
	return map[string][]string{
		"a": {"b"},
		"b": {"a", "c", "e"},
		"c": {"b", "d"},
		"d": {"c"},
		"e": {"b"},
	}
}

func TestConnectedThroughOwnedChain(t *testing.T) {
	owners := map[string]string{"a": "p1", "b": "p1", "c": "p1", "d": "p1", "e": "p2"}

	require.True(t, Connected("a", "d", "p1", chainGraph(), owners))
	require.True(t, Connected("d", "a", "p1", chainGraph(), owners))
}

func TestConnectedBlockedByRivalTerritory(t *testing.T) {
	// b belongs to a rival, so a and c are only linked through enemy ground.
	owners := map[string]string{"a": "p1", "b": "p2", "c": "p1", "d": "p1", "e": "p2"}

	require.False(t, Connected("a", "c", "p1", chainGraph(), owners),
		"a mixed-ownership path must not count as connected")
}

func TestConnectedSameTerritoryAlwaysInvalid(t *testing.T) {
	owners := map[string]string{"a": "p1"}
	require.False(t, Connected("a", "a", "p1", chainGraph(), owners))
}

func TestConnectedRequiresOwnedEndpoints(t *testing.T) {
	owners := map[string]string{"a": "p1", "b": "p1", "c": "p2"}

	require.False(t, Connected("a", "c", "p1", chainGraph(), owners))
	require.False(t, Connected("c", "a", "p1", chainGraph(), owners))
}

func TestConnectedUnknownTerritory(t *testing.T) {
	owners := map[string]string{"a": "p1"}
	require.False(t, Connected("a", "zz", "p1", chainGraph(), owners))
}
