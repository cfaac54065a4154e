package pairing

import (
	"math/rand"
	"sort"
	"sync"
)

// Team is one pair of participants for the week.
type Team struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// Has reports whether userID is a member of the team.
func (t Team) Has(userID string) bool {
	return t.First == userID || t.Second == userID
}

// Assignment is the materialized result of a pairing run. It can be read any
// number of times.
type Assignment struct {
	Teams    []Team `json:"teams"`
	Leftover string `json:"leftover,omitempty"`
}

// HasLeftover reports whether a participant was left without a partner.
func (a Assignment) HasLeftover() bool {
	return a.Leftover != ""
}

// Insufficient reports whether there were fewer than two participants.
func (a Assignment) Insufficient() bool {
	return len(a.Teams) == 0
}

// Size returns the number of participants covered by the assignment.
func (a Assignment) Size() int {
	n := 2 * len(a.Teams)
	if a.HasLeftover() {
		n++
	}
	return n
}

// FormTeams pairs participants uniformly at random using rng.
//
// The input is sorted before shuffling so the outcome depends only on the
// set of participants and the state of rng. With an odd count, an empty
// placeholder joins the shuffle and whoever lands next to it becomes the
// leftover.
func FormTeams(participants []string, rng *rand.Rand) Assignment {
	ids := uniqueSorted(participants)
	if len(ids) < 2 {
		return Assignment{}
	}

	if len(ids)%2 != 0 {
		ids = append(ids, "")
	}
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	var result Assignment
	result.Teams = make([]Team, 0, len(ids)/2)
	for i := 0; i < len(ids); i += 2 {
		first, second := ids[i], ids[i+1]
		switch {
		case first == "":
			result.Leftover = second
		case second == "":
			result.Leftover = first
		default:
			result.Teams = append(result.Teams, Team{First: first, Second: second})
		}
	}
	return result
}

func uniqueSorted(participants []string) []string {
	seen := make(map[string]struct{}, len(participants))
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		ids = append(ids, p)
	}
	sort.Strings(ids)
	return ids
}

// Engine serializes access to a shared random source so that several guilds
// can form teams at the same time.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewEngine(src rand.Source) *Engine {
	return &Engine{rng: rand.New(src)}
}

func (e *Engine) FormTeams(participants []string) Assignment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FormTeams(participants, e.rng)
}
