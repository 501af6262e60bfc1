package shuffle

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jumbleapp/jumble/internal/models"
)

// Shuffler partitions members into teams under fairness constraints.
// Safe for concurrent use; one instance serves every session.
type Shuffler struct {
	mu     sync.Mutex
	random *rand.Rand
}

// Config for the shuffler
type Config struct {
	// Optional seed for testing
	Seed int64
}

// New creates a new shuffler
func New(cfg *Config) *Shuffler {
	var seed int64
	if cfg != nil && cfg.Seed != 0 {
		seed = cfg.Seed
	} else {
		seed = time.Now().UnixNano()
	}

	return &Shuffler{
		random: rand.New(rand.NewSource(seed)),
	}
}

// Shuffle partitions members into cfg.NumTeams teams and scores the outcome.
// The input config must already be validated (NumTeams >= 1, weights in [0,1]).
// Each run permutes the members first, so repeated runs on the same roster
// produce different but statistically similar partitions.
func (s *Shuffler) Shuffle(members []*models.Member, cfg models.ShuffleConfig) *models.ShuffleResult {
	if len(members) == 0 {
		return &models.ShuffleResult{
			Teams:              []*models.Team{},
			DiversityScore:     0,
			GenderBalanceScore: 0,
		}
	}

	teams := make([]*models.Team, 0, cfg.NumTeams)
	for i := 0; i < cfg.NumTeams; i++ {
		teams = append(teams, models.NewTeam(i))
	}

	shuffled := make([]*models.Member, len(members))
	copy(shuffled, members)
	s.mu.Lock()
	s.random.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	if cfg.BalanceGender && cfg.GenderBalanceWeight > 0.5 {
		distributeGenderBalanced(shuffled, teams)
	} else {
		distributeDiversityFocused(shuffled, teams)
	}

	return &models.ShuffleResult{
		Teams:              teams,
		DiversityScore:     diversityScore(teams),
		GenderBalanceScore: genderBalanceScore(teams),
	}
}

// distributeGenderBalanced processes one gender group at a time, placing each
// member on the team currently holding the fewest members (ties go to the
// lowest team index). This equalizes team sizes and tends to spread each
// gender across teams, but does not guarantee the tightest per-team gender
// ratio when group sizes are highly skewed. Teams are not size-rebalanced
// afterward; the greedy placement already bounds the size spread to one.
func distributeGenderBalanced(members []*models.Member, teams []*models.Team) {
	groups := make(map[models.Gender][]*models.Member)
	for _, m := range members {
		groups[m.Gender] = append(groups[m.Gender], m)
	}

	for _, gender := range genderOrder(members) {
		for _, m := range groups[gender] {
			target := teams[0]
			for _, t := range teams[1:] {
				if len(t.Members) < len(target.Members) {
					target = t
				}
			}
			target.Members = append(target.Members, m)
		}
	}
}

// genderOrder returns the gender categories to process: the known categories
// in their fixed order, then any unrecognized values in first-seen order.
func genderOrder(members []*models.Member) []models.Gender {
	known := make(map[models.Gender]bool, len(models.Genders))
	order := make([]models.Gender, 0, len(models.Genders))
	for _, g := range models.Genders {
		known[g] = true
		order = append(order, g)
	}
	for _, m := range members {
		if !known[m.Gender] {
			known[m.Gender] = true
			order = append(order, m.Gender)
		}
	}
	return order
}

// distributeDiversityFocused spreads each college group round-robin across
// teams, then rebalances team sizes.
func distributeDiversityFocused(members []*models.Member, teams []*models.Team) {
	groups := make(map[string][]*models.Member)
	colleges := make([]string, 0)
	for _, m := range members {
		if _, seen := groups[m.College]; !seen {
			colleges = append(colleges, m.College)
		}
		groups[m.College] = append(groups[m.College], m)
	}

	for _, college := range colleges {
		for i, m := range groups[college] {
			team := teams[i%len(teams)]
			team.Members = append(team.Members, m)
		}
	}

	rebalanceTeamSizes(teams, len(members)/len(teams))
}

// rebalanceTeamSizes moves members from the largest team's end to the
// smallest team until no team exceeds baseSize+1 while another sits below
// baseSize. A bounded local fix-up, not an exhaustive balancing pass.
func rebalanceTeamSizes(teams []*models.Team, baseSize int) {
	bySize := make([]*models.Team, len(teams))
	copy(bySize, teams)
	sortBySizeDesc(bySize)

	for len(bySize[0].Members) > baseSize+1 {
		largest := bySize[0]
		smallest := bySize[len(bySize)-1]
		if len(smallest.Members) >= baseSize {
			break
		}

		member := largest.Members[len(largest.Members)-1]
		largest.Members = largest.Members[:len(largest.Members)-1]
		smallest.Members = append(smallest.Members, member)
		sortBySizeDesc(bySize)
	}
}

func sortBySizeDesc(teams []*models.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		return len(teams[i].Members) > len(teams[j].Members)
	})
}

// diversityScore averages each team's distinct-college ratio over all teams,
// scaled to 0-100. An empty team contributes 0.
func diversityScore(teams []*models.Team) int {
	if len(teams) == 0 {
		return 0
	}

	total := 0.0
	for _, t := range teams {
		if len(t.Members) == 0 {
			continue
		}
		colleges := make(map[string]bool)
		for _, m := range t.Members {
			colleges[m.College] = true
		}
		total += float64(len(colleges)) / float64(len(t.Members))
	}

	return int(math.Round(total / float64(len(teams)) * 100))
}

// genderBalanceScore averages each team's min/max gender count ratio over
// all teams, scaled to 0-100. An empty team contributes 0.
func genderBalanceScore(teams []*models.Team) int {
	if len(teams) == 0 {
		return 0
	}

	total := 0.0
	for _, t := range teams {
		if len(t.Members) == 0 {
			continue
		}

		counts := make(map[models.Gender]int)
		for _, m := range t.Members {
			counts[m.Gender]++
		}

		minCount, maxCount := len(t.Members), 0
		for _, c := range counts {
			if c < minCount {
				minCount = c
			}
			if c > maxCount {
				maxCount = c
			}
		}
		total += float64(minCount) / float64(maxCount)
	}

	return int(math.Round(total / float64(len(teams)) * 100))
}
