package models

// ShuffleConfig holds the per-session fairness tunables for a shuffle
type ShuffleConfig struct {
	// NumTeams is how many teams to split members into (>= 1)
	NumTeams int `json:"numTeams"`

	// BalanceGender enables the gender-balanced distribution path
	BalanceGender bool `json:"balanceGender"`

	// DiversityWeight biases toward college diversity, in [0,1]
	DiversityWeight float64 `json:"maxDiversityWeight"`

	// GenderBalanceWeight biases toward gender balance, in [0,1]
	GenderBalanceWeight float64 `json:"genderBalanceWeight"`
}

// DefaultShuffleConfig returns the configuration new sessions start with
func DefaultShuffleConfig() ShuffleConfig {
	return ShuffleConfig{
		NumTeams:            2,
		BalanceGender:       false,
		DiversityWeight:     0.7,
		GenderBalanceWeight: 0.3,
	}
}

// ShuffleResult is the outcome of one shuffle run
type ShuffleResult struct {
	// Teams holds the final partition
	Teams []*Team `json:"teams"`

	// DiversityScore summarizes college spread per team, 0-100
	DiversityScore int `json:"diversityScore"`

	// GenderBalanceScore summarizes gender spread per team, 0-100
	GenderBalanceScore int `json:"genderBalanceScore"`
}
