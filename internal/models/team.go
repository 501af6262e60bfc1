package models

// TeamNames is the fixed palette of team names, cycled by team index
var TeamNames = []string{
	"Cosmic Voyagers",
	"Neon Ninjas",
	"Quantum Questers",
	"Cyber Phoenixes",
	"Electric Eagles",
	"Mystic Mavericks",
	"Stellar Spirits",
	"Digital Dragons",
	"Hyper Hawks",
	"Aurora Avengers",
}

// TeamColors is the fixed palette of team colors, cycled by team index
var TeamColors = []string{
	"#00F0FF",
	"#FF006E",
	"#FFBE0B",
	"#00FF85",
	"#B537F2",
	"#FF4365",
	"#06FFA5",
	"#FFA400",
	"#5E17EB",
	"#FF00BD",
}

// Team represents one output partition of a shuffle
type Team struct {
	// Index is the ordinal position of the team
	Index int `json:"index"`

	// Name is drawn from the name palette by index
	Name string `json:"name"`

	// Color is drawn from the color palette by index
	Color string `json:"color"`

	// Members holds the team roster in assignment order
	Members []*Member `json:"members"`
}

// NewTeam creates an empty team named and colored by palette index.
// Teams beyond the palette size cycle back to the start.
func NewTeam(index int) *Team {
	return &Team{
		Index:   index,
		Name:    TeamNames[index%len(TeamNames)],
		Color:   TeamColors[index%len(TeamColors)],
		Members: []*Member{},
	}
}
