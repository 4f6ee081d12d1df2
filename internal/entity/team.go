package entity

// Team is a named side in an encounter.
type Team struct {
	Name    string
	Members []Participant
}

// NewTeam creates a team.
func NewTeam(name string, members ...Participant) *Team {
	return &Team{Name: name, Members: members}
}

// AliveMemberCount returns the number of living members.
func (t *Team) AliveMemberCount() int {
	count := 0
	for _, m := range t.Members {
		if m.IsAlive() {
			count++
		}
	}
	return count
}

// IsDefeated returns true when no member is alive.
func (t *Team) IsDefeated() bool {
	return t.AliveMemberCount() == 0
}

// AliveNames returns the names of living members in roster order.
func (t *Team) AliveNames() []string {
	var names []string
	for _, m := range t.Members {
		if m.IsAlive() {
			names = append(names, m.Name())
		}
	}
	return names
}
