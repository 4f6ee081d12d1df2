package entity

// Directory resolves handles to participants. Registries depend on this
// rather than on a concrete roster.
type Directory interface {
	Lookup(h Handle) (Participant, bool)
}

// Roster is the set of participants registered in one encounter, keyed by
// the handle each was assigned at registration.
type Roster struct {
	byHandle map[Handle]Participant
	teams    map[Handle]string
	order    []Handle
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{
		byHandle: make(map[Handle]Participant),
		teams:    make(map[Handle]string),
	}
}

// Register adds p under team and returns its new handle.
func (r *Roster) Register(p Participant, team string) Handle {
	h := NewHandle()
	r.byHandle[h] = p
	r.teams[h] = team
	r.order = append(r.order, h)
	return h
}

// Lookup returns the participant for h.
func (r *Roster) Lookup(h Handle) (Participant, bool) {
	p, ok := r.byHandle[h]
	return p, ok
}

// HandleOf returns the handle registered for p (by identity).
func (r *Roster) HandleOf(p Participant) (Handle, bool) {
	for _, h := range r.order {
		if r.byHandle[h] == p {
			return h, true
		}
	}
	return "", false
}

// Team returns the team h was registered under.
func (r *Roster) Team(h Handle) string {
	return r.teams[h]
}

// Handles returns all handles in registration order.
func (r *Roster) Handles() []Handle {
	out := make([]Handle, len(r.order))
	copy(out, r.order)
	return out
}

// TeamNames returns team names in order of first registration.
func (r *Roster) TeamNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, h := range r.order {
		t := r.teams[h]
		if !seen[t] {
			seen[t] = true
			names = append(names, t)
		}
	}
	return names
}

// Members returns the participants registered under team, in order.
func (r *Roster) Members(team string) []Participant {
	var members []Participant
	for _, h := range r.order {
		if r.teams[h] == team {
			members = append(members, r.byHandle[h])
		}
	}
	return members
}

// LivingTeams returns the teams with at least one living member, in order of
// first registration.
func (r *Roster) LivingTeams() []string {
	var living []string
	for _, t := range r.TeamNames() {
		if !NewTeam(t, r.Members(t)...).IsDefeated() {
			living = append(living, t)
		}
	}
	return living
}

// Len returns the number of registered participants.
func (r *Roster) Len() int { return len(r.order) }
