package gamedata

import (
	"errors"
	"math/rand"
)

// CreatureRegistry holds loaded creature templates and provides spawning
// utilities.
type CreatureRegistry struct {
	creatures   []CreatureDef
	byID        map[string]*CreatureDef
	monsters    []*CreatureDef
	totalWeight int
}

// NewCreatureRegistry creates a registry from loaded creature definitions.
func NewCreatureRegistry(creatures []CreatureDef) *CreatureRegistry {
	r := &CreatureRegistry{
		creatures: creatures,
		byID:      make(map[string]*CreatureDef, len(creatures)),
	}
	for i := range creatures {
		def := &creatures[i]
		r.byID[def.ID] = def
		if def.Side == SideMonster && def.SpawnWeight > 0 {
			r.monsters = append(r.monsters, def)
			r.totalWeight += def.SpawnWeight
		}
	}
	return r
}

// LoadCreatureRegistry loads and creates a registry from the embedded creatures.yaml.
func LoadCreatureRegistry() (*CreatureRegistry, error) {
	creatures, err := LoadCreatures()
	if err != nil {
		return nil, err
	}
	if len(creatures) == 0 {
		return nil, errors.New("no creatures loaded from creatures.yaml")
	}
	return NewCreatureRegistry(creatures), nil
}

// MustLoadCreatureRegistry loads a registry, panicking on error.
func MustLoadCreatureRegistry() *CreatureRegistry {
	registry, err := LoadCreatureRegistry()
	if err != nil {
		panic(err)
	}
	return registry
}

// SpawnRandom selects a random monster definition using weighted probability.
// Monsters with higher spawnWeight are more likely to be selected.
func (r *CreatureRegistry) SpawnRandom(rng *rand.Rand) *CreatureDef {
	if r.totalWeight <= 0 || len(r.monsters) == 0 {
		return nil
	}

	// Pick a random value in the total weight range
	roll := rng.Intn(r.totalWeight)

	// Find which monster this roll corresponds to
	cumulative := 0
	for _, def := range r.monsters {
		cumulative += def.SpawnWeight
		if roll < cumulative {
			return def
		}
	}

	// Fallback (shouldn't happen)
	return r.monsters[0]
}

// GetByID returns the creature definition with the given ID, or nil if not found.
func (r *CreatureRegistry) GetByID(id string) *CreatureDef {
	return r.byID[id]
}

// Heroes returns the hero templates in file order.
func (r *CreatureRegistry) Heroes() []*CreatureDef {
	var heroes []*CreatureDef
	for i := range r.creatures {
		if r.creatures[i].Side == SideHero {
			heroes = append(heroes, &r.creatures[i])
		}
	}
	return heroes
}

// All returns all creature definitions.
func (r *CreatureRegistry) All() []CreatureDef {
	return r.creatures
}

// Count returns the number of creature templates in the registry.
func (r *CreatureRegistry) Count() int {
	return len(r.creatures)
}
