package geo

import "fmt"

// Level is one of the fixed geographic resolutions a location is classified
// at, ordered coarse to fine.
type Level uint8

const (
	LevelCountry Level = iota
	LevelRegion
	LevelCity
	LevelPrecise
	numLevels
)

// Levels lists every level coarse to fine.
var Levels = []Level{LevelCountry, LevelRegion, LevelCity, LevelPrecise}

// LevelsFinestFirst lists every level fine to coarse, the order the fusion
// fallback walks them in.
var LevelsFinestFirst = []Level{LevelPrecise, LevelCity, LevelRegion, LevelCountry}

var levelNames = [numLevels]string{"country", "region", "city", "precise"}

func (l Level) String() string {
	if l >= numLevels {
		return fmt.Sprintf("level(%d)", uint8(l))
	}
	return levelNames[l]
}

// MarshalText lets Level act as a JSON map key.
func (l Level) MarshalText() ([]byte, error) {
	if l >= numLevels {
		return nil, fmt.Errorf("unknown hierarchy level %d", uint8(l))
	}
	return []byte(levelNames[l]), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel maps a level name back to its Level value.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hierarchy level %q", s)
}

// LevelSpecs maps each level to its target cluster count.
type LevelSpecs map[Level]int

// DefaultLevelSpecs returns the stock per-level cluster counts.
func DefaultLevelSpecs() LevelSpecs {
	return LevelSpecs{
		LevelCountry: 195,
		LevelRegion:  1000,
		LevelCity:    10000,
		LevelPrecise: 100000,
	}
}
