package spinwheel

import "math"

// AngleMapper converts a sector index into the wheel rotation that brings that
// sector under the fixed pointer at the top (0 degrees). Sector i spans
// [i*SectorAngle, (i+1)*SectorAngle) clockwise from the top.
type AngleMapper struct {
	sectors     int
	sectorAngle float64
}

// Sector describes where one reward sits on the wheel, in degrees clockwise from the top.
type Sector struct {
	Index       int     `json:"index"`
	Reward      Reward  `json:"reward"`
	Share       float64 `json:"share"`
	StartAngle  float64 `json:"start_angle"`
	EndAngle    float64 `json:"end_angle"`
	CenterAngle float64 `json:"center_angle"`
}

// NewAngleMapper creates a mapper for a wheel with the given number of equal sectors.
func NewAngleMapper(sectors int) (*AngleMapper, error) {
	if sectors <= 0 {
		return nil, ErrInvalidSectorCount
	}
	return &AngleMapper{
		sectors:     sectors,
		sectorAngle: FullTurnDegrees / float64(sectors),
	}, nil
}

// SectorCount returns the number of sectors.
func (m *AngleMapper) SectorCount() int { return m.sectors }

// SectorAngle returns the width of one sector.
func (m *AngleMapper) SectorAngle() float64 { return m.sectorAngle }

// SectorCenter returns the angle of the middle of sector i.
func (m *AngleMapper) SectorCenter(i int) float64 {
	return float64(i)*m.sectorAngle + m.sectorAngle/2
}

// LandingAngle returns the net rotation, in [0, 360), that puts sector i under the pointer.
func (m *AngleMapper) LandingAngle(i int) float64 {
	return normalizeDegrees(FullTurnDegrees - m.SectorCenter(i))
}

// TargetRotation returns the absolute rotation for landing on sector i after
// fullRotations cosmetic turns. fullRotations never changes the landing angle.
func (m *AngleMapper) TargetRotation(i, fullRotations int) (float64, error) {
	if i < 0 || i >= m.sectors {
		return 0, ErrUnknownReward.WithMetadata("index", i)
	}
	if fullRotations < 0 {
		return 0, ErrInvalidTurnRange
	}
	return float64(fullRotations)*FullTurnDegrees + m.LandingAngle(i), nil
}

// SectorUnderPointer returns the sector index that sits under the pointer
// after the wheel has rotated by rotation degrees.
func (m *AngleMapper) SectorUnderPointer(rotation float64) int {
	// the pointer reads the wheel at angle -rotation
	at := normalizeDegrees(-rotation)
	i := int(at / m.sectorAngle)
	if i >= m.sectors {
		i = m.sectors - 1
	}
	return i
}

// Sectors returns the geometry of every sector of table.
func (m *AngleMapper) Sectors(table RewardTable) []Sector {
	out := make([]Sector, 0, table.Len())
	for i := range table.Len() {
		start := float64(i) * m.sectorAngle
		out = append(out, Sector{
			Index:       i,
			Reward:      table.At(i),
			Share:       table.Share(i),
			StartAngle:  start,
			EndAngle:    start + m.sectorAngle,
			CenterAngle: m.SectorCenter(i),
		})
	}
	return out
}

// ExtraTurns draws the cosmetic number of full turns in [min, max].
func ExtraTurns(source RandomSource, min, max int) (int, error) {
	if min < 0 {
		return 0, ErrInvalidTurnRange
	}
	return IntInRange(source, min, max)
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, FullTurnDegrees)
	if deg < 0 {
		deg += FullTurnDegrees
	}
	return deg
}
