package h265

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
	bitreader "github.com/rinsuki-lab/alvr-dive/pkg/bits"
)

// ProfileSpace - general_profile_space, 0 for all current profiles
type ProfileSpace uint8

const (
	ProfileSpace0 ProfileSpace = iota
	ProfileSpaceA
	ProfileSpaceB
	ProfileSpaceC
)

// Prefix for codec string
func (p ProfileSpace) Prefix() string {
	switch p {
	case ProfileSpaceA:
		return "A"
	case ProfileSpaceB:
		return "B"
	case ProfileSpaceC:
		return "C"
	}
	return ""
}

type Tier uint8

const (
	TierMain Tier = iota
	TierHigh
)

// Prefix for level in codec string
func (t Tier) Prefix() string {
	if t == TierHigh {
		return "H"
	}
	return "L"
}

func (t Tier) String() string {
	if t == TierHigh {
		return "High"
	}
	return "Main"
}

const (
	ProfileMain            = 1
	ProfileMain10          = 2
	ProfileMainStillPic    = 3
	ProfileRangeExtensions = 4
	ProfileHighThroughput  = 5
	ProfileSCC             = 9
)

// RangeExtensionFlags - constraint flags for format range extensions profiles (4..11)
type RangeExtensionFlags struct {
	Max12Bit       bool
	Max10Bit       bool
	Max8Bit        bool
	Max422Chroma   bool
	Max420Chroma   bool
	MaxMonochrome  bool
	Intra          bool
	OnePictureOnly bool
	LowerBitRate   bool
	Max14Bit       bool
}

// ConstraintFlags - 48 bits general_constraint_indicator_flags
type ConstraintFlags struct {
	ProgressiveSource bool
	InterlacedSource  bool
	NonPacked         bool
	FrameOnly         bool

	// nil if profile doesn't have format range extensions
	RangeExtension *RangeExtensionFlags

	Raw uint64 // original 48 bits, used in codec string
}

// Bytes - 6 bytes of flags, starting from byte with progressive_source_flag
func (c *ConstraintFlags) Bytes() []byte {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(c.Raw >> (40 - 8*i))
	}
	return b
}

type ProfileTierLevel struct {
	ProfileSpace       ProfileSpace
	Tier               Tier
	ProfileIDC         uint8
	CompatibilityFlags uint32 // first read flag is most significant bit
	Constraints        ConstraintFlags
	LevelIDC           uint8
}

// Compatible - general_profile_compatibility_flag[j]
func (p *ProfileTierLevel) Compatible(j uint8) bool {
	return p.CompatibilityFlags&(1<<(31-j)) != 0
}

// hasProfile - profile_idc or compatibility flag
func (p *ProfileTierLevel) hasProfile(profiles ...uint8) bool {
	for _, j := range profiles {
		if p.ProfileIDC == j || p.Compatible(j) {
			return true
		}
	}
	return false
}

// Codec - string for decoder configuration, ISO/IEC 14496-15 Annex E
func (p *ProfileTierLevel) Codec() string {
	sb := strings.Builder{}

	_, _ = fmt.Fprintf(
		&sb, "hev1.%s%d.%X.%s%d",
		p.ProfileSpace.Prefix(), p.ProfileIDC,
		bits.Reverse32(p.CompatibilityFlags),
		p.Tier.Prefix(), p.LevelIDC,
	)

	constraints := p.Constraints.Bytes()
	for len(constraints) > 0 && constraints[len(constraints)-1] == 0 {
		constraints = constraints[:len(constraints)-1]
	}
	for _, b := range constraints {
		_, _ = fmt.Fprintf(&sb, ".%X", b)
	}

	return sb.String()
}

func (p *ProfileTierLevel) Profile() string {
	switch p.ProfileIDC {
	case ProfileMain:
		return "Main"
	case ProfileMain10:
		return "Main 10"
	case ProfileMainStillPic:
		return "Main Still Picture"
	case ProfileRangeExtensions:
		return "Range Extensions"
	case ProfileHighThroughput:
		return "High Throughput"
	case ProfileSCC:
		return "Screen Content"
	}
	return fmt.Sprintf("%d", p.ProfileIDC)
}

func (p *ProfileTierLevel) String() string {
	return fmt.Sprintf("%s@%s %d.%d", p.Profile(), p.Tier, p.LevelIDC/30, p.LevelIDC%30/3)
}

// readProfileTierLevel - profile_tier_level(1, maxSubLayersMinus1)
func readProfileTierLevel(r *bitreader.Reader, maxSubLayersMinus1 uint8) (ptl ProfileTierLevel, err error) {
	space, _ := r.ReadBits8(2)
	tier, _ := r.ReadBit()
	profile, _ := r.ReadBits8(5)
	compat, _ := r.ReadBits(32)
	constraints, _ := r.ReadBits64(48)
	level, err := r.ReadByte()
	if err != nil {
		return ptl, errors.Wrap(err, "h265: general profile_tier_level")
	}

	ptl = ProfileTierLevel{
		ProfileSpace:       ProfileSpace(space),
		Tier:               Tier(tier),
		ProfileIDC:         profile,
		CompatibilityFlags: compat,
		LevelIDC:           level,
	}
	ptl.Constraints = ptl.decodeConstraints(constraints)

	subLayerProfilePresent := make([]bool, maxSubLayersMinus1)
	subLayerLevelPresent := make([]bool, maxSubLayersMinus1)

	for i := range subLayerProfilePresent {
		subLayerProfilePresent[i], _ = r.ReadFlag()
		subLayerLevelPresent[i], _ = r.ReadFlag()
	}

	if maxSubLayersMinus1 > 0 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			_, _ = r.ReadBits8(2) // reserved_zero_2bits
		}
	}

	for i := range subLayerProfilePresent {
		if subLayerProfilePresent[i] {
			// space, tier, profile, compatibility and constraint flags
			_ = r.Skip(2 + 1 + 5 + 32 + 48)
		}
		if subLayerLevelPresent[i] {
			_ = r.Skip(8)
		}
	}

	if err = r.Err(); err != nil {
		return ptl, errors.Wrap(err, "h265: sub-layers profile_tier_level")
	}

	return ptl, nil
}

func (p *ProfileTierLevel) decodeConstraints(raw uint64) ConstraintFlags {
	flag := func(i int) bool {
		return raw&(1<<(47-i)) != 0
	}

	c := ConstraintFlags{
		ProgressiveSource: flag(0),
		InterlacedSource:  flag(1),
		NonPacked:         flag(2),
		FrameOnly:         flag(3),
		Raw:               raw,
	}

	if p.hasProfile(4, 5, 6, 7, 8, 9, 10, 11) {
		c.RangeExtension = &RangeExtensionFlags{
			Max12Bit:       flag(4),
			Max10Bit:       flag(5),
			Max8Bit:        flag(6),
			Max422Chroma:   flag(7),
			Max420Chroma:   flag(8),
			MaxMonochrome:  flag(9),
			Intra:          flag(10),
			OnePictureOnly: flag(11),
			LowerBitRate:   flag(12),
		}
		if p.hasProfile(5, 9, 10, 11) {
			c.RangeExtension.Max14Bit = flag(13)
		}
	}

	return c
}
